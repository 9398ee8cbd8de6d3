package usrp

import (
	"fmt"

	"github.com/radiotree/radiotree-go/pkg/component"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/rfnoc"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

const defaultRFFreq = 1e9

func (d *Device) buildRadio(n int) error {
	id := d.blocks.Add(0, rfnoc.KindRadio)
	root := id.TreePath()
	offset, err := d.gainOffset(defaultRFFreq)
	if err != nil {
		return err
	}
	specs := []tree.NodeSpec{
		{
			Path:     "gain/value",
			Initial:  property.Float(0),
			Coercer:  property.Chain(property.Clip(MinGain, MaxGain), property.Step(GainStep)),
			Metadata: &property.Metadata{Unit: "dB"},
		},
		{
			Path:    "gain/offset",
			Initial: property.Float(offset),
			Metadata: &property.Metadata{
				Access:      property.AccessReadOnly,
				Unit:        "dB",
				Description: "calibrated gain correction at the current frequency",
			},
		},
		{
			Path:     "freq/value",
			Initial:  property.Float(defaultRFFreq),
			Coercer:  property.Clip(MinRFFreq, MaxRFFreq),
			Metadata: &property.Metadata{Unit: "Hz", Description: "RF center frequency"},
		},
		{
			Path:    "antenna/value",
			Initial: property.String("RX2"),
			Coercer: property.OneOf(property.String("TX/RX"), property.String("RX2")),
		},
	}
	view, err := d.register(id.String(), root, specs, component.KindBlock)
	if err != nil {
		return err
	}
	freq, err := view.Resolve("freq/value")
	if err != nil {
		return err
	}
	offsetPath := root + "/gain/offset"
	if _, err := freq.Subscribe(func(tx property.Tx, c property.Change) error {
		f, _ := c.Value.Float()
		off, err := d.gainOffset(f)
		if err != nil {
			return err
		}
		return tx.Set(offsetPath, property.Float(off))
	}); err != nil {
		return err
	}
	return d.alias(fmt.Sprintf("/radio%d", n), root)
}

func (d *Device) gainOffset(freq float64) (float64, error) {
	if d.config.GainTable == nil || d.config.GainTable.Len() == 0 {
		return 0, nil
	}
	return d.config.GainTable.Gain(freq)
}
