package usrp

import (
	"fmt"
	"math"

	"github.com/radiotree/radiotree-go/pkg/component"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

type dsp struct {
	root string
	rate *tree.Handle
	freq *tree.Handle
}

func (d *Device) buildDSP(dir string, n int) error {
	id := fmt.Sprintf("%s_dsp%d", dir, n)
	root := fmt.Sprintf("%s/%s_dsps/%d", MboardRoot, dir, n)
	specs := []tree.NodeSpec{
		{
			Path:     "rate/value",
			Initial:  property.Float(1e6),
			Coercer:  rateCoercer(d.tick),
			Metadata: &property.Metadata{Unit: "Sps", Description: "sample rate"},
		},
		{
			Path:     "freq/value",
			Initial:  property.Float(0),
			Coercer:  freqCoercer(d.tick),
			Metadata: &property.Metadata{Unit: "Hz", Description: "CORDIC frequency"},
		},
	}
	view, err := d.register(id, root, specs, component.KindDSP)
	if err != nil {
		return err
	}
	s := &dsp{root: root}
	if s.rate, err = view.Resolve("rate/value"); err != nil {
		return err
	}
	if s.freq, err = view.Resolve("freq/value"); err != nil {
		return err
	}
	d.dsps = append(d.dsps, s)
	return d.alias("/"+id, root)
}

// tickRate runs inside coercers, under the tree write lock.
func tickRate(tick *tree.Handle) (float64, error) {
	v, err := tick.GetLocked()
	if err != nil {
		return 0, err
	}
	f, _ := v.Float()
	return f, nil
}

// rateCoercer snaps a requested sample rate to tick_rate/decim for an
// integer decimation in [1, MaxDecim].
func rateCoercer(tick *tree.Handle) property.Coercer {
	return func(v property.Value) (property.Value, error) {
		want, ok := v.Float()
		if !ok || want <= 0 {
			return property.Value{}, property.Invalid(v, "rate must be positive")
		}
		tr, err := tickRate(tick)
		if err != nil {
			return property.Value{}, err
		}
		decim := math.Max(1, math.Min(MaxDecim, math.Round(tr/want)))
		return property.Float(tr / decim), nil
	}
}

// freqCoercer clips the DSP frequency to the first Nyquist zone.
func freqCoercer(tick *tree.Handle) property.Coercer {
	return func(v property.Value) (property.Value, error) {
		tr, err := tickRate(tick)
		if err != nil {
			return property.Value{}, err
		}
		return property.Clip(-tr/2, tr/2)(v)
	}
}

// retune runs after every tick_rate write. The DSPs' last requested rate
// and frequency are written again so they are coerced against the new rate.
// DSPs whose component was unregistered are skipped.
func (d *Device) retune(tx property.Tx, _ property.Change) error {
	for _, s := range d.dsps {
		for _, h := range []*tree.Handle{s.rate, s.freq} {
			if !h.Alive() {
				continue
			}
			want, err := h.DesiredLocked()
			if err != nil {
				return err
			}
			if err := tx.Set(h.Path(), want); err != nil {
				return err
			}
		}
	}
	return nil
}
