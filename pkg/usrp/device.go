package usrp

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/radiotree/radiotree-go/pkg/component"
	"github.com/radiotree/radiotree-go/pkg/eeprom"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/rfnoc"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

// Well-known paths.
const (
	MboardRoot      = "/mboards/0"
	TickRatePath    = MboardRoot + "/tick_rate"
	ClockSourcePath = MboardRoot + "/clock_source/value"
	TimeSourcePath  = MboardRoot + "/time_source/value"
	TempSensorPath  = MboardRoot + "/sensors/temp"
	RefLockedPath   = MboardRoot + "/sensors/ref_locked"
	EEPROMRoot      = MboardRoot + "/eeprom"
	CHDRRoot        = MboardRoot + "/chdr"
)

// Component IDs.
const (
	MboardID = "mb0"
	CHDRID   = "chdr0"
)

// Device is a simulated radio built into a property tree.
type Device struct {
	tree     *tree.Tree
	registry *component.Registry
	config   Config
	logger   *slog.Logger

	bus    eeprom.I2C
	blocks *rfnoc.Graph

	tick    *tree.Handle
	dsps    []*dsp
	ids     []string
	aliases []string
}

// Build creates the device's nodes, components and aliases. On failure
// everything created so far is removed again.
func Build(t *tree.Tree, reg *component.Registry, cfg Config) (*Device, error) {
	applyDefaults(&cfg)
	d := &Device{
		tree:     t,
		registry: reg,
		config:   cfg,
		logger:   cfg.Logger,
		blocks:   rfnoc.NewGraph(),
	}
	if err := d.build(); err != nil {
		if cerr := d.Close(); cerr != nil {
			d.logger.Warn("device teardown after failed build", slog.Any("error", cerr))
		}
		return nil, err
	}
	d.logger.Info("device built",
		slog.String("name", cfg.Name),
		slog.Int("rx_dsps", cfg.NumRxDSPs),
		slog.Int("tx_dsps", cfg.NumTxDSPs),
		slog.Int("radios", cfg.NumRadios))
	return d, nil
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.TickRate == 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.ClockSource == "" {
		cfg.ClockSource = def.ClockSource
	}
	if cfg.MTU == 0 {
		cfg.MTU = def.MTU
	}
	if cfg.Width == 0 {
		cfg.Width = def.Width
	}
	if cfg.EEPROMMap == 0 {
		cfg.EEPROMMap = def.EEPROMMap
	}
	if cfg.EEPROM == nil {
		cfg.EEPROM = def.EEPROM
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

func (d *Device) build() error {
	if err := d.buildMboard(); err != nil {
		return err
	}
	if err := d.buildEEPROM(); err != nil {
		return err
	}
	for i := 0; i < d.config.NumRxDSPs; i++ {
		if err := d.buildDSP("rx", i); err != nil {
			return err
		}
	}
	for i := 0; i < d.config.NumTxDSPs; i++ {
		if err := d.buildDSP("tx", i); err != nil {
			return err
		}
	}
	if _, err := d.tick.Subscribe(d.retune); err != nil {
		return err
	}
	for i := 0; i < d.config.NumRadios; i++ {
		if err := d.buildRadio(i); err != nil {
			return err
		}
	}
	return d.buildCHDR()
}

func (d *Device) register(id, root string, specs []tree.NodeSpec, kind string) (*tree.View, error) {
	view, err := d.registry.RegisterWith(id, root, specs, component.WithKind(kind))
	if err != nil {
		return nil, err
	}
	d.ids = append(d.ids, id)
	return view, nil
}

func (d *Device) alias(path, target string) error {
	if err := d.tree.Alias(path, target); err != nil {
		return err
	}
	d.aliases = append(d.aliases, path)
	return nil
}

func (d *Device) buildMboard() error {
	sources := property.OneOf(property.String("internal"), property.String("external"), property.String("gpsdo"))
	specs := []tree.NodeSpec{
		{Path: "name", Initial: property.String(d.config.Name), Coercer: property.NonEmpty},
		{
			Path:     "tick_rate",
			Initial:  property.Float(d.config.TickRate),
			Coercer:  property.Range(MinTickRate, MaxTickRate),
			Metadata: &property.Metadata{Unit: "Hz", Description: "master clock rate"},
		},
		{Path: "clock_source/value", Initial: property.String(d.config.ClockSource), Coercer: sources},
		{Path: "time_source/value", Initial: property.String("internal"), Coercer: sources},
		{
			Path:     "sensors/temp",
			Initial:  property.Float(0),
			Metadata: &property.Metadata{Access: property.AccessReadOnly, Unit: "C", Description: "board temperature"},
		},
		{
			Path:     "sensors/ref_locked",
			Initial:  property.Bool(false),
			Metadata: &property.Metadata{Access: property.AccessReadOnly, Description: "reference lock"},
		},
	}
	if _, err := d.register(MboardID, MboardRoot, specs, component.KindMotherboard); err != nil {
		return err
	}
	h, err := d.tree.Resolve(TickRatePath)
	if err != nil {
		return err
	}
	d.tick = h
	return nil
}

func (d *Device) buildEEPROM() error {
	d.bus = d.config.Bus
	if d.bus == nil {
		mem := eeprom.NewMemoryI2C()
		if err := d.config.EEPROM.Commit(mem, d.config.EEPROMMap); err != nil {
			return fmt.Errorf("program eeprom: %w", err)
		}
		d.bus = mem
	}
	contents, err := eeprom.Load(d.bus, d.config.EEPROMMap)
	if err != nil {
		return err
	}
	view, err := d.tree.Subtree(EEPROMRoot)
	if err != nil {
		return err
	}
	return eeprom.Publish(view, d.bus, d.config.EEPROMMap, contents)
}

func (d *Device) buildCHDR() error {
	specs := []tree.NodeSpec{
		{
			Path:     "mtu",
			Initial:  property.Int(int64(d.config.MTU)),
			Coercer:  property.Chain(property.Range(64, 9000), property.Step(8)),
			Metadata: &property.Metadata{Unit: "B"},
		},
		{
			Path:    "width",
			Initial: property.Int(int64(d.config.Width)),
			Coercer: property.OneOf(property.Int(64), property.Int(128), property.Int(256), property.Int(512)),
			Metadata: &property.Metadata{
				Access:      property.AccessReadOnly,
				Unit:        "bit",
				Description: "CHDR bus width",
			},
		},
	}
	_, err := d.register(CHDRID, CHDRRoot, specs, component.KindTransport)
	return err
}

// Tree returns the device's tree.
func (d *Device) Tree() *tree.Tree { return d.tree }

// Config returns the configuration the device was built with.
func (d *Device) Config() Config { return d.config }

// Blocks returns the RFNoC blocks on the device.
func (d *Device) Blocks() []rfnoc.BlockID { return d.blocks.Blocks() }

// Components returns the IDs of the components the device registered, in
// registration order.
func (d *Device) Components() []string {
	return append([]string(nil), d.ids...)
}

// TickRate returns the current master clock rate.
func (d *Device) TickRate() (float64, error) {
	v, err := d.tick.Get()
	if err != nil {
		return 0, err
	}
	f, _ := v.Float()
	return f, nil
}

// SetTickRate changes the master clock rate. DSP rates and frequencies
// are re-coerced in the same write.
func (d *Device) SetTickRate(rate float64) error {
	return d.tick.Set(property.Float(rate))
}

// Close removes the device's aliases and components.
func (d *Device) Close() error {
	var errs []error
	for i := len(d.aliases) - 1; i >= 0; i-- {
		if err := d.tree.Unalias(d.aliases[i]); err != nil && !errors.Is(err, tree.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	d.aliases = nil
	for i := len(d.ids) - 1; i >= 0; i-- {
		err := d.registry.Unregister(d.ids[i])
		if err != nil && !errors.Is(err, component.ErrUnknownComponent) {
			errs = append(errs, err)
		}
	}
	d.ids = nil
	return errors.Join(errs...)
}
