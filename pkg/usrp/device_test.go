package usrp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiotree/radiotree-go/pkg/cal"
	"github.com/radiotree/radiotree-go/pkg/component"
	"github.com/radiotree/radiotree-go/pkg/eeprom"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

func buildDevice(t *testing.T, mutate func(*Config)) *Device {
	t.Helper()
	tr := tree.New(tree.DefaultConfig())
	reg := component.NewRegistry(tr, component.Config{})
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := Build(tr, reg, cfg)
	require.NoError(t, err)
	return d
}

func getFloat(t *testing.T, tr *tree.Tree, path string) float64 {
	t.Helper()
	v, err := tr.Get(path)
	require.NoError(t, err)
	f, ok := v.Float()
	require.True(t, ok, "%s is not numeric", path)
	return f
}

func TestBuildLayout(t *testing.T) {
	d := buildDevice(t, nil)
	tr := d.Tree()

	for _, p := range []string{
		"/mboards/0/name",
		"/mboards/0/tick_rate",
		"/mboards/0/clock_source/value",
		"/mboards/0/sensors/temp",
		"/mboards/0/eeprom/mac-addr",
		"/mboards/0/rx_dsps/1/rate/value",
		"/mboards/0/tx_dsps/0/freq/value",
		"/blocks/0/Radio#1/gain/value",
		"/mboards/0/chdr/mtu",
		"/rx_dsp0/rate/value",
		"/tx_dsp1/freq/value",
		"/radio1/antenna/value",
	} {
		assert.True(t, tr.Exists(p), p)
	}

	assert.Equal(t, []string{
		"mb0", "rx_dsp0", "rx_dsp1", "tx_dsp0", "tx_dsp1", "0/Radio#0", "0/Radio#1", "chdr0",
	}, d.Components())
	require.Len(t, d.Blocks(), 2)
	assert.Equal(t, "0/Radio#1", d.Blocks()[1].String())

	mac, err := tr.Get("/mboards/0/eeprom/mac-addr")
	require.NoError(t, err)
	assert.True(t, mac.Equal(property.String("02:00:00:00:00:01")))
}

func TestDSPRateCoercion(t *testing.T) {
	d := buildDevice(t, nil)
	tr := d.Tree()

	// 200 MHz / 3 is the closest integer decimation to 70 MHz.
	require.NoError(t, tr.Set("/rx_dsp0/rate/value", property.Float(70e6)))
	assert.InDelta(t, 200e6/3, getFloat(t, tr, "/mboards/0/rx_dsps/0/rate/value"), 1e-6)

	require.NoError(t, tr.Set("/rx_dsp0/rate/value", property.Float(1)))
	assert.InDelta(t, 200e6/MaxDecim, getFloat(t, tr, "/rx_dsp0/rate/value"), 1e-6)

	err := tr.Set("/rx_dsp0/rate/value", property.Float(-5))
	assert.ErrorIs(t, err, tree.ErrValidation)

	require.NoError(t, tr.Set("/rx_dsp0/freq/value", property.Float(150e6)))
	assert.Equal(t, 100e6, getFloat(t, tr, "/rx_dsp0/freq/value"))
}

func TestTickRateRetunesDSPs(t *testing.T) {
	d := buildDevice(t, nil)
	tr := d.Tree()

	require.NoError(t, tr.Set("/rx_dsp0/rate/value", property.Float(25e6)))
	require.NoError(t, tr.Set("/rx_dsp0/freq/value", property.Float(80e6)))
	assert.Equal(t, 25e6, getFloat(t, tr, "/rx_dsp0/rate/value"))

	require.NoError(t, d.SetTickRate(100e6))
	rate, err := d.TickRate()
	require.NoError(t, err)
	assert.Equal(t, 100e6, rate)

	// Requested values are re-coerced against the new tick rate.
	assert.Equal(t, 25e6, getFloat(t, tr, "/rx_dsp0/rate/value"))
	assert.Equal(t, 50e6, getFloat(t, tr, "/rx_dsp0/freq/value"))

	// Raising it again restores the requested frequency.
	require.NoError(t, d.SetTickRate(200e6))
	assert.Equal(t, 80e6, getFloat(t, tr, "/rx_dsp0/freq/value"))

	err = d.SetTickRate(500e6)
	assert.ErrorIs(t, err, tree.ErrValidation)
	assert.Equal(t, 200e6, getFloat(t, tr, TickRatePath))
}

func TestTickRateAfterDSPUnregistered(t *testing.T) {
	d := buildDevice(t, nil)
	tr := d.Tree()

	require.NoError(t, tr.Set("/rx_dsp1/freq/value", property.Float(80e6)))
	require.NoError(t, d.registry.Unregister("rx_dsp0"))
	assert.False(t, tr.Exists("/mboards/0/rx_dsps/0/rate/value"))

	require.NoError(t, d.SetTickRate(100e6))
	rate, err := d.TickRate()
	require.NoError(t, err)
	assert.Equal(t, 100e6, rate)

	// The remaining DSPs are still retuned.
	assert.Equal(t, 50e6, getFloat(t, tr, "/rx_dsp1/freq/value"))
	require.NoError(t, d.Close())
}

func TestTickRateRollsBackOnDSPFailure(t *testing.T) {
	d := buildDevice(t, nil)
	tr := d.Tree()

	require.NoError(t, tr.Set("/rx_dsp0/freq/value", property.Float(10e6)))

	// A DSP subscriber that refuses any frequency below 9 MHz makes the
	// whole tick rate change fail.
	errRefused := errors.New("refused")
	_, err := tr.Subscribe("/rx_dsp0/freq/value", func(_ property.Tx, c property.Change) error {
		if f, _ := c.Value.Float(); f < 9e6 {
			return errRefused
		}
		return nil
	})
	require.NoError(t, err)

	err = d.SetTickRate(16e6)
	require.Error(t, err)
	assert.ErrorIs(t, err, errRefused)
	var pe *tree.PropagationError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, TickRatePath, pe.Origin.String())

	assert.Equal(t, 200e6, getFloat(t, tr, TickRatePath))
	assert.Equal(t, 10e6, getFloat(t, tr, "/rx_dsp0/freq/value"))
	assert.Equal(t, 1e6, getFloat(t, tr, "/rx_dsp0/rate/value"))
}

func TestRadioGainAndOffset(t *testing.T) {
	table := cal.NewGainTable("rx_gain", "sim", time.Unix(0, 0))
	table.Add(1e9, 1.0)
	table.Add(3e9, 3.0)

	d := buildDevice(t, func(c *Config) { c.GainTable = table })
	tr := d.Tree()

	assert.Equal(t, 1.0, getFloat(t, tr, "/radio0/gain/offset"))

	require.NoError(t, tr.Set("/radio0/freq/value", property.Float(2e9)))
	assert.Equal(t, 2.0, getFloat(t, tr, "/blocks/0/Radio#0/gain/offset"))
	assert.Equal(t, 1.0, getFloat(t, tr, "/radio1/gain/offset"))

	require.NoError(t, tr.Set("/radio0/gain/value", property.Float(80)))
	assert.Equal(t, MaxGain, getFloat(t, tr, "/radio0/gain/value"))
	require.NoError(t, tr.Set("/radio0/gain/value", property.Float(10.3)))
	assert.Equal(t, 10.5, getFloat(t, tr, "/radio0/gain/value"))

	err := tr.Set("/radio0/gain/offset", property.Float(0))
	assert.ErrorIs(t, err, tree.ErrValidation, "offset is read-only")

	err = tr.Set("/radio0/antenna/value", property.String("LNA"))
	assert.ErrorIs(t, err, tree.ErrValidation)
}

func TestCHDRSettings(t *testing.T) {
	d := buildDevice(t, nil)
	tr := d.Tree()

	require.NoError(t, tr.Set("/mboards/0/chdr/mtu", property.Int(1501)))
	v, err := tr.Get("/mboards/0/chdr/mtu")
	require.NoError(t, err)
	assert.True(t, v.Equal(property.Int(1504)))

	assert.ErrorIs(t, tr.Set("/mboards/0/chdr/mtu", property.Int(20000)), tree.ErrValidation)
	assert.ErrorIs(t, tr.Set("/mboards/0/chdr/width", property.Int(128)), tree.ErrValidation)
}

func TestEEPROMWritesReachBus(t *testing.T) {
	bus := eeprom.NewMemoryI2C()
	d := buildDevice(t, func(c *Config) {
		c.Bus = bus
		c.EEPROMMap = eeprom.MapB000
	})
	tr := d.Tree()

	// An erased part loads with an unprogrammed clock rate.
	v, err := tr.Get("/mboards/0/eeprom/mcr")
	require.NoError(t, err)
	assert.True(t, v.Equal(property.String("")))

	require.NoError(t, tr.Set("/mboards/0/eeprom/mcr", property.String("52e6")))
	contents, err := eeprom.Load(bus, eeprom.MapB000)
	require.NoError(t, err)
	assert.Equal(t, "52000000", contents["mcr"])
}

func TestBuildFailureCleansUp(t *testing.T) {
	tr := tree.New(tree.DefaultConfig())
	reg := component.NewRegistry(tr, component.Config{})
	// Occupy an alias path so the second DSP alias fails.
	_, err := tr.CreateNode("/rx_dsp1", property.Int(0), nil, nil)
	require.NoError(t, err)

	_, err = Build(tr, reg, DefaultConfig())
	assert.ErrorIs(t, err, tree.ErrDuplicatePath)

	assert.Equal(t, 0, reg.Len())
	assert.False(t, tr.Exists("/mboards"))
	assert.Empty(t, tr.Aliases())
	assert.Equal(t, 1, tr.Len())
}

func TestClose(t *testing.T) {
	d := buildDevice(t, nil)
	tr := d.Tree()
	h, err := tr.Resolve("/radio0/gain/value")
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Aliases())
	_, err = h.Get()
	assert.ErrorIs(t, err, tree.ErrStaleReference)
}

func TestSimulator(t *testing.T) {
	d := buildDevice(t, func(c *Config) { c.ClockSource = "external" })
	tr := d.Tree()

	sim := NewSimulator(tr, SimulatorConfig{Interval: time.Millisecond, AmbientTemp: 40})
	require.NoError(t, sim.Step())

	temp := getFloat(t, tr, TempSensorPath)
	assert.InDelta(t, 40, temp, 1)
	locked, err := tr.Get(RefLockedPath)
	require.NoError(t, err)
	assert.True(t, locked.Equal(property.Bool(false)))

	require.NoError(t, tr.Set(ClockSourcePath, property.String("internal")))
	require.NoError(t, sim.Step())
	locked, err = tr.Get(RefLockedPath)
	require.NoError(t, err)
	assert.True(t, locked.Equal(property.Bool(true)))

	// Sensors are read-only to clients.
	assert.ErrorIs(t, tr.Set(TempSensorPath, property.Float(0)), tree.ErrValidation)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sim.Run(ctx), context.DeadlineExceeded)
}

func TestSeed(t *testing.T) {
	d := buildDevice(t, nil)
	tr := d.Tree()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
values:
  /mboards/0/tick_rate: 100000000
  /radio0/gain/value: 20
nodes:
  - path: /user/site
    kind: string
    value: roof
    read_only: true
aliases:
  /rx0: /mboards/0/rx_dsps/0
`), 0o644))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.NoError(t, seed.Apply(tr))

	assert.Equal(t, 100e6, getFloat(t, tr, TickRatePath))
	assert.Equal(t, 20.0, getFloat(t, tr, "/blocks/0/Radio#0/gain/value"))
	v, err := tr.Get("/user/site")
	require.NoError(t, err)
	assert.True(t, v.Equal(property.String("roof")))
	assert.True(t, tr.Exists("/rx0/rate/value"))

	bad, err := ParseSeed([]byte("values:\n  /mboards/0/tick_rate: fast\n  /radio0/gain/value: 30\n"))
	require.NoError(t, err)
	assert.Error(t, bad.Apply(tr))
	assert.Equal(t, 20.0, getFloat(t, tr, "/radio0/gain/value"), "failed seed leaves no partial writes")
}
