package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiotree/radiotree-go/pkg/eeprom"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/usrp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, ":49200", cfg.Listen)
	assert.True(t, cfg.Simulate)
	assert.True(t, cfg.Advertise)
	assert.Equal(t, eeprom.MapN100, cfg.Device.EEPROMMap)
	assert.Equal(t, 2, cfg.Device.NumRxDSPs)
}

func TestLoadConfigFileAndFlags(t *testing.T) {
	path := writeFile(t, "device.yaml", `
listen: 127.0.0.1:5000
log_level: debug
sim_interval: 250ms
serial: "30A1F2"
device:
  name: bench
  rx_dsps: 4
  tick_rate: 100000000
`)

	cfg, err := loadConfig([]string{"-config", path, "-rx-dsps", "3"})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.SimInterval)
	assert.Equal(t, "bench", cfg.Device.Name)
	assert.Equal(t, 100e6, cfg.Device.TickRate)
	assert.Equal(t, 3, cfg.Device.NumRxDSPs, "command-line flag wins over the file")
	assert.Equal(t, "30A1F2", cfg.Device.EEPROM["serial"])
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	_, err := loadConfig([]string{"-log-level", "loud"})
	assert.Error(t, err)

	_, err = loadConfig([]string{"-eeprom-map", "x310"})
	assert.ErrorIs(t, err, eeprom.ErrUnknownMap)

	_, err = loadConfig([]string{"-rx-dsps", "-1"})
	assert.Error(t, err)

	_, err = loadConfig([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := defaultConfig()
	cfg.Listen = "127.0.0.1:0"
	cfg.Simulate = false
	cfg.Advertise = false
	require.NoError(t, cfg.finish())
	return cfg
}

func TestDaemonRestoresSavedState(t *testing.T) {
	cfg := testConfig(t)
	cfg.StateFile = filepath.Join(t.TempDir(), "state.json")

	d, err := newDaemon(cfg, quietLogger())
	require.NoError(t, err)
	require.NoError(t, d.tree.Set(usrp.TickRatePath, property.Float(100e6)))
	require.NoError(t, d.tree.Set(usrp.MboardRoot+"/name", property.String("bench")))
	require.NoError(t, d.save())

	d2, err := newDaemon(cfg, quietLogger())
	require.NoError(t, err)
	rate, err := d2.device.TickRate()
	require.NoError(t, err)
	assert.Equal(t, 100e6, rate)
	assert.Equal(t, "bench", d2.readString(usrp.MboardRoot+"/name"))
}

func TestDaemonAppliesSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed = writeFile(t, "seed.yaml", `
nodes:
  - path: /user/site
    kind: string
    value: roof
aliases:
  /site: /user/site
`)
	d, err := newDaemon(cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "roof", d.readString("/site"))
}

func TestDaemonRunSavesOnShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.StateFile = filepath.Join(t.TempDir(), "state.json")
	cfg.EventLog = filepath.Join(t.TempDir(), "events.rtlog")

	d, err := newDaemon(cfg, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, d.run(ctx, cancel))

	_, err = os.Stat(cfg.StateFile)
	assert.NoError(t, err, "state file written on shutdown")
	info, err := os.Stat(cfg.EventLog)
	require.NoError(t, err)
	assert.Positive(t, info.Size(), "node creation events logged")
}

func TestConsoleCommands(t *testing.T) {
	cfg := testConfig(t)
	cfg.StateFile = filepath.Join(t.TempDir(), "state.json")
	d, err := newDaemon(cfg, quietLogger())
	require.NoError(t, err)

	var out bytes.Buffer
	c := newConsoleWithOutput(d, &out)

	run := func(line string) string {
		out.Reset()
		assert.False(t, c.exec(line))
		return out.String()
	}

	assert.Contains(t, run("set /mboards/0/tick_rate 100e6"), "/mboards/0/tick_rate = 1e+08")
	assert.Contains(t, run("get /mboards/0/tick_rate"), "1e+08 Hz (100.0 MHz)")
	assert.Contains(t, run("get /nope"), "Error:")
	assert.Contains(t, run("set /mboards/0/tick_rate fast"), "Write failed")
	assert.Contains(t, run("ls /mboards/0"), "tick_rate")
	assert.Contains(t, run("tree /mboards/0/chdr"), "mtu")
	assert.Contains(t, run("get /mboards/0/rx_dsps/*/rate/value"), "1/rate/value")
	assert.Contains(t, run("components"), "rx_dsp0")
	assert.Contains(t, run("alias /tick /mboards/0/tick_rate"), "/tick -> /mboards/0/tick_rate")
	assert.Contains(t, run("get /tick"), "1e+08")
	assert.Contains(t, run("unalias /tick"), "removed alias /tick")
	assert.Contains(t, run("status"), "Tick rate:    100.0 MHz")
	assert.Contains(t, run("save"), "Saved to")
	assert.Contains(t, run("frobnicate"), "Unknown command")
	assert.Empty(t, run("   "))

	assert.True(t, c.exec("quit"))
}
