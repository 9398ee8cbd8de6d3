package usrp

import (
	"log/slog"
	"time"

	"github.com/radiotree/radiotree-go/pkg/cal"
	"github.com/radiotree/radiotree-go/pkg/eeprom"
)

// Tick rate limits of the simulated motherboard, in Hz.
const (
	MinTickRate = 1e6
	MaxTickRate = 250e6
)

// Radio front-end limits.
const (
	MinGain    = 0.0
	MaxGain    = 76.0
	GainStep   = 0.5
	MinRFFreq  = 70e6
	MaxRFFreq  = 6e9
	MaxDecim   = 1024
	DefaultMTU = 8000
)

// Config describes the simulated device.
type Config struct {
	// Name is the motherboard name shown at /mboards/0/name.
	Name string `yaml:"name"`

	// TickRate is the initial master clock rate in Hz.
	TickRate float64 `yaml:"tick_rate"`

	// ClockSource is one of internal, external, gpsdo.
	ClockSource string `yaml:"clock_source"`

	NumRxDSPs int `yaml:"rx_dsps"`
	NumTxDSPs int `yaml:"tx_dsps"`
	NumRadios int `yaml:"radios"`

	// MTU and Width are the CHDR transport settings.
	MTU   int `yaml:"mtu"`
	Width int `yaml:"chdr_width"`

	// EEPROMMap selects the EEPROM layout. Bus defaults to an in-memory
	// part programmed with EEPROM.
	EEPROMMap eeprom.Map    `yaml:"-"`
	Bus       eeprom.I2C    `yaml:"-"`
	EEPROM    eeprom.EEPROM `yaml:"eeprom"`

	// GainTable, when set, drives each radio's gain/offset node.
	GainTable *cal.GainTable `yaml:"-"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a two-channel device.
func DefaultConfig() Config {
	return Config{
		Name:        "radiotree-sim",
		TickRate:    200e6,
		ClockSource: "internal",
		NumRxDSPs:   2,
		NumTxDSPs:   2,
		NumRadios:   2,
		MTU:         DefaultMTU,
		Width:       64,
		EEPROMMap:   eeprom.MapN100,
		EEPROM: eeprom.EEPROM{
			"rev":      "1",
			"product":  "1",
			"mac-addr": "02:00:00:00:00:01",
			"ip-addr":  "192.168.10.2",
			"gpsdo":    "none",
			"name":     "radiotree-sim",
		},
	}
}

// SimulatorConfig configures the sensor simulator.
type SimulatorConfig struct {
	// Interval between sensor updates.
	Interval time.Duration

	// AmbientTemp is the temperature the board settles at, in degrees C.
	AmbientTemp float64

	// ExternalRef reports whether an external reference is connected.
	ExternalRef bool

	Logger *slog.Logger
}

// DefaultSimulatorConfig returns the default simulator settings.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval:    time.Second,
		AmbientTemp: 42,
	}
}
