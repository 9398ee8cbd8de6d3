package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/radiotree/radiotree-go/pkg/eeprom"
	"github.com/radiotree/radiotree-go/pkg/transport"
	"github.com/radiotree/radiotree-go/pkg/usrp"
)

// Config holds the daemon configuration.
type Config struct {
	ConfigFile string `yaml:"-"`

	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	// Serial overrides the serial programmed into the EEPROM.
	Serial string `yaml:"serial"`

	Interactive bool          `yaml:"interactive"`
	Simulate    bool          `yaml:"simulate"`
	SimInterval time.Duration `yaml:"sim_interval"`
	ExternalRef bool          `yaml:"external_ref"`

	Advertise bool   `yaml:"advertise"`
	Interface string `yaml:"interface"`

	Seed      string `yaml:"seed"`
	StateFile string `yaml:"state_file"`
	EventLog  string `yaml:"event_log"`
	CalDir    string `yaml:"cal_dir"`

	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`

	EEPROMMap string      `yaml:"eeprom_map"`
	Device    usrp.Config `yaml:"device"`
}

func defaultConfig() Config {
	return Config{
		Listen:      fmt.Sprintf(":%d", transport.DefaultPort),
		LogLevel:    "info",
		Simulate:    true,
		SimInterval: usrp.DefaultSimulatorConfig().Interval,
		Advertise:   true,
		EEPROMMap:   eeprom.MapN100.String(),
		Device:      usrp.DefaultConfig(),
	}
}

// newFlagSet binds the command-line flags to cfg.
func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("radiotree-device", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "Control port listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.Serial, "serial", cfg.Serial, "Device serial (overrides the EEPROM)")
	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Start the interactive console")
	fs.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "Drive the sensor nodes with simulated readings")
	fs.DurationVar(&cfg.SimInterval, "sim-interval", cfg.SimInterval, "Sensor update interval")
	fs.BoolVar(&cfg.ExternalRef, "external-ref", cfg.ExternalRef, "Simulate a connected external reference")
	fs.BoolVar(&cfg.Advertise, "advertise", cfg.Advertise, "Advertise the device over mDNS")
	fs.StringVar(&cfg.Interface, "interface", cfg.Interface, "Network interface for mDNS (default: all)")
	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "YAML file with extra nodes, values and aliases")
	fs.StringVar(&cfg.StateFile, "state", cfg.StateFile, "Restore writable nodes from this file and save them on exit")
	fs.StringVar(&cfg.EventLog, "event-log", cfg.EventLog, "Write tree and protocol events to this .rtlog file")
	fs.StringVar(&cfg.CalDir, "cal-dir", cfg.CalDir, "Calibration data directory")
	fs.StringVar(&cfg.AMQPURL, "amqp-url", cfg.AMQPURL, "Publish tree changes to this AMQP broker")
	fs.StringVar(&cfg.AMQPExchange, "amqp-exchange", cfg.AMQPExchange, "AMQP exchange (default radiotree.events)")
	fs.StringVar(&cfg.EEPROMMap, "eeprom-map", cfg.EEPROMMap, "EEPROM layout: n100, b000, e100")
	fs.StringVar(&cfg.Device.Name, "name", cfg.Device.Name, "Motherboard name")
	fs.Float64Var(&cfg.Device.TickRate, "tick-rate", cfg.Device.TickRate, "Initial master clock rate in Hz")
	fs.IntVar(&cfg.Device.NumRxDSPs, "rx-dsps", cfg.Device.NumRxDSPs, "Number of RX DSP chains")
	fs.IntVar(&cfg.Device.NumTxDSPs, "tx-dsps", cfg.Device.NumTxDSPs, "Number of TX DSP chains")
	fs.IntVar(&cfg.Device.NumRadios, "radios", cfg.Device.NumRadios, "Number of radio blocks")
	return fs
}

// loadConfig parses args, then overlays the configuration file (if any).
// Flags given on the command line win over the file.
func loadConfig(args []string) (Config, error) {
	cfg := defaultConfig()
	fs := newFlagSet(&cfg)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.ConfigFile != "" {
		if err := readConfigFile(cfg.ConfigFile, &cfg); err != nil {
			return cfg, err
		}
		var err error
		fs.Visit(func(f *flag.Flag) {
			if err == nil {
				err = fs.Set(f.Name, f.Value.String())
			}
		})
		if err != nil {
			return cfg, err
		}
	}

	if err := cfg.finish(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	file := cfg.ConfigFile
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ConfigFile = file
	return nil
}

// finish validates cfg and fills the fields derived from other fields.
func (cfg *Config) finish() error {
	m, err := eeprom.ParseMap(cfg.EEPROMMap)
	if err != nil {
		return err
	}
	cfg.Device.EEPROMMap = m
	if cfg.Serial != "" {
		cfg.Device.EEPROM = cfg.Device.EEPROM.Clone()
		cfg.Device.EEPROM["serial"] = cfg.Serial
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", cfg.LogLevel)
	}
	if cfg.Listen == "" {
		return errors.New("listen address must not be empty")
	}
	if cfg.Device.NumRxDSPs < 0 || cfg.Device.NumTxDSPs < 0 || cfg.Device.NumRadios < 0 {
		return errors.New("channel counts must not be negative")
	}
	if cfg.Simulate && cfg.SimInterval <= 0 {
		return fmt.Errorf("sim interval must be positive, got %s", cfg.SimInterval)
	}
	return nil
}
