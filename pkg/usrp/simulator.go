package usrp

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

// Simulator writes sensor readings into the tree the way hardware
// interrupts would: from its own goroutine, through SetInternal.
type Simulator struct {
	tree   *tree.Tree
	config SimulatorConfig
	logger *slog.Logger

	mu   sync.Mutex
	temp float64
	rng  *rand.Rand
}

// NewSimulator creates a simulator for a device built into t.
func NewSimulator(t *tree.Tree, cfg SimulatorConfig) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSimulatorConfig().Interval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		tree:   t,
		config: cfg,
		logger: logger,
		temp:   cfg.AmbientTemp,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

// Run updates the sensors every interval until ctx is done.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		if err := s.Step(); err != nil {
			s.logger.Warn("sensor update failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Step performs one sensor update.
func (s *Simulator) Step() error {
	s.mu.Lock()
	// Random walk pulled back toward ambient.
	s.temp += 0.2*(s.config.AmbientTemp-s.temp) + s.rng.NormFloat64()*0.1
	temp := math.Round(s.temp*10) / 10
	s.mu.Unlock()

	if err := s.tree.SetInternal(TempSensorPath, property.Float(temp)); err != nil {
		return err
	}

	source, err := s.tree.Get(ClockSourcePath)
	if err != nil {
		return err
	}
	locked := true
	if src, _ := source.Str(); src == "external" {
		locked = s.config.ExternalRef
	}
	return s.tree.SetInternal(RefLockedPath, property.Bool(locked))
}
