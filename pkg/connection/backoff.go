package connection

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default reconnection backoff.
const (
	InitialBackoff    = 1 * time.Second
	MaxBackoff        = 60 * time.Second
	BackoffMultiplier = 2.0
	JitterFactor      = 0.25
)

// BackoffConfig configures the reconnection delay sequence.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64

	// Jitter randomizes each delay by up to ±Jitter of its base value.
	Jitter float64

	// MaxElapsed stops retrying after this long. Zero retries forever.
	MaxElapsed time.Duration
}

// DefaultBackoffConfig returns 1s doubling up to 60s with 25% jitter.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    InitialBackoff,
		Max:        MaxBackoff,
		Multiplier: BackoffMultiplier,
		Jitter:     JitterFactor,
	}
}

// NewBackOff builds an exponential backoff from c.
func (c BackoffConfig) NewBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.Initial > 0 {
		b.InitialInterval = c.Initial
	}
	if c.Max > 0 {
		b.MaxInterval = c.Max
	}
	if c.Multiplier > 0 {
		b.Multiplier = c.Multiplier
	}
	b.RandomizationFactor = c.Jitter
	b.MaxElapsedTime = c.MaxElapsed
	b.Reset()
	return b
}

// Sequence returns the delays without jitter until the maximum is reached.
func (c BackoffConfig) Sequence() []time.Duration {
	c.Jitter = 0
	c.MaxElapsed = 0
	b := c.NewBackOff()
	var seq []time.Duration
	for {
		d := b.NextBackOff()
		seq = append(seq, d)
		if d >= b.MaxInterval {
			return seq
		}
	}
}
