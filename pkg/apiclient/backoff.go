package apiclient

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes the pause before the n-th bootstrap retry.
// Attempt starts at 1 for the first retry.
type Backoff interface {
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier per attempt, spread by
// JitterFactor and capped at MaxInterval.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = 250 * time.Millisecond
	}
	ceiling := e.MaxInterval
	if ceiling == 0 {
		ceiling = 5 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if e.JitterFactor > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.JitterFactor
	}
	if interval > float64(ceiling) {
		interval = float64(ceiling)
	}
	return time.Duration(interval)
}

// FixedBackoff waits the same Interval before every retry. A zero Interval
// retries immediately.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoff keeps a failing bootstrap under two seconds end to end.
func DefaultBackoff() Backoff {
	return ExponentialBackoff{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		JitterFactor:    0.1,
	}
}
