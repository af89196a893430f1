// Package simulation holds the randomized behavior of the demo endpoints:
// the failure probability of the product listing and the artificial delays.
package simulation

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"demoapi/internal/config"
)

// Source yields floats uniformly distributed in [0, 1).
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Fixed is a Source that always returns the same value. Useful in tests.
type Fixed float64

func (f Fixed) Float64() float64 { return float64(f) }

// Policy decides when the demo endpoints fail and how long they wait.
type Policy struct {
	FailureRate float64
	ListDelay   time.Duration
	SlowMin     time.Duration
	SlowMax     time.Duration
	Rand        Source
}

var ErrInvalidPolicy = errors.New("invalid simulation policy")

// NewPolicy builds a policy from configuration using the process-wide random source.
func NewPolicy(c config.SimulationConfig) (*Policy, error) {
	p := &Policy{
		FailureRate: c.FailureRate,
		ListDelay:   c.ListDelay,
		SlowMin:     c.SlowMin,
		SlowMax:     c.SlowMax,
		Rand:        globalSource{},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the probability and delay bounds.
func (p *Policy) Validate() error {
	if p.FailureRate < 0 || p.FailureRate > 1 {
		return ErrInvalidPolicy
	}
	if p.ListDelay < 0 || p.SlowMin < 0 || p.SlowMax < p.SlowMin {
		return ErrInvalidPolicy
	}
	return nil
}

func (p *Policy) float() float64 {
	if p.Rand == nil {
		return rand.Float64()
	}
	return p.Rand.Float64()
}

// ShouldFail draws once and reports whether the simulated backend fails.
func (p *Policy) ShouldFail() bool {
	return p.float() < p.FailureRate
}

// SlowDelay returns a duration uniformly drawn from [SlowMin, SlowMax).
func (p *Policy) SlowDelay() time.Duration {
	span := p.SlowMax - p.SlowMin
	return p.SlowMin + time.Duration(p.float()*float64(span))
}

// Pick returns an index in [0, n).
func (p *Policy) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	i := int(p.float() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
