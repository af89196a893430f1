package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demoapi/internal/config"
)

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(config.SimulationConfig{FailureRate: 0.2, ListDelay: 100 * time.Millisecond, SlowMin: time.Second, SlowMax: 3 * time.Second})
	require.NoError(t, err)
	assert.NotNil(t, p.Rand)

	_, err = NewPolicy(config.SimulationConfig{FailureRate: 2})
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = NewPolicy(config.SimulationConfig{SlowMin: 2 * time.Second, SlowMax: time.Second})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestShouldFail(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		draw float64
		want bool
	}{
		{"below rate fails", 0.2, 0.19, true},
		{"at rate succeeds", 0.2, 0.2, false},
		{"zero rate never fails", 0, 0, false},
		{"full rate always fails", 1, 0.999, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Policy{FailureRate: tt.rate, Rand: Fixed(tt.draw)}
			assert.Equal(t, tt.want, p.ShouldFail())
		})
	}
}

func TestShouldFailConvergesToRate(t *testing.T) {
	p := &Policy{FailureRate: 0.2, Rand: globalSource{}}
	const n = 20000
	failures := 0
	for i := 0; i < n; i++ {
		if p.ShouldFail() {
			failures++
		}
	}
	assert.InDelta(t, 0.2, float64(failures)/n, 0.02)
}

func TestSlowDelay(t *testing.T) {
	p := &Policy{SlowMin: time.Second, SlowMax: 3 * time.Second}

	p.Rand = Fixed(0)
	assert.Equal(t, time.Second, p.SlowDelay())

	p.Rand = Fixed(0.5)
	assert.Equal(t, 2*time.Second, p.SlowDelay())

	p.Rand = globalSource{}
	for i := 0; i < 1000; i++ {
		d := p.SlowDelay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestPick(t *testing.T) {
	p := &Policy{Rand: Fixed(0.99)}
	assert.Equal(t, 2, p.Pick(3))
	p.Rand = Fixed(0)
	assert.Equal(t, 0, p.Pick(3))
	assert.Equal(t, 0, p.Pick(0))
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
