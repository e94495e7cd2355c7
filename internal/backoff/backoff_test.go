package backoff

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelaySequence(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		attempt int
		random  float64
		want    time.Duration
	}{
		{1, 0, time.Second},
		{2, 0, 2 * time.Second},
		{3, 0, 4 * time.Second},
		{4, 0, 8 * time.Second},
		{5, 0, 8 * time.Second},
		{1, 0.5, 1100 * time.Millisecond},
		{2, 0.99, 2396 * time.Millisecond},
		{4, 0.99, 8 * time.Second},
		{0, 0, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.attempt, tt.random), "attempt %d random %v", tt.attempt, tt.random)
	}
}

func TestDelayBounds(t *testing.T) {
	p := DefaultPolicy()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		attempt := 1 + rng.Intn(6)
		d := p.Delay(attempt, rng.Float64())

		floor := time.Duration(float64(p.Initial) * float64(int(1)<<(attempt-1)))
		if floor > p.Max {
			floor = p.Max
		}
		assert.GreaterOrEqual(t, d, floor)
		assert.LessOrEqual(t, d, p.Max)
	}
}

func TestDelayClampsInputs(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Factor: 0.5, Jitter: 4}

	assert.Equal(t, 100*time.Millisecond, p.Delay(3, 0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1, 5))
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepCompletes(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	assert.NoError(t, Sleep(context.Background(), 0))
}
