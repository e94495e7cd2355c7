// Package backoff computes retry delays: exponential growth with additive
// jitter, clamped to a maximum.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/codefionn/toolrelay/internal/consts"
)

// Policy defines the parameters of the delay calculation.
type Policy struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
	// Jitter is the largest fraction of the base delay added at random.
	Jitter float64
}

// DefaultPolicy waits 1s, 2s, 4s, ... up to 8s with up to 20% jitter.
func DefaultPolicy() Policy {
	return Policy{
		Initial: consts.DefaultBackoffInitial,
		Factor:  consts.DefaultBackoffFactor,
		Max:     consts.DefaultBackoffMax,
		Jitter:  consts.DefaultBackoffJitter,
	}
}

// Delay returns the wait before retry number attempt (starting at 1):
// min(Max, base + base*Jitter*randomValue) with base = Initial*Factor^(attempt-1).
// Jitter only ever adds, so the delay is never below base unless Max is.
// randomValue must be in [0, 1).
func (p Policy) Delay(attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}

	base := float64(p.Initial) * math.Pow(factor, exp)
	jitter := base * clampUnit(p.Jitter) * clampUnit(randomValue)
	total := base + jitter
	if p.Max > 0 {
		total = math.Min(float64(p.Max), total)
	}
	if total < 0 {
		return 0
	}
	return time.Duration(math.Round(total))
}

// Next is Delay with a pseudo-random jitter value.
func (p Policy) Next(attempt int) time.Duration {
	return p.Delay(attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
