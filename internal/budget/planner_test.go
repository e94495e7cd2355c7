package budget

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPlanInvariants(t *testing.T, plan Plan) {
	t.Helper()
	assert.GreaterOrEqual(t, plan.History, 0)
	assert.GreaterOrEqual(t, plan.Files, 0)
	assert.GreaterOrEqual(t, plan.Reasoning, 0)
	assert.GreaterOrEqual(t, plan.Output, 0)
	assert.LessOrEqual(t, plan.Sum(), plan.Effective)
	assert.LessOrEqual(t, float64(plan.Sum()), float64(plan.Total)*(1-plan.SafetyMargin)+1e-6)
}

func TestPlanDefaultSplit(t *testing.T) {
	p := NewPlanner(DefaultOptions())

	plan := p.Plan(100000, ClassMedium, false)

	assert.Equal(t, 93000, plan.Effective)
	assert.Equal(t, 6000, plan.Reasoning)
	assert.Equal(t, 4096, plan.Output)
	remaining := 93000 - 6000 - 4096
	assert.Equal(t, remaining*70/100, plan.Files)
	assert.Equal(t, remaining-plan.Files, plan.History)
	assert.False(t, plan.Clamped)
	assertPlanInvariants(t, plan)
}

func TestPlanClassTable(t *testing.T) {
	p := NewPlanner(Options{ReasoningCeiling: 50000})

	tests := []struct {
		class ReasoningClass
		want  int
	}{
		{ClassLow, 2000},
		{ClassMedium, 6000},
		{ClassHigh, 12000},
		{ClassMax, 50000},
	}
	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			plan := p.Plan(400000, tt.class, false)
			assert.Equal(t, tt.want, plan.Reasoning)
			assertPlanInvariants(t, plan)
		})
	}
}

func TestPlanClampsReasoningToWindow(t *testing.T) {
	p := NewPlanner(Options{SafetyMargin: 0.07, ReasoningCeiling: 50000})

	plan := p.Plan(8000, ClassMax, false)

	assert.Equal(t, 7440, plan.Effective)
	assert.Equal(t, 7440-1000, plan.Reasoning)
	assert.Equal(t, 1000, plan.Output)
	assert.Zero(t, plan.Files)
	assert.Zero(t, plan.History)
	assert.True(t, plan.Clamped)
	assertPlanInvariants(t, plan)
}

func TestPlanStreamingReservesMoreOutput(t *testing.T) {
	p := NewPlanner(DefaultOptions())

	blocking := p.Plan(200000, ClassHigh, false)
	streaming := p.Plan(200000, ClassHigh, true)

	assert.Equal(t, 4096, blocking.Output)
	assert.Equal(t, 8192, streaming.Output)
	assert.Less(t, streaming.Files, blocking.Files)
	assertPlanInvariants(t, streaming)
}

func TestPlanTinyWindowNeverFails(t *testing.T) {
	p := NewPlanner(DefaultOptions())

	for _, total := range []int{-5, 0, 1, 10, 500, 1075, 1076, 2000} {
		plan := p.Plan(total, ClassHigh, true)
		if total <= 0 {
			assert.Zero(t, plan.Sum(), "total %d", total)
			assert.Zero(t, plan.Effective, "total %d", total)
			continue
		}
		assertPlanInvariants(t, plan)
	}

	plan := p.Plan(500, ClassHigh, false)
	assert.Equal(t, 465, plan.Effective)
	assert.Equal(t, 465, plan.Output)
	assert.Zero(t, plan.Reasoning)
}

func TestPlanIsIdempotent(t *testing.T) {
	p := NewPlanner(DefaultOptions())

	first := p.Plan(123456, ClassHigh, true)
	second := p.Plan(123456, ClassHigh, true)

	assert.Equal(t, first, second)
}

func TestPlanInvariantsRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		opts := Options{
			SafetyMargin:     rng.Float64() * 0.5,
			MinOutputTokens:  rng.Intn(5000),
			OutputTokens:     1 + rng.Intn(20000),
			FileShare:        rng.Float64(),
			ReasoningCeiling: rng.Intn(200000),
		}
		p := NewPlanner(opts)
		class := Classes[rng.Intn(len(Classes))]
		total := rng.Intn(1_000_000)

		plan := p.Plan(total, class, rng.Intn(2) == 0)
		assertPlanInvariants(t, plan)
	}
}

func TestWithReasoningCeiling(t *testing.T) {
	base := NewPlanner(DefaultOptions())

	none := base.WithReasoningCeiling(0)
	plan := none.Plan(100000, ClassMax, false)
	assert.Zero(t, plan.Reasoning)
	assert.Greater(t, plan.Files, base.Plan(100000, ClassMax, false).Files)

	capped := base.WithReasoningCeiling(4000)
	assert.Equal(t, 4000, capped.ClassTokens(ClassHigh))
	assert.Equal(t, 2000, capped.ClassTokens(ClassLow))
	assert.Equal(t, 4000, capped.ClassTokens(ClassMax))

	// The original planner is untouched.
	assert.Equal(t, 12000, base.ClassTokens(ClassHigh))
}

func TestNewPlannerNormalizesOptions(t *testing.T) {
	p := NewPlanner(Options{SafetyMargin: 1.5, FileShare: -1, ClassTokens: map[ReasoningClass]int{ClassLow: 1500}})
	opts := p.Options()

	assert.InDelta(t, 0.07, opts.SafetyMargin, 1e-9)
	assert.InDelta(t, 0.70, opts.FileShare, 1e-9)
	assert.Equal(t, 1500, opts.ClassTokens[ClassLow])
	assert.Equal(t, 6000, opts.ClassTokens[ClassMedium])
}

func TestParseClass(t *testing.T) {
	c, err := ParseClass(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, ClassHigh, c)

	_, err = ParseClass("extreme")
	assert.Error(t, err)
}

func TestClassEffort(t *testing.T) {
	assert.Equal(t, "low", ClassLow.Effort())
	assert.Equal(t, "medium", ClassMedium.Effort())
	assert.Equal(t, "high", ClassMax.Effort())
}
