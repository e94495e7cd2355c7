package budget

import (
	"math"

	"github.com/codefionn/toolrelay/internal/consts"
)

// Plan is the token allocation for one request. The four budgets never sum
// above Effective, and Effective never exceeds Total*(1-SafetyMargin).
type Plan struct {
	Total        int            `json:"total_context_window"`
	SafetyMargin float64        `json:"safety_margin"`
	Effective    int            `json:"effective_window"`
	Class        ReasoningClass `json:"reasoning_class"`
	History      int            `json:"history_budget"`
	Files        int            `json:"file_budget"`
	Reasoning    int            `json:"reasoning_budget"`
	Output       int            `json:"output_budget"`
	// Clamped is set when the class budget or output did not fit and was reduced.
	Clamped bool `json:"clamped"`
}

// Sum returns the total allocated tokens.
func (p Plan) Sum() int {
	return p.History + p.Files + p.Reasoning + p.Output
}

// Options configures a Planner. Zero fields take their defaults.
type Options struct {
	SafetyMargin          float64
	MinOutputTokens       int
	OutputTokens          int
	StreamingOutputTokens int
	FileShare             float64
	ClassTokens           map[ReasoningClass]int
	// ReasoningCeiling caps every class and is the budget of ClassMax.
	ReasoningCeiling int
	// DisableReasoning forces a zero reasoning budget, for models that
	// cannot reason.
	DisableReasoning bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		SafetyMargin:          consts.DefaultSafetyMargin,
		MinOutputTokens:       consts.DefaultMinOutputTokens,
		OutputTokens:          consts.DefaultOutputTokens,
		StreamingOutputTokens: consts.DefaultStreamingOutputTokens,
		FileShare:             consts.DefaultFileShare,
		ClassTokens:           DefaultClassTokens(),
		ReasoningCeiling:      consts.DefaultMaxReasoningTokens,
	}
}

// Planner splits a context window into history, file, reasoning and output
// budgets. It holds no mutable state and is safe for concurrent use.
type Planner struct {
	opts Options
}

// NewPlanner normalizes opts and returns a Planner.
func NewPlanner(opts Options) *Planner {
	def := DefaultOptions()
	if opts.SafetyMargin < 0 || opts.SafetyMargin >= 1 || math.IsNaN(opts.SafetyMargin) {
		opts.SafetyMargin = def.SafetyMargin
	}
	if opts.MinOutputTokens <= 0 {
		opts.MinOutputTokens = def.MinOutputTokens
	}
	if opts.OutputTokens <= 0 {
		opts.OutputTokens = def.OutputTokens
	}
	if opts.StreamingOutputTokens <= 0 {
		opts.StreamingOutputTokens = opts.OutputTokens
	}
	if opts.FileShare < 0 || opts.FileShare > 1 || math.IsNaN(opts.FileShare) {
		opts.FileShare = def.FileShare
	}
	classTokens := DefaultClassTokens()
	for class, tokens := range opts.ClassTokens {
		if class != ClassMax && tokens >= 0 {
			classTokens[class] = tokens
		}
	}
	opts.ClassTokens = classTokens
	if opts.ReasoningCeiling < 0 {
		opts.ReasoningCeiling = 0
	}
	return &Planner{opts: opts}
}

// Options returns the normalized options.
func (p *Planner) Options() Options {
	opts := p.opts
	opts.ClassTokens = make(map[ReasoningClass]int, len(p.opts.ClassTokens))
	for k, v := range p.opts.ClassTokens {
		opts.ClassTokens[k] = v
	}
	return opts
}

// WithReasoningCeiling returns a planner that resolves ClassMax to ceiling
// and caps every class at it. A ceiling of zero disables reasoning.
func (p *Planner) WithReasoningCeiling(ceiling int) *Planner {
	opts := p.Options()
	if ceiling <= 0 {
		opts.ReasoningCeiling = 0
		opts.DisableReasoning = true
	} else {
		opts.ReasoningCeiling = ceiling
		opts.DisableReasoning = false
	}
	return &Planner{opts: opts}
}

// ClassTokens returns the unclamped reasoning budget for class.
func (p *Planner) ClassTokens(class ReasoningClass) int {
	if p.opts.DisableReasoning {
		return 0
	}
	if class == ClassMax {
		return p.opts.ReasoningCeiling
	}
	tokens, ok := p.opts.ClassTokens[class]
	if !ok {
		tokens = p.opts.ClassTokens[ClassMedium]
	}
	if p.opts.ReasoningCeiling > 0 && tokens > p.opts.ReasoningCeiling {
		tokens = p.opts.ReasoningCeiling
	}
	return tokens
}

// Plan allocates total tokens for one request. It never fails: when the
// window is too small the reasoning budget is clamped first, then files and
// history shrink, and a non-positive window yields an all-zero plan.
func (p *Planner) Plan(total int, class ReasoningClass, hasStreaming bool) Plan {
	plan := Plan{
		Total:        total,
		SafetyMargin: p.opts.SafetyMargin,
		Class:        class,
	}
	if total <= 0 {
		return plan
	}

	effective := effectiveWindow(total, p.opts.SafetyMargin)
	plan.Effective = effective

	minOutput := min(p.opts.MinOutputTokens, effective)
	desiredOutput := p.opts.OutputTokens
	if hasStreaming {
		desiredOutput = p.opts.StreamingOutputTokens
	}
	desiredOutput = max(desiredOutput, minOutput)

	reasoning := p.ClassTokens(class)
	if limit := effective - minOutput; reasoning > limit {
		reasoning = max(limit, 0)
		plan.Clamped = true
	}

	// reasoning leaves at least minOutput, so output never drops below it.
	output := min(desiredOutput, effective-reasoning)

	remaining := effective - reasoning - output
	files := int(math.Floor(float64(remaining) * p.opts.FileShare))
	files = min(max(files, 0), remaining)

	plan.Reasoning = reasoning
	plan.Output = output
	plan.Files = files
	plan.History = remaining - files
	return plan
}

// effectiveWindow subtracts the safety margin, rounding the reserve up so the
// result never exceeds total*(1-margin). The small epsilon absorbs float error
// such as 0.07*8000 evaluating to 560.0000000000001.
func effectiveWindow(total int, margin float64) int {
	reserve := int(math.Ceil(float64(total)*margin - 1e-9))
	return max(total-max(reserve, 0), 0)
}
