package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/codefionn/toolrelay/internal/backoff"
	"github.com/codefionn/toolrelay/internal/budget"
	"github.com/codefionn/toolrelay/internal/consts"
	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/logger"
	"github.com/codefionn/toolrelay/internal/observability"
	"github.com/codefionn/toolrelay/internal/selection"
	"github.com/codefionn/toolrelay/internal/summarizer"
	"github.com/codefionn/toolrelay/internal/tools"
)

// AutoModel defers model choice to the tool's preferred models.
const AutoModel = "auto"

// Options configures a Dispatcher. Registry and Provider are required.
// Other zero values take defaults, except MaxRetries where zero disables
// retries; start from DefaultOptions to get the standard policy.
type Options struct {
	Registry *tools.Registry
	Provider llm.ProviderClient

	Planner  *budget.Planner
	Selector *selection.Selector
	Scorer   *selection.Scorer

	Policy     backoff.Policy
	MaxRetries int

	DefaultModel       string
	DefaultClass       budget.ReasoningClass
	MaxReasoningTokens int
	// FallbackModels are tried in order, with a fresh plan each, once the
	// retries against the requested model are exhausted.
	FallbackModels []string

	Sink   observability.EventSink
	Tracer *observability.Tracer
	Logger *logger.Logger

	// Sleep, Rand, Now and NewID are replaced in tests.
	Sleep backoff.SleepFunc
	Rand  func() float64
	Now   func() time.Time
	NewID func() string

	TokenEstimator func(string) int
}

// DefaultOptions returns Options with the standard retry policy and model
// defaults. Registry and Provider still have to be set.
func DefaultOptions() Options {
	return Options{
		Policy:             backoff.DefaultPolicy(),
		MaxRetries:         consts.DefaultMaxRetries,
		DefaultModel:       consts.DefaultModel,
		DefaultClass:       budget.ClassMedium,
		MaxReasoningTokens: consts.DefaultMaxReasoningTokens,
	}
}

// Dispatcher runs tool requests through plan, select and provider call. It
// holds only read-only collaborators, so one Dispatcher serves any number of
// concurrent requests.
type Dispatcher struct {
	registry *tools.Registry
	provider llm.ProviderClient
	planner  *budget.Planner
	selector *selection.Selector
	scorer   *selection.Scorer

	policy       backoff.Policy
	maxRetries   int
	defaultModel string
	defaultClass budget.ReasoningClass
	maxReasoning int
	fallbacks    []string

	sink   observability.EventSink
	tracer *observability.Tracer
	log    *logger.Logger

	sleep    backoff.SleepFunc
	rand     func() float64
	now      func() time.Time
	newID    func() string
	estimate func(string) int
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, errors.New("dispatch: registry is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("dispatch: provider is required")
	}
	if opts.DefaultClass != "" && !opts.DefaultClass.Valid() {
		return nil, fmt.Errorf("dispatch: invalid default reasoning class %q", opts.DefaultClass)
	}

	d := &Dispatcher{
		registry:     opts.Registry,
		provider:     opts.Provider,
		planner:      opts.Planner,
		selector:     opts.Selector,
		scorer:       opts.Scorer,
		policy:       opts.Policy,
		maxRetries:   opts.MaxRetries,
		defaultModel: strings.TrimSpace(opts.DefaultModel),
		defaultClass: opts.DefaultClass,
		maxReasoning: opts.MaxReasoningTokens,
		fallbacks:    append([]string(nil), opts.FallbackModels...),
		sink:         opts.Sink,
		tracer:       opts.Tracer,
		log:          opts.Logger,
		sleep:        opts.Sleep,
		rand:         opts.Rand,
		now:          opts.Now,
		newID:        opts.NewID,
		estimate:     opts.TokenEstimator,
	}

	if d.estimate == nil {
		d.estimate = summarizer.DefaultTokenEstimator
	}
	if d.planner == nil {
		d.planner = budget.NewPlanner(budget.DefaultOptions())
	}
	if d.selector == nil {
		d.selector = selection.NewSelector(selection.Options{TokenEstimator: d.estimate})
	}
	if d.scorer == nil {
		d.scorer = selection.DefaultScorer()
	}
	if d.policy == (backoff.Policy{}) {
		d.policy = backoff.DefaultPolicy()
	}
	if d.maxRetries < 0 {
		d.maxRetries = 0
	}
	if d.defaultModel == "" {
		d.defaultModel = consts.DefaultModel
	}
	if d.defaultClass == "" {
		d.defaultClass = budget.ClassMedium
	}
	if d.sink == nil {
		d.sink = observability.NopSink{}
	}
	if d.tracer == nil {
		d.tracer = observability.NewTracer()
	}
	if d.log == nil {
		d.log = logger.Global()
	}
	if d.sleep == nil {
		d.sleep = backoff.Sleep
	}
	if d.rand == nil {
		d.rand = rand.Float64 // #nosec G404 -- jitter does not require cryptographic randomness
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newID == nil {
		d.newID = uuid.NewString
	}
	return d, nil
}

// Registry returns the tool catalogue the dispatcher validates against.
func (d *Dispatcher) Registry() *tools.Registry {
	return d.registry
}

// run is the state of one request. It is owned by the goroutine executing
// Dispatch and never shared.
type run struct {
	d    *Dispatcher
	req  *Request
	span trace.Span

	start     time.Time
	requestID string
	toolID    string
	model     string
	requested string

	spec   *tools.ToolSpec
	args   map[string]any
	prompt string
	class  budget.ReasoningClass
	temp   float64

	files     []selection.Candidate
	turns     []selection.Candidate
	turnIndex map[string]int

	states   []State
	attempts int
	retries  int
}

// prepared is everything sent to one model.
type prepared struct {
	caps    llm.Capabilities
	plan    budget.Plan
	files   selection.SelectionResult
	history selection.SelectionResult
	request *llm.ProviderRequest
}

// Dispatch runs req to completion. It returns a DispatchResult on success
// and a *DispatchError otherwise, never both.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*DispatchResult, error) {
	if req == nil {
		req = &Request{}
	}
	r := &run{
		d:         d,
		req:       req,
		start:     d.now(),
		requestID: d.newID(),
		toolID:    strings.ToLower(strings.TrimSpace(req.ToolID)),
		model:     strings.TrimSpace(req.Model),
	}

	ctx, span := d.tracer.StartDispatch(ctx, r.toolID, r.requestID)
	defer span.End()
	r.span = span
	r.enter(StateReceived)

	spec, err := d.registry.Validate(req.ToolID, req.Arguments)
	if err != nil {
		return nil, r.fail(ctx, KindOf(err), err)
	}
	base, err := tools.Decode[tools.BaseArgs](req.Arguments)
	if err != nil {
		return nil, r.fail(ctx, KindInvalidArguments, err)
	}

	r.spec = spec
	r.toolID = spec.ID.String()
	r.args = req.Arguments
	r.prompt = base.Prompt
	r.class = d.resolveClass(spec, base)
	r.temp = spec.Temperature
	if base.Temperature != nil {
		r.temp = *base.Temperature
	}
	r.requested = d.resolveModel(spec, req, base)
	r.model = r.requested
	r.buildCandidates(req, base)

	var lastErr error
	for i, model := range d.modelChain(r.requested) {
		if i > 0 {
			d.log.Warn("Falling back to model %s for %s: %v", model, r.toolID, lastErr)
		}
		call := r.prepare(model)

		for retry := 0; ; retry++ {
			if err := ctx.Err(); err != nil {
				return nil, r.fail(ctx, KindCancelled, err)
			}

			resp, err := r.attempt(ctx, call)
			if err == nil {
				return r.succeed(ctx, call, resp), nil
			}
			if ctx.Err() != nil {
				return nil, r.fail(ctx, KindCancelled, err)
			}

			kind := KindOf(err)
			if kind == KindCancelled || !kind.Transient() {
				d.log.Warn("Provider call for %s failed with %s (model %s): %v", r.toolID, kind, model, err)
				return nil, r.fail(ctx, kind, err)
			}

			lastErr = err
			if retry >= d.maxRetries {
				d.log.Warn("Provider call for %s failed (attempt %d/%d, model %s): %v", r.toolID, retry+1, d.maxRetries+1, model, err)
				break
			}

			r.retries++
			r.enter(StateRetrying)
			delay := d.policy.Delay(retry+1, d.rand())
			d.log.Warn("Provider call for %s failed (attempt %d/%d, model %s), retrying in %s: %v",
				r.toolID, retry+1, d.maxRetries+1, model, delay, err)

			if err := d.sleep(ctx, delay); err != nil {
				return nil, r.fail(ctx, KindCancelled, err)
			}
		}
	}

	return nil, r.fail(ctx, KindProviderUnavailable, lastErr)
}

func (d *Dispatcher) resolveClass(spec *tools.ToolSpec, base tools.BaseArgs) budget.ReasoningClass {
	if base.ReasoningMode != "" {
		if class, err := budget.ParseClass(base.ReasoningMode); err == nil {
			return class
		}
	}
	if spec.Class != "" {
		return spec.Class
	}
	return d.defaultClass
}

// resolveModel picks the request override, then the "model" argument, then
// the configured default. "auto" selects the tool's first preferred model,
// or the configured default when the tool has none.
func (d *Dispatcher) resolveModel(spec *tools.ToolSpec, req *Request, base tools.BaseArgs) string {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(base.Model)
	}
	if model == "" {
		model = d.defaultModel
	}
	if strings.EqualFold(model, AutoModel) {
		if len(spec.PreferredModels) > 0 {
			return spec.PreferredModels[0]
		}
		if !strings.EqualFold(d.defaultModel, AutoModel) {
			return d.defaultModel
		}
		return consts.DefaultModel
	}
	return model
}

// modelChain is the requested model followed by the distinct fallbacks.
func (d *Dispatcher) modelChain(requested string) []string {
	chain := []string{requested}
	seen := map[string]bool{strings.ToLower(requested): true}
	for _, model := range d.fallbacks {
		model = strings.TrimSpace(model)
		key := strings.ToLower(model)
		if model == "" || seen[key] {
			continue
		}
		seen[key] = true
		chain = append(chain, model)
	}
	return chain
}

func (r *run) buildCandidates(req *Request, base tools.BaseArgs) {
	d := r.d

	files := req.Files
	if len(files) == 0 {
		for _, f := range base.Files {
			files = append(files, File{Path: f.Path, Content: f.Content})
		}
	}
	r.files = make([]selection.Candidate, 0, len(files))
	for _, f := range files {
		r.files = append(r.files, selection.Candidate{
			ID:      f.Path,
			Kind:    selection.KindFile,
			Content: f.Content,
			Tokens:  d.estimate(f.Content),
		})
	}
	selection.AssignRecency(r.files)
	selection.MarkMentions(r.files, mentionText(r.prompt, r.args))
	selection.MarkErrors(r.files, tools.ErrorText(r.args))
	d.scorer.Apply(r.files, r.prompt)

	history := req.History
	if len(history) == 0 {
		for _, t := range base.History {
			history = append(history, Turn{Role: t.Role, Content: t.Content})
		}
	}
	n := len(history)
	r.turns = make([]selection.Candidate, 0, n)
	r.turnIndex = make(map[string]int, n)
	for i, t := range history {
		id := fmt.Sprintf("turn-%d", i)
		r.turnIndex[id] = i
		r.turns = append(r.turns, selection.Candidate{
			ID:      id,
			Kind:    selection.KindTurn,
			Role:    t.Role,
			Content: t.Content,
			Tokens:  d.estimate(t.Content),
			Recency: float64(i+1) / float64(n),
		})
	}
	d.scorer.Apply(r.turns, "")
}

// prepare plans the budget for model, selects files and history and builds
// the provider request.
func (r *run) prepare(model string) *prepared {
	d := r.d
	caps := llm.LookupCapabilities(model)
	stream := r.req.Stream && caps.SupportsStreaming

	planner := d.planner.WithReasoningCeiling(caps.ReasoningCeiling(d.maxReasoning))
	plan := planner.Plan(caps.ContextWindow, r.class, stream)
	r.enter(StatePlanned)

	// The fixed prompt framing and the request text come out of the history
	// budget first and spill over into the file budget.
	overhead := consts.SystemPromptOverheadTokens + consts.ToolOverheadTokens +
		d.estimate(r.prompt) + d.estimate(formatArgs(r.args))
	historyBudget := plan.History - overhead
	fileBudget := plan.Files
	if historyBudget < 0 {
		fileBudget += historyBudget
		historyBudget = 0
	}

	files := d.selector.Select(r.files, max(fileBudget, 0))
	history := d.selector.Select(r.turns, historyBudget)
	r.enter(StateSelected)

	turns := append([]selection.Item(nil), history.Items...)
	sort.SliceStable(turns, func(i, j int) bool {
		return r.turnIndex[turns[i].ID] < r.turnIndex[turns[j].ID]
	})

	request := &llm.ProviderRequest{
		Model:           model,
		Messages:        buildMessages(r.spec, r.prompt, r.args, files, turns),
		MaxOutputTokens: plan.Output + plan.Reasoning,
		ReasoningTokens: plan.Reasoning,
		Stream:          stream,
		OnChunk:         r.req.OnChunk,
	}
	if caps.MaxOutput > 0 && request.MaxOutputTokens > caps.MaxOutput {
		request.MaxOutputTokens = caps.MaxOutput
	}
	if plan.Reasoning > 0 {
		request.ReasoningEffort = r.class.Effort()
	}
	if !caps.SupportsReasoning {
		temp := r.temp
		request.Temperature = &temp
	}

	d.log.Debug("Prepared %s for %s: files=%d/%d history=%d/%d reasoning=%d output=%d",
		r.toolID, model, files.UsedTokens, files.Budget, history.UsedTokens, history.Budget, plan.Reasoning, plan.Output)

	return &prepared{caps: caps, plan: plan, files: files, history: history, request: request}
}

func (r *run) attempt(ctx context.Context, call *prepared) (*llm.ProviderResponse, error) {
	d := r.d
	model := call.request.Model
	r.attempts++
	r.model = model
	r.enter(StateDispatched)
	r.emit(ctx, observability.Event{Kind: observability.EventDispatched, Attempt: r.attempts})

	callCtx, span := d.tracer.StartProviderCall(ctx, model, r.attempts)
	defer span.End()

	resp, err := d.provider.Invoke(callCtx, call.request)
	if err == nil {
		switch {
		case resp == nil:
			err = llm.NewProviderError(llm.KindSchema, model, errors.New("provider returned no response"))
		case resp.Status == llm.StatusFailure:
			err = llm.NewProviderError(llm.KindServer, model, fmt.Errorf("provider reported failure (finish reason %q)", resp.FinishReason))
		}
	}
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.SetAttributes(span,
		"llm.input_tokens", resp.Usage.InputTokens,
		"llm.output_tokens", resp.Usage.OutputTokens,
		"llm.reasoning_tokens", resp.Usage.ReasoningTokens,
	)
	return resp, nil
}

func (r *run) succeed(ctx context.Context, call *prepared, resp *llm.ProviderResponse) *DispatchResult {
	r.enter(StateSucceeded)

	status := resp.Status
	if status == "" {
		status = llm.StatusSuccess
	}
	result := &DispatchResult{
		RequestID:       r.requestID,
		ToolID:          r.toolID,
		Model:           call.request.Model,
		RequestedModel:  r.requested,
		Output:          resp.Text,
		Usage:           resp.Usage,
		Status:          status,
		FinishReason:    resp.FinishReason,
		Truncated:       call.files.Truncated || call.history.Truncated,
		FileActions:     call.files.Actions,
		HistoryActions:  call.history.Actions,
		FilesIncluded:   len(call.files.Items),
		FilesSummarized: call.files.Summarized(),
		HistoryIncluded: len(call.history.Items),
		Plan:            call.plan,
		RetryCount:      r.retries,
		Attempts:        r.attempts,
		Elapsed:         r.elapsed(),
		ReasoningClass:  r.class,
		States:          r.states,
	}

	observability.SetAttributes(r.span,
		"llm.model", result.Model,
		"dispatch.retries", result.RetryCount,
		"dispatch.truncated", result.Truncated,
	)
	r.emit(ctx, observability.Event{
		Kind:      observability.EventSucceeded,
		Attempt:   r.attempts,
		Usage:     result.Usage,
		Truncated: result.Truncated,
	})
	return result
}

func (r *run) fail(ctx context.Context, kind ErrorKind, cause error) error {
	r.enter(StateFailed)
	err := &DispatchError{
		Kind:     kind,
		ToolID:   r.toolID,
		Model:    r.model,
		Attempts: r.attempts,
		Cause:    cause,
	}
	observability.RecordError(r.span, err)
	r.emit(ctx, observability.Event{
		Kind:      observability.EventFailed,
		Attempt:   r.attempts,
		ErrorKind: string(kind),
		Err:       err,
	})
	return err
}

// emit fills in the request identity and timing shared by every event.
func (r *run) emit(ctx context.Context, e observability.Event) {
	e.RequestID = r.requestID
	e.ToolID = r.toolID
	e.Model = r.model
	e.RetryCount = r.retries
	e.Elapsed = r.elapsed()
	r.d.sink.Emit(ctx, e)
}

func (r *run) enter(s State) {
	r.states = append(r.states, s)
}

func (r *run) elapsed() time.Duration {
	return r.d.now().Sub(r.start)
}
