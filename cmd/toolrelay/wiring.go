package main

import (
	"fmt"
	"os"

	"github.com/codefionn/toolrelay/internal/backoff"
	"github.com/codefionn/toolrelay/internal/budget"
	"github.com/codefionn/toolrelay/internal/config"
	"github.com/codefionn/toolrelay/internal/dispatch"
	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/logger"
	"github.com/codefionn/toolrelay/internal/observability"
	"github.com/codefionn/toolrelay/internal/selection"
	"github.com/codefionn/toolrelay/internal/tools"
)

// loadConfig reads the config file and overlays the process environment.
// This is the only place the environment is consulted.
func loadConfig(path string, lookup config.LookupFunc) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env, ok := os.LookupEnv("TOOLRELAY_CONFIG"); ok && env != "" {
		return env
	}
	return config.GetConfigPath()
}

func newPlanner(cfg *config.Config) *budget.Planner {
	return budget.NewPlanner(budget.Options{
		SafetyMargin:          cfg.Budget.SafetyMargin,
		MinOutputTokens:       cfg.Budget.MinOutputTokens,
		OutputTokens:          cfg.Budget.OutputTokens,
		StreamingOutputTokens: cfg.Budget.StreamingOutputTokens,
		FileShare:             cfg.Budget.FileShare,
		ClassTokens:           budget.DefaultClassTokens(),
		ReasoningCeiling:      cfg.MaxReasoningTokens,
	})
}

// newScorer starts from the stock weights and applies every configured
// non-zero weight.
func newScorer(sc config.ScoringConfig) *selection.Scorer {
	s := selection.DefaultScorer()
	if sc.MentionScore > 0 {
		s.MentionScore = sc.MentionScore
	}
	if sc.ErrorScore > 0 {
		s.ErrorScore = sc.ErrorScore
	}
	if sc.RecencyWeight > 0 {
		s.RecencyWeight = sc.RecencyWeight
	}
	if sc.SizePenaltyPerKTok > 0 {
		s.SizePenaltyPerKTok = sc.SizePenaltyPerKTok
	}
	if sc.Cap > 0 {
		s.Cap = sc.Cap
	}
	for class, base := range sc.ExtensionBase {
		s.ExtensionBase[class] = base
	}
	if len(sc.Keywords) > 0 {
		s.Keywords = make(map[string]float64, len(sc.Keywords))
		for k, v := range sc.Keywords {
			s.Keywords[k] = v
		}
	}
	return s
}

func retryPolicy(rc config.RetryConfig) backoff.Policy {
	return backoff.Policy{
		Initial: rc.Initial.Std(),
		Factor:  rc.Factor,
		Max:     rc.Max.Std(),
		Jitter:  rc.Jitter,
	}
}

// newProvider stacks the OpenAI client under the rate limiter and the
// in-flight cap.
func newProvider(cfg *config.Config) (llm.ProviderClient, error) {
	client, err := llm.NewOpenAIClient(llm.OpenAIOptions{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		RequestTimeout:    cfg.Provider.RequestTimeout.Std(),
		FirstTokenTimeout: cfg.Provider.FirstTokenTimeout.Std(),
	})
	if err != nil {
		return nil, err
	}
	limited := llm.NewRateLimitedClient(client, cfg.Provider.MinRequestInterval.Std(), cfg.Provider.TokensPerMinute)
	return llm.NewLimitedClient(limited, cfg.Provider.MaxConcurrentRequests), nil
}

func traceConfig(cfg *config.Config) observability.TraceConfig {
	return observability.TraceConfig{
		ServiceName:    "toolrelay",
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
	}
}

// newDispatcher wires the dispatcher from cfg. provider, sink and tracer are
// passed in so that tests can substitute them; a nil tracer uses the global
// provider.
func newDispatcher(cfg *config.Config, registry *tools.Registry, provider llm.ProviderClient, sink observability.EventSink, tracer *observability.Tracer, log *logger.Logger) (*dispatch.Dispatcher, error) {
	class, err := budget.ParseClass(cfg.ReasoningMode)
	if err != nil {
		return nil, err
	}
	estimate := llm.NewTokenEstimator(cfg.DefaultModel).Count

	return dispatch.New(dispatch.Options{
		Registry: registry,
		Provider: provider,
		Planner:  newPlanner(cfg),
		Selector: selection.NewSelector(selection.Options{
			MinSummaryTokens: cfg.Budget.MinSummaryTokens,
			MaxSummaryTokens: cfg.Budget.MaxSummaryTokens,
			TokenEstimator:   estimate,
		}),
		Scorer:             newScorer(cfg.Scoring),
		Policy:             retryPolicy(cfg.Retry),
		MaxRetries:         cfg.Retry.MaxRetries,
		DefaultModel:       cfg.DefaultModel,
		DefaultClass:       class,
		MaxReasoningTokens: cfg.MaxReasoningTokens,
		FallbackModels:     cfg.FallbackModels,
		Sink:               sink,
		Tracer:             tracer,
		Logger:             log,
		TokenEstimator:     estimate,
	})
}
