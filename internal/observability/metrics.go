package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSink turns dispatcher events into Prometheus metrics.
//
// Metrics:
//   - toolrelay_provider_attempts_total{tool, model}
//   - toolrelay_dispatch_total{tool, model, outcome}
//   - toolrelay_dispatch_duration_seconds{tool, outcome}
//   - toolrelay_tokens_total{model, type}
//   - toolrelay_retries_total{tool}
//   - toolrelay_truncated_total{tool}
//   - toolrelay_failures_total{tool, kind}
type MetricsSink struct {
	attempts  *prometheus.CounterVec
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	tokens    *prometheus.CounterVec
	retries   *prometheus.CounterVec
	truncated *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewMetricsSink registers the metrics with reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	factory := promauto.With(reg)
	return &MetricsSink{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolrelay_provider_attempts_total",
				Help: "Provider calls made, including retries",
			},
			[]string{"tool", "model"},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolrelay_dispatch_total",
				Help: "Finished tool requests by outcome",
			},
			[]string{"tool", "model", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolrelay_dispatch_duration_seconds",
				Help:    "End to end duration of tool requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"tool", "outcome"},
		),
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolrelay_tokens_total",
				Help: "Tokens reported by the provider",
			},
			[]string{"model", "type"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolrelay_retries_total",
				Help: "Provider retries after transient failures",
			},
			[]string{"tool"},
		),
		truncated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolrelay_truncated_total",
				Help: "Successful requests whose context selection was truncated",
			},
			[]string{"tool"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolrelay_failures_total",
				Help: "Failed requests by error kind",
			},
			[]string{"tool", "kind"},
		),
	}
}

func (m *MetricsSink) Emit(_ context.Context, e Event) {
	switch e.Kind {
	case EventDispatched:
		m.attempts.WithLabelValues(e.ToolID, e.Model).Inc()
		if e.Attempt > 1 {
			m.retries.WithLabelValues(e.ToolID).Inc()
		}
	case EventSucceeded:
		m.requests.WithLabelValues(e.ToolID, e.Model, "success").Inc()
		m.duration.WithLabelValues(e.ToolID, "success").Observe(e.Elapsed.Seconds())
		m.tokens.WithLabelValues(e.Model, "input").Add(float64(e.Usage.InputTokens))
		m.tokens.WithLabelValues(e.Model, "output").Add(float64(e.Usage.OutputTokens))
		m.tokens.WithLabelValues(e.Model, "reasoning").Add(float64(e.Usage.ReasoningTokens))
		if e.Truncated {
			m.truncated.WithLabelValues(e.ToolID).Inc()
		}
	case EventFailed:
		m.requests.WithLabelValues(e.ToolID, e.Model, "failure").Inc()
		m.duration.WithLabelValues(e.ToolID, "failure").Observe(e.Elapsed.Seconds())
		m.failures.WithLabelValues(e.ToolID, e.ErrorKind).Inc()
	}
}
