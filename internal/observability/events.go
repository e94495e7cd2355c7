package observability

import (
	"context"
	"sync"
	"time"

	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/logger"
)

// EventKind names the dispatcher transition that produced an event.
type EventKind string

const (
	EventDispatched EventKind = "dispatched"
	EventSucceeded  EventKind = "succeeded"
	EventFailed     EventKind = "failed"
)

// Event is emitted by the dispatcher on every provider attempt and on the
// terminal outcome of a request.
type Event struct {
	Kind      EventKind
	RequestID string
	ToolID    string
	Model     string
	// Attempt is 1 for the first provider call.
	Attempt    int
	RetryCount int
	Elapsed    time.Duration
	Usage      llm.Usage
	Truncated  bool
	// ErrorKind and Err are set on failed events.
	ErrorKind string
	Err       error
}

// EventSink receives dispatcher events. Emit is called on the request's
// goroutine and must not block.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, e Event)

func (f SinkFunc) Emit(ctx context.Context, e Event) {
	f(ctx, e)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// MultiSink forwards each event to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, e Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(ctx, e)
		}
	}
}

// LogSink writes events as key=value lines.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the global logger.
func NewLogSink(l *logger.Logger) *LogSink {
	return &LogSink{log: l}
}

func (s *LogSink) Emit(_ context.Context, e Event) {
	log := s.log
	if log == nil {
		log = logger.Global()
	}

	kv := []any{
		"request_id", e.RequestID,
		"tool_id", e.ToolID,
		"model", e.Model,
		"elapsed", e.Elapsed,
	}

	level := logger.LevelDebug
	switch e.Kind {
	case EventDispatched:
		kv = append(kv, "attempt", e.Attempt)
	case EventSucceeded:
		level = logger.LevelInfo
		kv = append(kv,
			"input_tokens", e.Usage.InputTokens,
			"output_tokens", e.Usage.OutputTokens,
			"reasoning_tokens", e.Usage.ReasoningTokens,
			"retries", e.RetryCount,
			"truncated", e.Truncated,
		)
	case EventFailed:
		level = logger.LevelWarn
		kv = append(kv, "retries", e.RetryCount, "kind", e.ErrorKind)
		if e.Err != nil {
			kv = append(kv, "error", e.Err.Error())
		}
	}

	log.Event(level, "dispatch "+string(e.Kind), kv...)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
