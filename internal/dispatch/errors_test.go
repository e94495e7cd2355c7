package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/tools"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"dispatch error", &DispatchError{Kind: KindTimeout}, KindTimeout},
		{"wrapped dispatch error", fmt.Errorf("outer: %w", &DispatchError{Kind: KindAuth}), KindAuth},
		{"not found", &tools.NotFoundError{ID: "nope"}, KindUnknownTool},
		{"arguments", &tools.ArgumentsError{ToolID: tools.KindChat}, KindInvalidArguments},
		{"context canceled", context.Canceled, KindCancelled},
		{"auth", llm.NewProviderError(llm.KindAuth, "gpt-5", nil), KindAuth},
		{"rate limited", llm.NewProviderError(llm.KindRateLimited, "gpt-5", nil), KindRateLimited},
		{"schema", llm.NewProviderError(llm.KindSchema, "gpt-5", nil), KindSchema},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"unknown", errors.New("boom"), KindServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorKindTransient(t *testing.T) {
	transient := map[ErrorKind]bool{
		KindRateLimited: true,
		KindTimeout:     true,
		KindServer:      true,
	}
	for _, kind := range []ErrorKind{
		KindUnknownTool, KindInvalidArguments, KindAuth, KindRateLimited, KindTimeout,
		KindServer, KindSchema, KindProviderUnavailable, KindCancelled,
	} {
		assert.Equal(t, transient[kind], kind.Transient(), string(kind))
	}
}

func TestDispatchErrorMessageAndUnwrap(t *testing.T) {
	cause := llm.NewProviderError(llm.KindRateLimited, "gpt-5", errors.New("slow down"))
	err := &DispatchError{Kind: KindProviderUnavailable, ToolID: "chat", Model: "gpt-5", Attempts: 3, Cause: cause}

	assert.Contains(t, err.Error(), "chat: provider_unavailable")
	assert.Contains(t, err.Error(), "model gpt-5, 3 attempts")

	pe, ok := llm.AsProviderError(err)
	assert.True(t, ok)
	assert.Equal(t, llm.KindRateLimited, pe.Kind)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateRetrying.Terminal())
	assert.Equal(t, "dispatched", StateDispatched.String())
	assert.Equal(t, "unknown", State(99).String())
}
