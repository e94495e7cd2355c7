package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromStatus(t *testing.T) {
	assert.Equal(t, KindAuth, KindFromStatus(401))
	assert.Equal(t, KindAuth, KindFromStatus(403))
	assert.Equal(t, KindTimeout, KindFromStatus(408))
	assert.Equal(t, KindRateLimited, KindFromStatus(429))
	assert.Equal(t, KindSchema, KindFromStatus(422))
	assert.Equal(t, KindServer, KindFromStatus(503))
}

func TestKindTransient(t *testing.T) {
	for _, kind := range []ErrorKind{KindRateLimited, KindTimeout, KindServer} {
		assert.True(t, kind.Transient(), kind)
	}
	for _, kind := range []ErrorKind{KindAuth, KindSchema, KindCancelled} {
		assert.False(t, kind.Transient(), kind)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("call: %w", &ProviderError{Kind: KindRateLimited})
	assert.Equal(t, KindRateLimited, KindOf(wrapped))
	assert.Equal(t, KindCancelled, KindOf(context.Canceled))
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindServer, KindOf(errors.New("connection reset")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Kind: KindAuth, Provider: "openai", Model: "gpt-5", Status: 401, Message: "bad key"}
	assert.Equal(t, "openai auth_error (status 401, model gpt-5): bad key", err.Error())

	cause := errors.New("eof")
	err = NewProviderError(KindServer, "gpt-5", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "server_error (model gpt-5): eof", err.Error())
}
