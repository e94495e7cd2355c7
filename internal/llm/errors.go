package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth_error"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindServer      ErrorKind = "server_error"
	KindSchema      ErrorKind = "schema_error"
	KindCancelled   ErrorKind = "cancelled"
)

// Transient reports whether a retry may succeed.
func (k ErrorKind) Transient() bool {
	switch k {
	case KindRateLimited, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// ProviderError is the typed failure returned by every ProviderClient.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Model    string
	Status   int
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	prefix := string(e.Kind)
	if e.Provider != "" {
		prefix = e.Provider + " " + prefix
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d, model %s): %s", prefix, e.Status, e.Model, msg)
	}
	if e.Model != "" {
		return fmt.Sprintf("%s (model %s): %s", prefix, e.Model, msg)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// IsTransient reports whether a retry may succeed.
func (e *ProviderError) IsTransient() bool { return e.Kind.Transient() }

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(kind ErrorKind, model string, cause error) *ProviderError {
	return &ProviderError{Kind: kind, Model: model, Cause: cause}
}

// KindFromStatus maps an HTTP status to an ErrorKind.
func KindFromStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindServer
	default:
		// Remaining 4xx are malformed requests and will not improve on retry.
		return KindSchema
	}
}

// AsProviderError extracts a *ProviderError from err.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the provider error kind of err. Context errors map to
// cancelled or timeout, anything unrecognised is treated as a server error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if pe, ok := AsProviderError(err); ok {
		return pe.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindServer
}
