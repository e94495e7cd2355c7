package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/tools"
)

// ErrorKind is the terminal failure taxonomy of a dispatch.
type ErrorKind string

const (
	KindUnknownTool         ErrorKind = "unknown_tool"
	KindInvalidArguments    ErrorKind = "invalid_arguments"
	KindAuth                ErrorKind = "auth_error"
	KindRateLimited         ErrorKind = "rate_limited"
	KindTimeout             ErrorKind = "timeout"
	KindServer              ErrorKind = "server_error"
	KindSchema              ErrorKind = "schema_error"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindCancelled           ErrorKind = "cancelled"
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

// DispatchError is the single typed error returned for a failed request.
type DispatchError struct {
	Kind   ErrorKind
	ToolID string
	// Model is the last model attempted, empty if no call was made.
	Model    string
	Attempts int
	Cause    error
}

func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.ToolID, e.Kind)
	if e.Model != "" {
		msg += fmt.Sprintf(" (model %s, %d attempts)", e.Model, e.Attempts)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// KindOf extracts the ErrorKind of err. It understands DispatchError as well
// as the registry and provider errors it wraps.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	var nf *tools.NotFoundError
	if errors.As(err, &nf) {
		return KindUnknownTool
	}
	var ae *tools.ArgumentsError
	if errors.As(err, &ae) {
		return KindInvalidArguments
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return fromProviderKind(llm.KindOf(err))
}

func fromProviderKind(k llm.ErrorKind) ErrorKind {
	switch k {
	case llm.KindAuth:
		return KindAuth
	case llm.KindRateLimited:
		return KindRateLimited
	case llm.KindTimeout:
		return KindTimeout
	case llm.KindSchema:
		return KindSchema
	case llm.KindCancelled:
		return KindCancelled
	default:
		return KindServer
	}
}
