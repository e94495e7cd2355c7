package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DuplicateToolError is returned when a tool id is registered twice.
type DuplicateToolError struct {
	ID ToolKind
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.ID)
}

// NotFoundError is returned by Lookup for unknown tool ids.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.ID)
}

// ArgumentsError reports arguments that do not match a tool's input schema.
type ArgumentsError struct {
	ToolID ToolKind
	// Problems holds one "location: message" entry per violation.
	Problems []string
	Cause    error
}

func (e *ArgumentsError) Error() string {
	if len(e.Problems) == 0 {
		return fmt.Sprintf("invalid arguments for %s", e.ToolID)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.ToolID, strings.Join(e.Problems, "; "))
}

func (e *ArgumentsError) Unwrap() error {
	return e.Cause
}

func newArgumentsError(id ToolKind, err error) *ArgumentsError {
	ae := &ArgumentsError{ToolID: id, Cause: err}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		ae.Problems = []string{err.Error()}
		return ae
	}
	collectProblems(ve, &ae.Problems)
	return ae
}

func collectProblems(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		location := ve.InstanceLocation
		if location == "" {
			location = "(root)"
		}
		*out = append(*out, location+": "+ve.Message)
		return
	}
	for _, cause := range ve.Causes {
		collectProblems(cause, out)
	}
}
