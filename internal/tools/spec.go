package tools

import (
	"encoding/json"
	"fmt"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/codefionn/toolrelay/internal/budget"
)

// ToolSpec is the static description of a tool. Specs are created once at
// startup and never mutated after registration.
type ToolSpec struct {
	ID          ToolKind
	Title       string
	Description string
	// Class is the default reasoning class. Empty defers to the configured
	// reasoning mode.
	Class budget.ReasoningClass
	// Temperature is sent only to models without reasoning support.
	Temperature float64
	// PreferredModels are tried in order when the configured model is "auto".
	PreferredModels []string
	SystemPrompt    string
	// Args is a pointer to the zero value of the tool's argument struct. It
	// is reflected into the input schema. Nil means BaseArgs.
	Args any

	rawSchema json.RawMessage
	schema    *jsonschema.Schema
}

// clone copies s so callers cannot reach the catalogue's slices. The
// compiled schema is shared; it is never modified.
func (s *ToolSpec) clone() *ToolSpec {
	cp := *s
	cp.PreferredModels = append([]string(nil), s.PreferredModels...)
	return &cp
}

// InputSchema returns the JSON Schema of the tool's arguments.
func (s *ToolSpec) InputSchema() json.RawMessage {
	out := make(json.RawMessage, len(s.rawSchema))
	copy(out, s.rawSchema)
	return out
}

// Validate checks args against the input schema.
func (s *ToolSpec) Validate(args map[string]any) error {
	if s.schema == nil {
		return fmt.Errorf("tool %s has no compiled schema", s.ID)
	}
	if args == nil {
		args = map[string]any{}
	}

	// Round-trip so that values built in Go match what a JSON decoder yields.
	payload, err := json.Marshal(args)
	if err != nil {
		return &ArgumentsError{ToolID: s.ID, Problems: []string{"arguments are not JSON encodable"}, Cause: err}
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return &ArgumentsError{ToolID: s.ID, Problems: []string{"arguments are not JSON encodable"}, Cause: err}
	}

	if err := s.schema.Validate(decoded); err != nil {
		return newArgumentsError(s.ID, err)
	}
	return nil
}

// Decode unmarshals validated args into the tool's argument struct.
func Decode[T any](args map[string]any) (T, error) {
	var out T
	payload, err := json.Marshal(args)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(payload, &out)
	return out, err
}

func (s *ToolSpec) compile() error {
	args := s.Args
	if args == nil {
		args = &BaseArgs{}
	}

	r := &invopop.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	reflected := r.Reflect(args)
	reflected.Title = s.ID.String()
	reflected.Description = s.Description

	raw, err := json.Marshal(reflected)
	if err != nil {
		return fmt.Errorf("encode schema for %s: %w", s.ID, err)
	}
	compiled, err := jsonschema.CompileString(string(s.ID)+".schema.json", string(raw))
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", s.ID, err)
	}

	s.rawSchema = raw
	s.schema = compiled
	return nil
}
