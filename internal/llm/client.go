package llm

import "context"

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the ordered message list sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderRequest is a single bounded call to the remote model.
type ProviderRequest struct {
	Model    string
	Messages []Message
	// MaxOutputTokens is sent as max_completion_tokens.
	MaxOutputTokens int
	// ReasoningTokens is the planned reasoning budget. Zero disables
	// reasoning parameters entirely.
	ReasoningTokens int
	// ReasoningEffort is low, medium or high. Empty lets the model decide.
	ReasoningEffort string
	Temperature     *float64
	Stream          bool
	// OnChunk receives streamed text deltas. Returning an error aborts the stream.
	OnChunk func(chunk string) error
}

// Usage holds token counters reported by the provider.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Status is the terminal status of a provider call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// ProviderResponse is what the provider returned.
type ProviderResponse struct {
	Model        string
	Text         string
	Usage        Usage
	Status       Status
	FinishReason string
}

// ProviderClient is the narrow interface to one remote model endpoint.
// Implementations must be safe for concurrent use. Failures are returned as
// *ProviderError.
type ProviderClient interface {
	Invoke(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)
}

// ProviderFunc adapts a function to ProviderClient.
type ProviderFunc func(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

// Invoke calls f.
func (f ProviderFunc) Invoke(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	return f(ctx, req)
}
