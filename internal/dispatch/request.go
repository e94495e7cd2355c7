package dispatch

import (
	"time"

	"github.com/codefionn/toolrelay/internal/budget"
	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/selection"
)

// File is a candidate file supplied with a request.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Turn is an earlier conversation turn, oldest first in Request.History.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one tool invocation.
type Request struct {
	ToolID    string
	Arguments map[string]any
	// Files are ordered most recently referenced first.
	Files   []File
	History []Turn
	// Model overrides both the "model" argument and the configured default.
	Model  string
	Stream bool
	// OnChunk receives streamed text when Stream is set.
	OnChunk func(chunk string) error
}

// DispatchResult is the outcome of a successful request. A truncated
// context selection is reported here, not as an error.
type DispatchResult struct {
	RequestID string `json:"request_id"`
	ToolID    string `json:"tool_id"`
	// Model is the model that answered. It differs from RequestedModel when
	// a fallback model was used.
	Model          string     `json:"model"`
	RequestedModel string     `json:"requested_model"`
	Output         string     `json:"output"`
	Usage          llm.Usage  `json:"usage"`
	Status         llm.Status `json:"status"`
	FinishReason   string     `json:"finish_reason,omitempty"`

	Truncated       bool                  `json:"truncated"`
	FileActions     []selection.Action    `json:"file_actions,omitempty"`
	HistoryActions  []selection.Action    `json:"history_actions,omitempty"`
	FilesIncluded   int                   `json:"files_included"`
	FilesSummarized int                   `json:"files_summarized"`
	HistoryIncluded int                   `json:"history_included"`
	Plan            budget.Plan           `json:"plan"`
	ReasoningClass  budget.ReasoningClass `json:"reasoning_class"`

	RetryCount int           `json:"retry_count"`
	Attempts   int           `json:"attempts"`
	Elapsed    time.Duration `json:"elapsed"`
	States     []State       `json:"-"`
}
