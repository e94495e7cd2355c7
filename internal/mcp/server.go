// Package mcp exposes the tool catalogue as an MCP server. Every registered
// tool becomes an MCP tool whose calls are forwarded to the dispatcher.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codefionn/toolrelay/internal/dispatch"
	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/logger"
	"github.com/codefionn/toolrelay/internal/redact"
	"github.com/codefionn/toolrelay/internal/tools"
)

const (
	serverName       = "toolrelay"
	maxLogSnippetLen = 256
)

// Dispatcher runs one tool request. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *dispatch.Request) (*dispatch.DispatchResult, error)
}

// Result is the structured content of a successful tool call.
type Result struct {
	RequestID  string    `json:"request_id"`
	ToolID     string    `json:"tool_id"`
	Model      string    `json:"model"`
	Output     string    `json:"output"`
	Usage      llm.Usage `json:"usage"`
	Truncated  bool      `json:"truncated"`
	RetryCount int       `json:"retry_count"`
	Status     string    `json:"status"`
}

// ErrorResult is the structured content of a failed tool call.
type ErrorResult struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	ToolID  string `json:"tool_id"`
	Model   string `json:"model,omitempty"`
}

// Server serves the registry over MCP.
type Server struct {
	server     *mcpsdk.Server
	dispatcher Dispatcher
	log        *logger.Logger
	redactor   *redact.Redactor
}

// Option configures a Server.
type Option func(*Server)

// WithRedactor replaces the default credential redactor applied to logged
// arguments and returned error messages.
func WithRedactor(r *redact.Redactor) Option {
	return func(s *Server) {
		if r != nil {
			s.redactor = r
		}
	}
}

// NewServer registers every tool of registry on a new MCP server.
func NewServer(d Dispatcher, registry *tools.Registry, log *logger.Logger, version string, opts ...Option) (*Server, error) {
	if d == nil || registry == nil {
		return nil, errors.New("mcp: dispatcher and registry are required")
	}
	if log == nil {
		log = logger.Global()
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		server: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    serverName,
			Version: version,
		}, nil),
		dispatcher: d,
		log:        log,
		redactor:   redact.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, spec := range registry.List() {
		var schema map[string]any
		if err := json.Unmarshal(spec.InputSchema(), &schema); err != nil {
			return nil, fmt.Errorf("mcp: input schema of %s: %w", spec.ID, err)
		}
		s.server.AddTool(&mcpsdk.Tool{
			Name:        spec.ID.String(),
			Title:       spec.Title,
			Description: spec.Description,
			InputSchema: schema,
		}, s.handler(spec.ID.String()))
	}
	return s, nil
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) handler(toolID string) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := map[string]any{}
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(toolID, "", string(dispatch.KindInvalidArguments), fmt.Sprintf("arguments are not a JSON object: %v", err)), nil
			}
		}
		s.log.Debug("Tool call %s: %s", toolID, truncateForLog(s.redactor.String(fmt.Sprintf("%v", args))))

		result, err := s.dispatcher.Dispatch(ctx, &dispatch.Request{
			ToolID:    toolID,
			Arguments: args,
		})
		if err != nil {
			var model string
			var de *dispatch.DispatchError
			if errors.As(err, &de) {
				model = de.Model
			}
			message := s.redactor.String(err.Error())
			s.log.Warn("Tool call %s failed: %s", toolID, message)
			return errorResult(toolID, model, string(dispatch.KindOf(err)), message), nil
		}

		s.log.Info("Tool call %s completed in %s (model %s, %d retries)", toolID, result.Elapsed, result.Model, result.RetryCount)
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result.Output}},
			StructuredContent: Result{
				RequestID:  result.RequestID,
				ToolID:     result.ToolID,
				Model:      result.Model,
				Output:     result.Output,
				Usage:      result.Usage,
				Truncated:  result.Truncated,
				RetryCount: result.RetryCount,
				Status:     string(result.Status),
			},
		}, nil
	}
}

func errorResult(toolID, model, kind, message string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: kind + ": " + message}},
		StructuredContent: ErrorResult{
			Kind:    kind,
			Message: message,
			ToolID:  toolID,
			Model:   model,
		},
	}
}

// truncateForLog shortens s for a single log line.
func truncateForLog(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLogSnippetLen {
		return s
	}
	cut := maxLogSnippetLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
