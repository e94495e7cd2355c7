package mcp

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/toolrelay/internal/dispatch"
	"github.com/codefionn/toolrelay/internal/llm"
	"github.com/codefionn/toolrelay/internal/logger"
	"github.com/codefionn/toolrelay/internal/redact"
	"github.com/codefionn/toolrelay/internal/tools"
)

func newTestSession(t *testing.T, provider llm.ProviderClient, opts ...Option) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	registry, err := tools.NewDefaultRegistry()
	require.NoError(t, err)

	dopts := dispatch.DefaultOptions()
	dopts.Registry = registry
	dopts.Provider = provider
	dopts.MaxRetries = 0
	d, err := dispatch.New(dopts)
	require.NoError(t, err)

	srv, err := NewServer(d, registry, logger.Nop(), "test", opts...)
	require.NoError(t, err)

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := srv.Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		_ = serverSession.Wait()
	})
	return session
}

func echoProvider() llm.ProviderClient {
	return llm.ProviderFunc(func(_ context.Context, req *llm.ProviderRequest) (*llm.ProviderResponse, error) {
		return &llm.ProviderResponse{
			Model:  req.Model,
			Text:   "echo: " + req.Messages[len(req.Messages)-1].Content,
			Usage:  llm.Usage{InputTokens: 7, OutputTokens: 3},
			Status: llm.StatusSuccess,
		}, nil
	})
}

func textOf(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestListToolsExposesCatalogue(t *testing.T) {
	session := newTestSession(t, echoProvider())

	result, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	for _, kind := range tools.Kinds {
		assert.Contains(t, names, kind.String())
	}

	for _, tool := range result.Tools {
		if tool.Name != "debug" {
			continue
		}
		schema, ok := tool.InputSchema.(map[string]any)
		require.True(t, ok, "input schema is %T", tool.InputSchema)
		props, ok := schema["properties"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, props, "prompt")
		assert.Contains(t, props, "error_context")
	}
}

func TestCallToolSuccess(t *testing.T) {
	session := newTestSession(t, echoProvider())

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name: "chat",
		Arguments: map[string]any{
			"prompt": "Is this a good name?",
			"files":  []any{map[string]any{"path": "name.go", "content": "package name\n"}},
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	text := textOf(t, result)
	assert.Contains(t, text, "--- BEGIN FILE: name.go ---")
	assert.Contains(t, text, "Is this a good name?")

	structured, ok := result.StructuredContent.(map[string]any)
	require.True(t, ok, "structured content is %T", result.StructuredContent)
	assert.Equal(t, "chat", structured["tool_id"])
	assert.Equal(t, "gpt-5", structured["model"])
	assert.Equal(t, false, structured["truncated"])
	assert.EqualValues(t, 0, structured["retry_count"])
	assert.NotEmpty(t, structured["request_id"])
}

func TestCallToolInvalidArguments(t *testing.T) {
	var calls atomic.Int32
	provider := llm.ProviderFunc(func(_ context.Context, req *llm.ProviderRequest) (*llm.ProviderResponse, error) {
		calls.Add(1)
		return &llm.ProviderResponse{Model: req.Model, Status: llm.StatusSuccess}, nil
	})
	session := newTestSession(t, provider)

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "codereview",
		Arguments: map[string]any{"review_type": "full"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "invalid_arguments")
	assert.Zero(t, calls.Load())

	structured, ok := result.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "invalid_arguments", structured["kind"])
	assert.Equal(t, "codereview", structured["tool_id"])
}

func TestCallToolProviderFailure(t *testing.T) {
	provider := llm.ProviderFunc(func(_ context.Context, req *llm.ProviderRequest) (*llm.ProviderResponse, error) {
		return nil, llm.NewProviderError(llm.KindAuth, req.Model, errors.New("invalid api key"))
	})
	session := newTestSession(t, provider)

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "chat",
		Arguments: map[string]any{"prompt": "hello"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	structured, ok := result.StructuredContent.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "auth_error", structured["kind"])
	assert.Equal(t, "gpt-5", structured["model"])
	assert.Contains(t, structured["message"], "invalid api key")
}

func TestCallToolRedactsCredentials(t *testing.T) {
	provider := llm.ProviderFunc(func(_ context.Context, req *llm.ProviderRequest) (*llm.ProviderResponse, error) {
		return nil, llm.NewProviderError(llm.KindAuth, req.Model,
			errors.New("Incorrect API key provided: sk-abcdefghijklmnopqrstuvwxyz123456, local-key-42"))
	})
	r := redact.New()
	r.AddLiteral("local-key-42")
	session := newTestSession(t, provider, WithRedactor(r))

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "chat",
		Arguments: map[string]any{"prompt": "hello"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)

	text := textOf(t, result)
	assert.Contains(t, text, redact.Placeholder)
	assert.NotContains(t, text, "sk-abcdefghijklmnopqrstuvwxyz123456")
	assert.NotContains(t, text, "local-key-42")
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	_, err := NewServer(nil, tools.NewRegistry(), nil, "")
	assert.Error(t, err)
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "short", truncateForLog("  short "))
	long := truncateForLog(string(make([]byte, 1000)))
	assert.Len(t, long, maxLogSnippetLen+len("...(truncated)"))
}

func TestTruncateForLogKeepsRunesWhole(t *testing.T) {
	// Two-byte runes starting at odd offsets put the limit mid-rune.
	out := truncateForLog("x" + strings.Repeat("ä", 200))

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "ä...(truncated)"))
	assert.Len(t, out, maxLogSnippetLen-1+len("...(truncated)"))

	emoji := truncateForLog(strings.Repeat("🙂", 100))
	assert.True(t, utf8.ValidString(emoji))
	assert.Equal(t, strings.Repeat("🙂", maxLogSnippetLen/4)+"...(truncated)", emoji)
}
