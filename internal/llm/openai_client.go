package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codefionn/toolrelay/internal/consts"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const openAIProviderName = "openai"

// OpenAIOptions configures an OpenAIClient.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	// RequestTimeout bounds a whole non-streaming call.
	RequestTimeout time.Duration
	// FirstTokenTimeout bounds only the wait for the first streamed chunk.
	FirstTokenTimeout time.Duration
	HTTPClient        *http.Client
}

// OpenAIClient implements ProviderClient on the chat completions API. Retries
// are left to the caller, so the SDK's own retry loop is disabled.
type OpenAIClient struct {
	client            openai.Client
	requestTimeout    time.Duration
	firstTokenTimeout time.Duration
}

// NewOpenAIClient constructs a client that talks directly to the OpenAI API.
func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("openai client requires an API key")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	c := &OpenAIClient{
		client:            openai.NewClient(reqOpts...),
		requestTimeout:    opts.RequestTimeout,
		firstTokenTimeout: opts.FirstTokenTimeout,
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = consts.DefaultRequestTimeout
	}
	if c.firstTokenTimeout <= 0 {
		c.firstTokenTimeout = consts.DefaultFirstTokenTimeout
	}
	return c, nil
}

// Invoke sends req and waits for the full answer.
func (c *OpenAIClient) Invoke(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error) {
	if req == nil {
		return nil, &ProviderError{Kind: KindSchema, Provider: openAIProviderName, Message: "request cannot be nil"}
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, &ProviderError{Kind: KindSchema, Provider: openAIProviderName, Message: "request has no model"}
	}

	params := buildChatParams(req)
	if req.Stream {
		return c.invokeStreaming(ctx, req, params)
	}
	return c.invokeBlocking(ctx, req, params)
}

func (c *OpenAIClient) invokeBlocking(ctx context.Context, req *ProviderRequest, params openai.ChatCompletionNewParams) (*ProviderResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		return nil, classifyOpenAIError(ctx, req.Model, err, false)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &ProviderError{
			Kind:     KindSchema,
			Provider: openAIProviderName,
			Model:    req.Model,
			Message:  "response contained no choices",
		}
	}

	choice := resp.Choices[0]
	model := resp.Model
	if model == "" {
		model = req.Model
	}

	return &ProviderResponse{
		Model:        model,
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Status:       statusForFinish(string(choice.FinishReason)),
		Usage: Usage{
			InputTokens:     int(resp.Usage.PromptTokens),
			OutputTokens:    int(resp.Usage.CompletionTokens),
			ReasoningTokens: int(resp.Usage.CompletionTokensDetails.ReasoningTokens),
		},
	}, nil
}

// invokeStreaming bounds only the time to the first chunk. Once content flows
// the stream runs under the caller's context.
func (c *OpenAIClient) invokeStreaming(ctx context.Context, req *ProviderRequest, params openai.ChatCompletionNewParams) (*ProviderResponse, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var firstTokenExpired atomic.Bool
	timer := time.AfterFunc(c.firstTokenTimeout, func() {
		firstTokenExpired.Store(true)
		cancel()
	})
	defer timer.Stop()

	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	stream := c.client.Chat.Completions.NewStreaming(streamCtx, params)
	defer stream.Close()

	var (
		text      strings.Builder
		usage     Usage
		finish    string
		model     = req.Model
		gotFirst  bool
		chunkErr  error
		anyChoice bool
	)

	for stream.Next() {
		chunk := stream.Current()
		if !gotFirst {
			// The first-token bound is satisfied only if the timer had not fired yet.
			if !timer.Stop() && firstTokenExpired.Load() {
				break
			}
			gotFirst = true
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
			usage = Usage{
				InputTokens:     int(chunk.Usage.PromptTokens),
				OutputTokens:    int(chunk.Usage.CompletionTokens),
				ReasoningTokens: int(chunk.Usage.CompletionTokensDetails.ReasoningTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		anyChoice = true

		choice := chunk.Choices[0]
		if delta := choice.Delta.Content; delta != "" {
			text.WriteString(delta)
			if req.OnChunk != nil {
				if err := req.OnChunk(delta); err != nil {
					chunkErr = err
					cancel()
					break
				}
			}
		}
		if reason := string(choice.FinishReason); reason != "" {
			finish = reason
		}
	}

	if chunkErr != nil {
		return nil, &ProviderError{
			Kind:     KindCancelled,
			Provider: openAIProviderName,
			Model:    req.Model,
			Message:  "stream aborted by consumer",
			Cause:    chunkErr,
		}
	}

	if err := stream.Err(); err != nil || (firstTokenExpired.Load() && !gotFirst) {
		if err == nil {
			err = context.DeadlineExceeded
		}
		if ctx.Err() != nil {
			return nil, classifyOpenAIError(ctx, req.Model, err, false)
		}
		if !gotFirst {
			return nil, classifyOpenAIError(ctx, req.Model, err, firstTokenExpired.Load())
		}
		// Content already reached the consumer; a retry would replay it, so
		// the text so far is returned as a partial answer.
		return &ProviderResponse{
			Model:        model,
			Text:         text.String(),
			Usage:        usage,
			Status:       StatusPartial,
			FinishReason: "error",
		}, nil
	}

	if !anyChoice {
		return nil, &ProviderError{
			Kind:     KindSchema,
			Provider: openAIProviderName,
			Model:    req.Model,
			Message:  "stream ended without any choices",
		}
	}

	return &ProviderResponse{
		Model:        model,
		Text:         text.String(),
		Usage:        usage,
		Status:       statusForFinish(finish),
		FinishReason: finish,
	}, nil
}

func buildChatParams(req *ProviderRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	if req.ReasoningTokens > 0 && req.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	return params
}

func statusForFinish(reason string) Status {
	switch reason {
	case "length", "content_filter":
		return StatusPartial
	default:
		return StatusSuccess
	}
}

// classifyOpenAIError maps SDK and transport failures onto ProviderError.
// parent is the caller's context: if it is done the call was cancelled,
// otherwise a deadline belongs to one of our own timeouts.
func classifyOpenAIError(parent context.Context, model string, err error, timedOut bool) *ProviderError {
	pe := &ProviderError{Provider: openAIProviderName, Model: model, Cause: err}

	var apiErr *openai.Error
	var syntaxErr *json.SyntaxError
	switch {
	case parent.Err() != nil:
		pe.Kind = KindCancelled
		pe.Cause = errors.Join(parent.Err(), err)
	case timedOut:
		pe.Kind = KindTimeout
		pe.Message = "no response before first-token timeout"
	case errors.As(err, &apiErr):
		pe.Status = apiErr.StatusCode
		pe.Kind = KindFromStatus(apiErr.StatusCode)
		if apiErr.Message != "" {
			pe.Message = apiErr.Message
		}
	case errors.As(err, &syntaxErr):
		pe.Kind = KindSchema
	default:
		pe.Kind = KindOf(err)
		if pe.Kind == KindCancelled {
			// Our own timer cancelled the call, not the caller.
			pe.Kind = KindTimeout
		}
	}
	return pe
}
