package consts

import "time"

// Timeouts for provider calls
const (
	// Timeout1Second is a 1 second timeout
	Timeout1Second = 1 * time.Second
	// Timeout8Seconds is an 8 second timeout
	Timeout8Seconds = 8 * time.Second
	// Timeout30Seconds is a 30 second timeout
	Timeout30Seconds = 30 * time.Second
	// Timeout90Seconds is a 90 second timeout
	Timeout90Seconds = 90 * time.Second

	// DefaultRequestTimeout bounds a whole non-streaming provider call
	DefaultRequestTimeout = Timeout30Seconds
	// DefaultFirstTokenTimeout bounds the time to the first streamed chunk
	DefaultFirstTokenTimeout = Timeout90Seconds
	// ShutdownGracePeriod is how long the server waits for in-flight calls on exit
	ShutdownGracePeriod = 5 * time.Second
)

// Retry and backoff defaults
const (
	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 2
	// DefaultBackoffInitial is the delay before the first retry
	DefaultBackoffInitial = Timeout1Second
	// DefaultBackoffFactor multiplies the delay on every further retry
	DefaultBackoffFactor = 2.0
	// DefaultBackoffMax caps a single backoff delay
	DefaultBackoffMax = Timeout8Seconds
	// DefaultBackoffJitter is the fraction of the delay added as random jitter
	DefaultBackoffJitter = 0.2
)

// Context budget defaults
const (
	// DefaultSafetyMargin is the share of the context window never allocated
	DefaultSafetyMargin = 0.07
	// DefaultMinOutputTokens is always reserved for the model's answer
	DefaultMinOutputTokens = 1000
	// DefaultOutputTokens is the desired output budget for non-streaming calls
	DefaultOutputTokens = 4096
	// DefaultStreamingOutputTokens is the desired output budget for streaming calls
	DefaultStreamingOutputTokens = 8192
	// DefaultFileShare is the share of the remaining window given to files
	DefaultFileShare = 0.70
	// DefaultMaxReasoningTokens caps reasoning for the max class
	DefaultMaxReasoningTokens = 12000

	// ReasoningTokensLow is the reasoning budget of the low class
	ReasoningTokensLow = 2000
	// ReasoningTokensMedium is the reasoning budget of the medium class
	ReasoningTokensMedium = 6000
	// ReasoningTokensHigh is the reasoning budget of the high class
	ReasoningTokensHigh = 12000

	// SystemPromptOverheadTokens approximates the fixed system prompt
	SystemPromptOverheadTokens = 200
	// ToolOverheadTokens approximates the tool framing around the prompt
	ToolOverheadTokens = 300
)

// File selection defaults
const (
	// DefaultMinSummaryTokens is the smallest summary worth producing
	DefaultMinSummaryTokens = 50
	// DefaultMaxSummaryTokens caps a single summary
	DefaultMaxSummaryTokens = 500
	// CharsPerToken is the fallback chars-to-token ratio
	CharsPerToken = 4
)

// Provider defaults
const (
	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-5"
	// DefaultMaxConcurrentRequests caps in-flight provider calls
	DefaultMaxConcurrentRequests = 4
	// DefaultContextWindow is assumed for models missing from the capability table
	DefaultContextWindow = 128000
	// DefaultMaxOutput is assumed for models missing from the capability table
	DefaultMaxOutput = 16384
)

// Buffer sizes
const (
	// BufferSize1KB is 1 kilobyte
	BufferSize1KB = 1024
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
)
