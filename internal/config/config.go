package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/codefionn/toolrelay/internal/consts"
	"github.com/codefionn/toolrelay/internal/logger"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by CheckCredentials when no API key is set.
var ErrMissingAPIKey = errors.New("api key is required (set OPENAI_API_KEY or api_key)")

// ReasoningModes lists the accepted reasoning_mode values.
var ReasoningModes = []string{"low", "medium", "high", "max"}

// BudgetConfig tunes the context budget planner and file selector.
type BudgetConfig struct {
	SafetyMargin          float64 `json:"safety_margin" yaml:"safety_margin" jsonschema:"minimum=0,exclusiveMaximum=1"`
	MinOutputTokens       int     `json:"min_output_tokens" yaml:"min_output_tokens" jsonschema:"minimum=0"`
	OutputTokens          int     `json:"output_tokens" yaml:"output_tokens" jsonschema:"minimum=0"`
	StreamingOutputTokens int     `json:"streaming_output_tokens" yaml:"streaming_output_tokens" jsonschema:"minimum=0"`
	FileShare             float64 `json:"file_share" yaml:"file_share" jsonschema:"minimum=0,maximum=1"`
	MinSummaryTokens      int     `json:"min_summary_tokens" yaml:"min_summary_tokens" jsonschema:"minimum=0"`
	MaxSummaryTokens      int     `json:"max_summary_tokens" yaml:"max_summary_tokens" jsonschema:"minimum=0"`
}

// ProviderConfig holds timeouts and throttling for the provider client.
type ProviderConfig struct {
	RequestTimeout        Duration `json:"request_timeout" yaml:"request_timeout"`
	FirstTokenTimeout     Duration `json:"stream_first_token_timeout" yaml:"stream_first_token_timeout"`
	MaxConcurrentRequests int      `json:"max_concurrent_requests" yaml:"max_concurrent_requests" jsonschema:"minimum=1"`
	MinRequestInterval    Duration `json:"min_request_interval,omitempty" yaml:"min_request_interval,omitempty"`
	TokensPerMinute       int      `json:"tokens_per_minute,omitempty" yaml:"tokens_per_minute,omitempty" jsonschema:"minimum=0"`
}

// RetryConfig describes the retry policy for transient provider failures.
type RetryConfig struct {
	MaxRetries int      `json:"max_retries" yaml:"max_retries" jsonschema:"minimum=0"`
	Initial    Duration `json:"initial" yaml:"initial"`
	Factor     float64  `json:"factor" yaml:"factor" jsonschema:"minimum=1"`
	Max        Duration `json:"max" yaml:"max"`
	Jitter     float64  `json:"jitter" yaml:"jitter" jsonschema:"minimum=0,maximum=1"`
}

// ScoringConfig weights the relevance signals used for file selection.
type ScoringConfig struct {
	MentionScore       float64            `json:"mention_score" yaml:"mention_score"`
	ErrorScore         float64            `json:"error_score" yaml:"error_score"`
	RecencyWeight      float64            `json:"recency_weight" yaml:"recency_weight"`
	SizePenaltyPerKTok float64            `json:"size_penalty_per_ktok" yaml:"size_penalty_per_ktok"`
	Cap                float64            `json:"cap" yaml:"cap"`
	ExtensionBase      map[string]float64 `json:"extension_base,omitempty" yaml:"extension_base,omitempty"`
	Keywords           map[string]float64 `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// TracingConfig enables span export over OTLP/gRPC. An empty endpoint keeps
// tracing off.
type TracingConfig struct {
	// Endpoint is host:port or a URL; http:// URLs imply an insecure
	// connection.
	Endpoint   string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure   bool    `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate" jsonschema:"minimum=0,maximum=1"`
}

// Config is constructed once at startup and passed explicitly to the
// dispatcher. Nothing below cmd/ reads the environment.
type Config struct {
	APIKey             string         `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL            string         `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	DefaultModel       string         `json:"default_model" yaml:"default_model"`
	FallbackModels     []string       `json:"fallback_models,omitempty" yaml:"fallback_models,omitempty"`
	ReasoningMode      string         `json:"reasoning_mode" yaml:"reasoning_mode" jsonschema:"enum=low,enum=medium,enum=high,enum=max"`
	MaxReasoningTokens int            `json:"max_reasoning_tokens" yaml:"max_reasoning_tokens" jsonschema:"minimum=0"`
	LogLevel           string         `json:"log_level" yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,enum=none"`
	LogPath            string         `json:"log_path,omitempty" yaml:"log_path,omitempty"`
	MetricsAddr        string         `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
	Budget             BudgetConfig   `json:"budget" yaml:"budget"`
	Provider           ProviderConfig `json:"provider" yaml:"provider"`
	Retry              RetryConfig    `json:"retry" yaml:"retry"`
	Scoring            ScoringConfig  `json:"scoring" yaml:"scoring"`
	Tracing            TracingConfig  `json:"tracing" yaml:"tracing"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "toolrelay")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "toolrelay")
	default:
		if configHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); configHome != "" {
			return filepath.Join(configHome, "toolrelay")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "toolrelay")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultModel:       consts.DefaultModel,
		ReasoningMode:      "medium",
		MaxReasoningTokens: consts.DefaultMaxReasoningTokens,
		LogLevel:           "info",
		Budget: BudgetConfig{
			SafetyMargin:          consts.DefaultSafetyMargin,
			MinOutputTokens:       consts.DefaultMinOutputTokens,
			OutputTokens:          consts.DefaultOutputTokens,
			StreamingOutputTokens: consts.DefaultStreamingOutputTokens,
			FileShare:             consts.DefaultFileShare,
			MinSummaryTokens:      consts.DefaultMinSummaryTokens,
			MaxSummaryTokens:      consts.DefaultMaxSummaryTokens,
		},
		Provider: ProviderConfig{
			RequestTimeout:        Duration(consts.DefaultRequestTimeout),
			FirstTokenTimeout:     Duration(consts.DefaultFirstTokenTimeout),
			MaxConcurrentRequests: consts.DefaultMaxConcurrentRequests,
		},
		Retry: RetryConfig{
			MaxRetries: consts.DefaultMaxRetries,
			Initial:    Duration(consts.DefaultBackoffInitial),
			Factor:     consts.DefaultBackoffFactor,
			Max:        Duration(consts.DefaultBackoffMax),
			Jitter:     consts.DefaultBackoffJitter,
		},
		Scoring: ScoringConfig{
			MentionScore:       100,
			ErrorScore:         95,
			RecencyWeight:      10,
			SizePenaltyPerKTok: 1,
			Cap:                99,
		},
		Tracing: TracingConfig{
			SampleRate: 1,
		},
	}
}

// Load loads configuration from path, merged over DefaultConfig. Files ending
// in .yaml or .yml are parsed as YAML, everything else as JSON. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	config.fillDefaults()
	return config, nil
}

// fillDefaults restores defaults for fields a config file blanked out.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if strings.TrimSpace(c.DefaultModel) == "" {
		c.DefaultModel = def.DefaultModel
	}
	if strings.TrimSpace(c.ReasoningMode) == "" {
		c.ReasoningMode = def.ReasoningMode
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Provider.MaxConcurrentRequests == 0 {
		c.Provider.MaxConcurrentRequests = def.Provider.MaxConcurrentRequests
	}
	if c.Provider.RequestTimeout == 0 {
		c.Provider.RequestTimeout = def.Provider.RequestTimeout
	}
	if c.Provider.FirstTokenTimeout == 0 {
		c.Provider.FirstTokenTimeout = def.Provider.FirstTokenTimeout
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DefaultModel) == "" {
		errs = append(errs, errors.New("default_model must not be empty"))
	}
	for i, model := range c.FallbackModels {
		if strings.TrimSpace(model) == "" {
			errs = append(errs, fmt.Errorf("fallback_models[%d] must not be empty", i))
		}
	}
	if !validReasoningMode(c.ReasoningMode) {
		errs = append(errs, fmt.Errorf("reasoning_mode %q must be one of %s", c.ReasoningMode, strings.Join(ReasoningModes, ", ")))
	}
	if c.MaxReasoningTokens < 0 {
		errs = append(errs, errors.New("max_reasoning_tokens must not be negative"))
	}
	if !logger.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level %q must be one of debug, info, warn, error, none", c.LogLevel))
	}
	if c.Budget.SafetyMargin < 0 || c.Budget.SafetyMargin >= 1 {
		errs = append(errs, fmt.Errorf("budget.safety_margin %.3f must be in [0, 1)", c.Budget.SafetyMargin))
	}
	if c.Budget.FileShare < 0 || c.Budget.FileShare > 1 {
		errs = append(errs, fmt.Errorf("budget.file_share %.3f must be in [0, 1]", c.Budget.FileShare))
	}
	if c.Budget.MinOutputTokens < 0 || c.Budget.OutputTokens < 0 || c.Budget.StreamingOutputTokens < 0 {
		errs = append(errs, errors.New("budget output token values must not be negative"))
	}
	if c.Budget.MinSummaryTokens < 0 || c.Budget.MaxSummaryTokens < c.Budget.MinSummaryTokens {
		errs = append(errs, errors.New("budget summary bounds must satisfy 0 <= min_summary_tokens <= max_summary_tokens"))
	}
	if c.Provider.RequestTimeout <= 0 || c.Provider.FirstTokenTimeout <= 0 {
		errs = append(errs, errors.New("provider timeouts must be positive"))
	}
	if c.Provider.MaxConcurrentRequests < 1 {
		errs = append(errs, errors.New("provider.max_concurrent_requests must be at least 1"))
	}
	if c.Provider.TokensPerMinute < 0 || c.Provider.MinRequestInterval < 0 {
		errs = append(errs, errors.New("provider rate limits must not be negative"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries must not be negative"))
	}
	if c.Retry.Factor < 1 {
		errs = append(errs, errors.New("retry.factor must be at least 1"))
	}
	if c.Retry.Initial < 0 || c.Retry.Max < c.Retry.Initial {
		errs = append(errs, errors.New("retry bounds must satisfy 0 <= initial <= max"))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, errors.New("retry.jitter must be in [0, 1]"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_rate %.3f must be in [0, 1]", c.Tracing.SampleRate))
	}

	return errors.Join(errs...)
}

// CheckCredentials returns ErrMissingAPIKey when no API key is configured.
func (c *Config) CheckCredentials() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.APIKey != "" {
		cp.APIKey = "***"
	}
	return &cp
}

func validReasoningMode(mode string) bool {
	for _, m := range ReasoningModes {
		if mode == m {
			return true
		}
	}
	return false
}
