package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Environment variables understood by ApplyEnv. Several names may feed the
// same field; the first non-empty one wins.
var envVars = map[string][]string{
	"api_key":              {"OPENAI_API_KEY", "TOOLRELAY_API_KEY"},
	"base_url":             {"OPENAI_BASE_URL"},
	"default_model":        {"DEFAULT_MODEL", "TOOLRELAY_MODEL"},
	"fallback_models":      {"TOOLRELAY_FALLBACK_MODELS"},
	"reasoning_mode":       {"GPT5_DEFAULT_THINKING_MODE", "TOOLRELAY_REASONING_MODE"},
	"max_reasoning_tokens": {"GPT5_MAX_REASONING_TOKENS", "TOOLRELAY_MAX_REASONING_TOKENS"},
	"log_level":            {"LOG_LEVEL", "TOOLRELAY_LOG_LEVEL"},
	"log_path":             {"TOOLRELAY_LOG_PATH"},
	"metrics_addr":         {"TOOLRELAY_METRICS_ADDR"},
	"tracing_endpoint":     {"TOOLRELAY_TRACING_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"},
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

func lookupFirst(lookup LookupFunc, field string) (string, bool) {
	for _, name := range envVars[field] {
		if value, ok := lookup(name); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value, true
			}
		}
	}
	return "", false
}

// ApplyEnv overlays environment values onto c. Only process bootstrap should
// call this; the lookup is injected so nothing else touches the environment.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}

	var errs []error

	if v, ok := lookupFirst(lookup, "api_key"); ok {
		c.APIKey = v
	}
	if v, ok := lookupFirst(lookup, "base_url"); ok {
		c.BaseURL = v
	}
	if v, ok := lookupFirst(lookup, "default_model"); ok {
		c.DefaultModel = v
	}
	if v, ok := lookupFirst(lookup, "fallback_models"); ok {
		c.FallbackModels = splitList(v)
	}
	if v, ok := lookupFirst(lookup, "reasoning_mode"); ok {
		c.ReasoningMode = normalizeReasoningMode(v)
	}
	if v, ok := lookupFirst(lookup, "max_reasoning_tokens"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("max reasoning tokens %q: %w", v, err))
		} else {
			c.MaxReasoningTokens = n
		}
	}
	if v, ok := lookupFirst(lookup, "log_level"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookupFirst(lookup, "log_path"); ok {
		c.LogPath = v
	}
	if v, ok := lookupFirst(lookup, "metrics_addr"); ok {
		c.MetricsAddr = v
	}
	if v, ok := lookupFirst(lookup, "tracing_endpoint"); ok {
		c.Tracing.Endpoint = v
	}

	return errors.Join(errs...)
}

// splitList parses a comma separated list, skipping blanks.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// normalizeReasoningMode accepts the older thinking-mode names too.
func normalizeReasoningMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "minimal", "low":
		return "low"
	case "medium":
		return "medium"
	case "high":
		return "high"
	case "max", "maximum":
		return "max"
	default:
		return strings.ToLower(strings.TrimSpace(mode))
	}
}
