package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/codefionn/toolrelay/internal/consts"
	"github.com/pkoukk/tiktoken-go"
)

// EstimateTokenCount returns a rough token estimate for the provided content.
func EstimateTokenCount(content string) int {
	return charsToTokens(utf8.RuneCountInString(content))
}

func charsToTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + consts.CharsPerToken - 1) / consts.CharsPerToken
}

// TokenEstimator counts tokens with the model's BPE encoding when one is
// available and falls back to the chars/4 heuristic otherwise. The encoding
// is loaded lazily on first use.
type TokenEstimator struct {
	model   string
	once    sync.Once
	encoder *tiktoken.Tiktoken
}

// NewTokenEstimator returns an estimator for modelID.
func NewTokenEstimator(modelID string) *TokenEstimator {
	return &TokenEstimator{model: modelID}
}

// Approximate reports whether counts come from the heuristic.
func (e *TokenEstimator) Approximate() bool {
	e.load()
	return e.encoder == nil
}

// Count returns the token count of text.
func (e *TokenEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	e.load()
	if e.encoder != nil {
		return len(e.encoder.Encode(text, nil, nil))
	}
	return EstimateTokenCount(text)
}

func (e *TokenEstimator) load() {
	e.once.Do(func() {
		e.encoder = encodingForModel(e.model)
	})
}

func encodingForModel(modelID string) *tiktoken.Tiktoken {
	if modelID != "" {
		if encoder, err := tiktoken.EncodingForModel(modelID); err == nil {
			return encoder
		}
	}
	for _, name := range []string{"o200k_base", "cl100k_base"} {
		if encoder, err := tiktoken.GetEncoding(name); err == nil {
			return encoder
		}
	}
	return nil
}
