package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectModelFamily(t *testing.T) {
	tests := []struct {
		modelID  string
		expected ModelFamily
	}{
		{"gpt-5", FamilyGPT5},
		{"GPT-5", FamilyGPT5},
		{"gpt5", FamilyGPT5},
		{"gpt-5-2025-08-07", FamilyGPT5},
		{"openai/gpt-5", FamilyGPT5},
		{"gpt-5-mini", FamilyGPT5Mini},
		{"gpt-5-nano", FamilyGPT5Nano},
		{"gpt-4.1", FamilyGPT41},
		{"gpt-41", FamilyGPT41},
		{"gpt-4o", FamilyGPT4o},
		{"o3", FamilyO3},
		{"o3-mini", FamilyO3Mini},
		{"o4-mini", FamilyO4Mini},
		{"claude-sonnet-4", FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectModelFamily(tt.modelID))
		})
	}
}

func TestLookupCapabilities(t *testing.T) {
	gpt5 := LookupCapabilities("gpt-5")
	assert.Equal(t, 400000, gpt5.ContextWindow)
	assert.Equal(t, 128000, gpt5.MaxReasoning)
	assert.True(t, gpt5.SupportsReasoning)

	gpt41 := LookupCapabilities("gpt-4.1")
	assert.Equal(t, 1000000, gpt41.ContextWindow)
	assert.False(t, gpt41.SupportsReasoning)

	unknown := LookupCapabilities("some-local-model")
	assert.Equal(t, FamilyUnknown, unknown.Family)
	assert.Equal(t, 128000, unknown.ContextWindow)
	assert.False(t, unknown.SupportsReasoning)
}

func TestReasoningCeiling(t *testing.T) {
	assert.Equal(t, 12000, LookupCapabilities("gpt-5").ReasoningCeiling(12000))
	assert.Equal(t, 32000, LookupCapabilities("gpt-5-nano").ReasoningCeiling(100000))
	assert.Equal(t, 64000, LookupCapabilities("gpt-5-mini").ReasoningCeiling(0))
	assert.Zero(t, LookupCapabilities("gpt-4.1").ReasoningCeiling(12000))
}
