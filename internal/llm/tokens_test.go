package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokenCount(t *testing.T) {
	assert.Equal(t, 0, EstimateTokenCount(""))
	assert.Equal(t, 1, EstimateTokenCount("abc"))
	assert.Equal(t, 2, EstimateTokenCount("abcde"))
	assert.Equal(t, 1, EstimateTokenCount("äöü"))
}

func TestTokenEstimatorCounts(t *testing.T) {
	est := NewTokenEstimator("gpt-5")

	assert.Equal(t, 0, est.Count(""))

	short := est.Count("hello world")
	long := est.Count(strings.Repeat("hello world ", 50))
	assert.Positive(t, short)
	assert.Greater(t, long, short)
}
