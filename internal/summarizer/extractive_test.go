package summarizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func goSource(functions int) string {
	var sb strings.Builder
	sb.WriteString("package sample\n\nimport \"fmt\"\n\n")
	for i := 0; i < functions; i++ {
		fmt.Fprintf(&sb, "func Handler%d(x int) int {\n", i)
		for j := 0; j < 8; j++ {
			fmt.Fprintf(&sb, "\tx = x*%d + %d // step\n", j+1, i)
		}
		sb.WriteString("\treturn x\n}\n\n")
	}
	sb.WriteString("// end of file\n")
	return sb.String()
}

func TestSummarizeReturnsFittingContentUnchanged(t *testing.T) {
	s := NewExtractive(nil)
	assert.Equal(t, "short text", s.Summarize("short text", 100))
}

func TestSummarizeRespectsBudget(t *testing.T) {
	s := NewExtractive(nil)
	content := goSource(40)

	for _, budget := range []int{50, 120, 300, 800} {
		summary := s.Summarize(content, budget)
		assert.LessOrEqual(t, DefaultTokenEstimator(summary), budget, "budget %d", budget)
		assert.NotEmpty(t, summary)
	}
}

func TestSummarizeKeepsHeadOutlineAndTail(t *testing.T) {
	s := NewExtractive(nil)
	content := goSource(40)

	summary := s.Summarize(content, 400)

	assert.True(t, strings.HasPrefix(summary, "package sample"))
	assert.Contains(t, summary, "lines omitted")
	assert.Contains(t, summary, "func Handler5(x int) int {")
	assert.Contains(t, summary, "// end of file")
}

func TestSummarizeChargesEveryGapMarker(t *testing.T) {
	s := NewExtractive(nil)
	content := goSource(40)
	original := map[string]bool{}
	for _, line := range strings.Split(content, "\n") {
		original[line] = true
	}

	for _, budget := range []int{50, 120, 300, 400, 800} {
		summary := s.Summarize(content, budget)

		assert.LessOrEqual(t, DefaultTokenEstimator(summary), budget, "budget %d", budget)
		assert.True(t, strings.HasSuffix(summary, "// end of file\n"), "budget %d lost the tail", budget)
		for _, line := range strings.Split(summary, "\n") {
			if strings.Contains(line, "lines omitted") {
				continue
			}
			assert.True(t, original[line], "budget %d: line %q is not a line of the input", budget, line)
		}
	}
}

func TestSummarizeSingleHugeLine(t *testing.T) {
	s := NewExtractive(nil)
	content := strings.Repeat("x", 10000)

	summary := s.Summarize(content, 60)

	assert.NotEmpty(t, summary)
	assert.LessOrEqual(t, DefaultTokenEstimator(summary), 60)
}

func TestSummarizeImpossibleBudget(t *testing.T) {
	s := NewExtractive(nil)
	assert.Empty(t, s.Summarize(goSource(3), 0))
	assert.Empty(t, s.Summarize("", 10))
}

func TestSummarizeCustomEstimator(t *testing.T) {
	words := func(text string) int { return len(strings.Fields(text)) }
	s := NewExtractive(words)

	content := strings.Repeat("alpha beta gamma delta\n", 100)
	summary := s.Summarize(content, 80)

	assert.LessOrEqual(t, words(summary), 80)
	assert.Contains(t, summary, "alpha beta gamma delta")
}

func TestTruncateStringToBytesKeepsRunes(t *testing.T) {
	out, truncated := truncateStringToBytes("ääää", 5)
	assert.True(t, truncated)
	assert.Equal(t, "ää", out)

	out, truncated = truncateStringToBytes("abc", 5)
	assert.False(t, truncated)
	assert.Equal(t, "abc", out)
}
