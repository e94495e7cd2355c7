package summarizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/codefionn/toolrelay/internal/consts"
)

// TokenEstimator estimates token count for text
type TokenEstimator func(text string) int

// DefaultTokenEstimator provides a rough token count estimate (4 chars per token)
func DefaultTokenEstimator(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + consts.CharsPerToken - 1) / consts.CharsPerToken
}

// outlinePattern matches lines that carry structure worth keeping from the
// middle of a file: declarations, signatures and imports.
var outlinePattern = regexp.MustCompile(`^\s*(func|type|class|def|async def|interface|struct|enum|impl|fn|pub fn|package|import|from|export|public|private|protected|module|const|var|let)\b`)

// Extractive shortens text without a model call. It keeps the head of the
// content, declaration lines from the middle and the tail, and marks every
// gap with the number of omitted lines.
type Extractive struct {
	TokenEstimator TokenEstimator
	// HeadShare is the part of the budget spent on leading lines.
	HeadShare float64
	// OutlineShare is held back from the tail for declaration lines from the
	// middle, which also receive whatever head and tail leave unused.
	OutlineShare float64
}

// NewExtractive creates an Extractive summarizer. A nil estimator uses
// DefaultTokenEstimator.
func NewExtractive(estimator TokenEstimator) *Extractive {
	if estimator == nil {
		estimator = DefaultTokenEstimator
	}
	return &Extractive{
		TokenEstimator: estimator,
		HeadShare:      0.5,
		OutlineShare:   0.3,
	}
}

// Summarize returns content reduced to at most maxTokens as measured by the
// estimator. Content that already fits is returned unchanged; an impossible
// budget yields "".
func (s *Extractive) Summarize(content string, maxTokens int) string {
	if maxTokens <= 0 || content == "" {
		return ""
	}
	if s.TokenEstimator(content) <= maxTokens {
		return content
	}

	lines := strings.Split(content, "\n")
	keep := s.pickLines(lines, maxTokens)
	if !anyKept(keep) {
		return s.fit(content, maxTokens)
	}
	return s.fit(assemble(lines, keep), maxTokens)
}

// pickLines chooses the lines to keep. Every line costs its estimate plus
// one for the newline, and every gap costs one marker, so the assembled
// summary stays within maxTokens without further truncation.
func (s *Extractive) pickLines(lines []string, maxTokens int) []bool {
	keep := make([]bool, len(lines))
	cost := func(i int) int { return s.TokenEstimator(lines[i]) + 1 }
	markerCost := s.TokenEstimator(gapMarker(len(lines))) + 1

	// The gap between head and tail always needs one marker.
	budget := maxTokens - markerCost
	if budget <= 0 {
		return keep
	}
	headBudget := int(float64(budget) * s.HeadShare)
	tailBudget := budget - headBudget - int(float64(budget)*s.OutlineShare)

	used := 0
	head := 0
	for head < len(lines) && used+cost(head) <= headBudget {
		used += cost(head)
		keep[head] = true
		head++
	}

	tail := len(lines) - 1
	tailUsed := 0
	for tail > head && tailUsed+cost(tail) <= tailBudget {
		tailUsed += cost(tail)
		keep[tail] = true
		tail--
	}
	used += tailUsed
	if tail < head {
		return keep
	}
	used += markerCost

	// The outline spends whatever head and tail left over. Keeping line i
	// splits the open gap (prev, tail] into the gaps before and after i.
	prev := head - 1
	for i := head; i <= tail; i++ {
		if !outlinePattern.MatchString(lines[i]) {
			continue
		}
		markers := 0
		if i > prev+1 {
			markers++
		}
		if i < tail {
			markers++
		}
		extra := cost(i) + (markers-1)*markerCost
		if used+extra > maxTokens {
			break
		}
		used += extra
		keep[i] = true
		prev = i
	}

	return keep
}

func anyKept(keep []bool) bool {
	for _, k := range keep {
		if k {
			return true
		}
	}
	return false
}

func assemble(lines []string, keep []bool) string {
	var sb strings.Builder
	omitted := 0
	first := true
	writeLine := func(line string) {
		if !first {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		first = false
	}

	for i, line := range lines {
		if !keep[i] {
			omitted++
			continue
		}
		if omitted > 0 {
			writeLine(gapMarker(omitted))
			omitted = 0
		}
		writeLine(line)
	}
	if omitted > 0 {
		writeLine(gapMarker(omitted))
	}
	return sb.String()
}

func gapMarker(omitted int) string {
	return fmt.Sprintf("... [%d lines omitted] ...", omitted)
}

// fit hard-truncates text until the estimator accepts it. This covers single
// huge lines (minified code, logs) that line selection cannot split, and
// estimators that are not additive over lines.
func (s *Extractive) fit(text string, maxTokens int) string {
	limit := maxTokens * consts.CharsPerToken
	for s.TokenEstimator(text) > maxTokens {
		if limit <= 0 {
			return ""
		}
		text, _ = truncateStringToBytes(text, limit)
		limit = limit * 9 / 10
	}
	return text
}

// truncateStringToBytes trims a string to the specified byte limit without breaking characters
func truncateStringToBytes(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}

	var (
		builder strings.Builder
		used    int
	)

	for _, r := range s {
		rb := []byte(string(r))
		if used+len(rb) > limit {
			break
		}
		builder.Write(rb)
		used += len(rb)
	}

	return builder.String(), true
}
