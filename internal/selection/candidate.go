package selection

import "strings"

// Kind distinguishes file context from conversation turns.
type Kind string

const (
	KindFile Kind = "file"
	KindTurn Kind = "turn"
)

// Candidate is a unit of context competing for room in a request.
type Candidate struct {
	// ID is the file path for files and a stable turn id for turns.
	ID      string
	Kind    Kind
	Role    string
	Content string
	// Tokens is the estimated length. Zero means "estimate from Content".
	Tokens int
	// Score is the relevance, higher is more important. Zero means "let the
	// Scorer decide".
	Score float64

	// Signals consumed by the Scorer.
	Mentioned bool
	InError   bool
	// Recency is in [0,1], 1 being the most recently referenced.
	Recency float64
}

// Relevance buckets a score for display.
type Relevance string

const (
	RelevanceCritical Relevance = "critical"
	RelevanceHigh     Relevance = "high"
	RelevanceMedium   Relevance = "medium"
	RelevanceLow      Relevance = "low"
	RelevanceMinimal  Relevance = "minimal"
)

var relevanceOrder = []Relevance{RelevanceCritical, RelevanceHigh, RelevanceMedium, RelevanceLow, RelevanceMinimal}

// RelevanceOf maps a score onto its bucket.
func RelevanceOf(score float64) Relevance {
	switch {
	case score >= 95:
		return RelevanceCritical
	case score >= 80:
		return RelevanceHigh
	case score >= 60:
		return RelevanceMedium
	case score >= 40:
		return RelevanceLow
	default:
		return RelevanceMinimal
	}
}

// AssignRecency sets Recency on candidates ordered most recent first: the
// first gets 1, the last 1/n.
func AssignRecency(candidates []Candidate) {
	n := len(candidates)
	for i := range candidates {
		candidates[i].Recency = 1 - float64(i)/float64(n)
	}
}

// MarkMentions sets Mentioned on files named in text.
func MarkMentions(candidates []Candidate, text string) {
	markNamed(candidates, text, func(c *Candidate) { c.Mentioned = true })
}

// MarkErrors sets InError on files named in an error message or trace.
func MarkErrors(candidates []Candidate, text string) {
	markNamed(candidates, text, func(c *Candidate) { c.InError = true })
}

// markNamed matches on the full path or on the base name. Base names shorter
// than four characters are ignored.
func markNamed(candidates []Candidate, text string, mark func(*Candidate)) {
	if strings.TrimSpace(text) == "" {
		return
	}
	lower := strings.ToLower(text)
	for i := range candidates {
		c := &candidates[i]
		if c.Kind == KindTurn || c.ID == "" {
			continue
		}
		path := strings.ToLower(c.ID)
		if strings.Contains(lower, path) {
			mark(c)
			continue
		}
		base := path
		if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
			base = path[idx+1:]
		}
		if len(base) >= 4 && strings.Contains(lower, base) {
			mark(c)
		}
	}
}
