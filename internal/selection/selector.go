package selection

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/codefionn/toolrelay/internal/consts"
	"github.com/codefionn/toolrelay/internal/summarizer"
)

// Summarizer shortens content to at most maxTokens, returning "" when it
// cannot.
type Summarizer interface {
	Summarize(content string, maxTokens int) string
}

// ActionKind describes what happened to a candidate that was not admitted
// verbatim.
type ActionKind string

const (
	ActionSummarized   ActionKind = "summarized"
	ActionDropped      ActionKind = "dropped"
	ActionDeduplicated ActionKind = "deduplicated"
)

// Action records one degradation step.
type Action struct {
	Kind           ActionKind `json:"kind"`
	ID             string     `json:"id"`
	OriginalTokens int        `json:"original_tokens"`
	Tokens         int        `json:"tokens"`
	Reason         string     `json:"reason,omitempty"`
}

// Item is an admitted candidate. For summarized items Content and Tokens
// describe the summary and OriginalTokens the full content.
type Item struct {
	Candidate
	Summarized     bool
	OriginalTokens int
}

// SelectionResult is the ordered, budget-fitting subset of the candidates.
type SelectionResult struct {
	Items      []Item
	Truncated  bool
	Actions    []Action
	UsedTokens int
	Budget     int
}

// Summarized returns the number of items admitted as summaries.
func (r SelectionResult) Summarized() int {
	n := 0
	for _, item := range r.Items {
		if item.Summarized {
			n++
		}
	}
	return n
}

// Dropped returns the ids of candidates that were left out entirely.
func (r SelectionResult) Dropped() []string {
	var ids []string
	for _, a := range r.Actions {
		if a.Kind == ActionDropped || a.Kind == ActionDeduplicated {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Options configures a Selector.
type Options struct {
	// MinSummaryTokens is the smallest summary worth sending.
	MinSummaryTokens int
	// MaxSummaryTokens caps the size of a single summary.
	MaxSummaryTokens int
	// Summarizer may be nil, in which case non-fitting candidates are dropped.
	Summarizer     Summarizer
	TokenEstimator func(string) int
}

// Selector picks candidates for a token budget. It holds no per-request
// state and is safe for concurrent use.
type Selector struct {
	minSummary int
	maxSummary int
	summarizer Summarizer
	estimate   func(string) int
}

// NewSelector creates a Selector, filling zero options with defaults. The
// default summarizer is the extractive one sharing the selector's estimator.
func NewSelector(opts Options) *Selector {
	s := &Selector{
		minSummary: opts.MinSummaryTokens,
		maxSummary: opts.MaxSummaryTokens,
		summarizer: opts.Summarizer,
		estimate:   opts.TokenEstimator,
	}
	if s.minSummary <= 0 {
		s.minSummary = consts.DefaultMinSummaryTokens
	}
	if s.maxSummary <= 0 {
		s.maxSummary = consts.DefaultMaxSummaryTokens
	}
	if s.estimate == nil {
		s.estimate = summarizer.DefaultTokenEstimator
	}
	if s.summarizer == nil {
		s.summarizer = summarizer.NewExtractive(s.estimate)
	}
	return s
}

// NewSelectorWithoutSummaries creates a Selector that drops every candidate
// that does not fit.
func NewSelectorWithoutSummaries(estimator func(string) int) *Selector {
	s := NewSelector(Options{TokenEstimator: estimator})
	s.summarizer = nil
	return s
}

// Select returns the candidates that fit budget. Candidates are ranked by
// score descending, ties going to the shorter candidate and then to input
// order, and admitted greedily. A candidate that does not fit the remaining
// budget but fits the full budget is summarized into what remains; if that
// fails it is dropped. Every such step is recorded in Actions. Select never
// fails and never mutates candidates.
func (s *Selector) Select(candidates []Candidate, budget int) SelectionResult {
	if budget < 0 {
		budget = 0
	}
	result := SelectionResult{Budget: budget}
	if len(candidates) == 0 {
		return result
	}

	pool := make([]Candidate, len(candidates))
	for i, c := range candidates {
		if c.Tokens <= 0 {
			c.Tokens = s.estimate(c.Content)
		}
		pool[i] = c
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].Tokens < pool[j].Tokens
	})

	seenIDs := make(map[string]bool, len(pool))
	seenHashes := make(map[uint64]string, len(pool))
	remaining := budget

	for _, c := range pool {
		if c.ID != "" && seenIDs[c.ID] {
			result.record(Action{Kind: ActionDeduplicated, ID: c.ID, OriginalTokens: c.Tokens, Reason: "duplicate id"})
			continue
		}
		// Turns are deduplicated by id only.
		if c.Content != "" && c.Kind != KindTurn {
			sum := xxhash.Sum64String(c.Content)
			if first, ok := seenHashes[sum]; ok {
				result.record(Action{Kind: ActionDeduplicated, ID: c.ID, OriginalTokens: c.Tokens, Reason: "same content as " + first})
				continue
			}
			seenHashes[sum] = c.ID
		}
		seenIDs[c.ID] = true

		if c.Tokens <= remaining {
			result.Items = append(result.Items, Item{Candidate: c, OriginalTokens: c.Tokens})
			remaining -= c.Tokens
			continue
		}

		result.Truncated = true
		item, action := s.degrade(c, budget, remaining)
		result.Actions = append(result.Actions, action)
		if item != nil {
			result.Items = append(result.Items, *item)
			remaining -= item.Tokens
		}
	}

	result.UsedTokens = budget - remaining
	return result
}

// record notes a duplicate. Duplicates do not set Truncated.
func (r *SelectionResult) record(a Action) {
	r.Actions = append(r.Actions, a)
}

func (s *Selector) degrade(c Candidate, budget, remaining int) (*Item, Action) {
	drop := func(reason string) (*Item, Action) {
		return nil, Action{Kind: ActionDropped, ID: c.ID, OriginalTokens: c.Tokens, Reason: reason}
	}

	switch {
	case c.Tokens > budget:
		return drop("larger than the whole budget")
	case s.summarizer == nil:
		return drop("does not fit remaining budget")
	case c.Content == "":
		return drop("no content to summarize")
	}

	target := min(remaining, s.maxSummary)
	if target < s.minSummary {
		return drop(fmt.Sprintf("only %d tokens left, below minimum summary of %d", remaining, s.minSummary))
	}

	summary := s.summarizer.Summarize(c.Content, target)
	tokens := s.estimate(summary)
	if summary == "" || tokens > remaining {
		return drop("summary does not fit remaining budget")
	}

	summarized := c
	summarized.Content = summary
	summarized.Tokens = tokens
	return &Item{Candidate: summarized, Summarized: true, OriginalTokens: c.Tokens},
		Action{Kind: ActionSummarized, ID: c.ID, OriginalTokens: c.Tokens, Tokens: tokens}
}
