package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorerPriorities(t *testing.T) {
	s := DefaultScorer()

	mentioned := s.Score(Candidate{ID: "main.go", Mentioned: true, InError: true}, "")
	inError := s.Score(Candidate{ID: "main.go", InError: true}, "")
	incidental := s.Score(Candidate{ID: "main.go", Recency: 1}, "")

	assert.Equal(t, 100.0, mentioned)
	assert.Equal(t, 95.0, inError)
	assert.Less(t, incidental, inError)
}

func TestScorerExtensionBase(t *testing.T) {
	s := DefaultScorer()

	tests := []struct {
		path string
		want float64
	}{
		{"internal/server/server.go", 50},
		{"deploy/values.yaml", 40},
		{"Dockerfile", 40},
		{"README.md", 30},
		{"assets/logo.png", 20},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(Candidate{ID: tt.path}, ""))
		})
	}
}

func TestScorerRecencyIsMonotonic(t *testing.T) {
	s := DefaultScorer()

	old := s.Score(Candidate{ID: "a.go", Recency: 0.2}, "")
	recent := s.Score(Candidate{ID: "a.go", Recency: 0.8}, "")

	assert.Greater(t, recent, old)
	assert.InDelta(t, 58.0, recent, 1e-9)
}

func TestScorerSizePenalty(t *testing.T) {
	s := DefaultScorer()

	assert.Equal(t, 45.0, s.Score(Candidate{ID: "a.go", Tokens: 5000}, ""))
	assert.Equal(t, 0.0, s.Score(Candidate{ID: "a.go", Tokens: 1_000_000}, ""))
}

func TestScorerTaskAndKeywordBoosts(t *testing.T) {
	s := DefaultScorer()

	assert.Equal(t, 70.0, s.Score(Candidate{ID: "internal/parser.go"}, "fix the parser bug"))
	assert.Equal(t, 80.0, s.Score(Candidate{ID: "internal/parser.go", Content: "// parser entry"}, "Fix the parser, bug!"))

	s.Keywords = map[string]float64{"handler": 500}
	boosted := s.Score(Candidate{ID: "api/handler.go"}, "")
	assert.Equal(t, 94.0, boosted)
}

func TestScorerTurnsUseRecency(t *testing.T) {
	s := DefaultScorer()

	older := s.Score(Candidate{Kind: KindTurn, Recency: 0.25}, "")
	newer := s.Score(Candidate{Kind: KindTurn, Recency: 1, Mentioned: true}, "")

	assert.Equal(t, 2.5, older)
	assert.Equal(t, 10.0, newer)
}

func TestScorerApplyKeepsExplicitScores(t *testing.T) {
	s := DefaultScorer()
	candidates := []Candidate{
		{ID: "a.go", Score: 7},
		{ID: "b.md"},
	}

	s.Apply(candidates, "")

	assert.Equal(t, 7.0, candidates[0].Score)
	assert.Equal(t, 30.0, candidates[1].Score)
}

func TestAssignRecency(t *testing.T) {
	candidates := make([]Candidate, 4)
	AssignRecency(candidates)

	got := []float64{candidates[0].Recency, candidates[1].Recency, candidates[2].Recency, candidates[3].Recency}
	assert.Equal(t, []float64{1, 0.75, 0.5, 0.25}, got)
}

func TestMarkMentionsAndErrors(t *testing.T) {
	candidates := []Candidate{
		{ID: "internal/api/handler.go"},
		{ID: "internal/store/db.go"},
		{ID: "cmd/x.go"},
		{ID: "turn-1", Kind: KindTurn},
	}

	MarkMentions(candidates, "Why does Handler.go panic? see turn-1")
	MarkErrors(candidates, "panic: nil map\n\tinternal/store/db.go:42 +0x1d")

	assert.True(t, candidates[0].Mentioned)
	assert.False(t, candidates[1].Mentioned)
	assert.True(t, candidates[1].InError)
	assert.False(t, candidates[2].Mentioned)
	assert.False(t, candidates[3].Mentioned)
}

func TestRelevanceOf(t *testing.T) {
	assert.Equal(t, RelevanceCritical, RelevanceOf(100))
	assert.Equal(t, RelevanceCritical, RelevanceOf(95))
	assert.Equal(t, RelevanceHigh, RelevanceOf(80))
	assert.Equal(t, RelevanceMedium, RelevanceOf(60))
	assert.Equal(t, RelevanceLow, RelevanceOf(50))
	assert.Equal(t, RelevanceMinimal, RelevanceOf(20))
}
