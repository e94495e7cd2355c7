package selection

import (
	"path/filepath"
	"strings"
)

// Extension classes understood by ExtensionBase.
const (
	ExtCode   = "code"
	ExtConfig = "config"
	ExtDoc    = "doc"
	ExtOther  = "other"
)

var extensionClasses = map[string]string{
	".go": ExtCode, ".py": ExtCode, ".js": ExtCode, ".jsx": ExtCode, ".ts": ExtCode,
	".tsx": ExtCode, ".rs": ExtCode, ".java": ExtCode, ".kt": ExtCode, ".scala": ExtCode,
	".c": ExtCode, ".h": ExtCode, ".cc": ExtCode, ".cpp": ExtCode, ".hpp": ExtCode,
	".cs": ExtCode, ".rb": ExtCode, ".php": ExtCode, ".swift": ExtCode, ".sh": ExtCode,
	".sql": ExtCode, ".lua": ExtCode, ".zig": ExtCode,

	".json": ExtConfig, ".yaml": ExtConfig, ".yml": ExtConfig, ".toml": ExtConfig,
	".ini": ExtConfig, ".cfg": ExtConfig, ".conf": ExtConfig, ".env": ExtConfig,
	".xml": ExtConfig, ".mod": ExtConfig, ".properties": ExtConfig,

	".md": ExtDoc, ".rst": ExtDoc, ".txt": ExtDoc, ".adoc": ExtDoc,
}

var configFileNames = map[string]bool{
	"dockerfile": true,
	"makefile":   true,
	"go.sum":     true,
}

// ExtensionClass classifies path as code, config, doc or other.
func ExtensionClass(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if configFileNames[base] {
		return ExtConfig
	}
	if class, ok := extensionClasses[filepath.Ext(base)]; ok {
		return class
	}
	return ExtOther
}

// Scorer computes relevance for candidates that arrive without a score.
// Every input is a field so callers can tune the policy from configuration.
type Scorer struct {
	MentionScore float64
	ErrorScore   float64
	// RecencyWeight is the bonus for the most recent reference, scaled
	// linearly by Candidate.Recency.
	RecencyWeight float64
	ExtensionBase map[string]float64
	// Keywords boost files whose path contains the keyword.
	Keywords map[string]float64
	// PathMatchBoost and ContentMatchBoost reward task words found in the
	// path or in the first ContentScanBytes of content.
	PathMatchBoost    float64
	ContentMatchBoost float64
	ContentScanBytes  int
	// SizePenaltyPerKTok is subtracted per thousand tokens.
	SizePenaltyPerKTok float64
	Cap                float64
}

// DefaultScorer returns the stock weights.
func DefaultScorer() *Scorer {
	return &Scorer{
		MentionScore:  100,
		ErrorScore:    95,
		RecencyWeight: 10,
		ExtensionBase: map[string]float64{
			ExtCode:   50,
			ExtConfig: 40,
			ExtDoc:    30,
			ExtOther:  20,
		},
		PathMatchBoost:     20,
		ContentMatchBoost:  10,
		ContentScanBytes:   1000,
		SizePenaltyPerKTok: 1,
		Cap:                99,
	}
}

// Score returns c's relevance for the given task description. Mentioned
// files outrank error-referenced files, which outrank everything else.
func (s *Scorer) Score(c Candidate, task string) float64 {
	if c.Kind == KindTurn {
		weight := s.RecencyWeight
		if weight <= 0 {
			weight = 1
		}
		return weight * clamp01(c.Recency)
	}
	if c.Mentioned {
		return s.MentionScore
	}
	if c.InError {
		return s.ErrorScore
	}

	score := s.extensionBase(c.ID)
	score += s.RecencyWeight * clamp01(c.Recency)
	score += s.keywordBoost(c, task)
	score -= s.SizePenaltyPerKTok * float64(c.Tokens) / 1000

	ceiling := s.Cap
	if s.ErrorScore > 1 && ceiling >= s.ErrorScore {
		ceiling = s.ErrorScore - 1
	}
	if score > ceiling {
		score = ceiling
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Apply fills in Score for every candidate that has none.
func (s *Scorer) Apply(candidates []Candidate, task string) {
	for i := range candidates {
		if candidates[i].Score == 0 {
			candidates[i].Score = s.Score(candidates[i], task)
		}
	}
}

func (s *Scorer) extensionBase(path string) float64 {
	if s.ExtensionBase == nil {
		return 0
	}
	if base, ok := s.ExtensionBase[ExtensionClass(path)]; ok {
		return base
	}
	return s.ExtensionBase[ExtOther]
}

func (s *Scorer) keywordBoost(c Candidate, task string) float64 {
	path := strings.ToLower(c.ID)
	var boost float64
	for keyword, weight := range s.Keywords {
		if keyword != "" && strings.Contains(path, strings.ToLower(keyword)) {
			boost += weight
		}
	}

	if strings.TrimSpace(task) == "" {
		return boost
	}
	content := c.Content
	if s.ContentScanBytes > 0 && len(content) > s.ContentScanBytes {
		content = content[:s.ContentScanBytes]
	}
	content = strings.ToLower(content)

	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(task)) {
		word = strings.Trim(word, ".,;:!?\"'()[]{}`")
		if len(word) <= 3 || seen[word] {
			continue
		}
		seen[word] = true
		if strings.Contains(path, word) {
			boost += s.PathMatchBoost
		}
		if content != "" && strings.Contains(content, word) {
			boost += s.ContentMatchBoost
		}
	}
	return boost
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
