// Package redact scrubs credentials from text that leaves the process: log
// lines and error messages returned to MCP clients. Provider errors echo the
// rejected key often enough that every such string goes through a Redactor.
package redact

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Placeholder replaces every detected secret.
const Placeholder = "[REDACTED]"

// Pattern is one kind of credential.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// Match is one detected secret in a string. Start and End are byte offsets.
type Match struct {
	Pattern string
	Start   int
	End     int
}

var defaultPatterns = []Pattern{
	{Name: "OpenAI Project Key", Regex: regexp.MustCompile(`sk-proj-[a-zA-Z0-9_\-]{32,}`)},
	{Name: "Anthropic API Key", Regex: regexp.MustCompile(`sk-ant-api03-[a-zA-Z0-9_\-]{20,}`)},
	{Name: "OpenAI API Key", Regex: regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`)},
	{Name: "Google API Key", Regex: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{Name: "AWS Access Key ID", Regex: regexp.MustCompile(`(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`)},
	{Name: "GitHub Token", Regex: regexp.MustCompile(`gh[po]_[a-zA-Z0-9]{36}`)},
	{Name: "Slack Token", Regex: regexp.MustCompile(`xox[bp]-[0-9]{10,12}-[0-9]{10,12}-[a-zA-Z0-9\-]{24,}`)},
	{Name: "Bearer Token", Regex: regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.=]{16,}`)},
	{Name: "Private Key", Regex: regexp.MustCompile(`-----BEGIN ([A-Z]+ )?PRIVATE KEY( BLOCK)?-----`)},
}

// Redactor finds and replaces secrets. It is safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []Pattern
	literals []string
}

// New returns a Redactor with the stock credential patterns.
func New() *Redactor {
	return &Redactor{patterns: append([]Pattern(nil), defaultPatterns...)}
}

// AddPattern registers an extra pattern.
func (r *Redactor) AddPattern(p Pattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, p)
}

// AddLiteral registers a known secret, such as the configured API key, that
// is redacted wherever it appears regardless of its shape. Blank values and
// values shorter than eight bytes are ignored.
func (r *Redactor) AddLiteral(secret string) {
	secret = strings.TrimSpace(secret)
	if len(secret) < 8 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Find returns the non-overlapping secrets in s ordered by position. When
// two matches overlap the earlier, then longer, one wins.
func (r *Redactor) Find(s string) []Match {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []Match
	for _, p := range r.patterns {
		for _, loc := range p.Regex.FindAllStringIndex(s, -1) {
			matches = append(matches, Match{Pattern: p.Name, Start: loc[0], End: loc[1]})
		}
	}
	for _, lit := range r.literals {
		for offset := 0; ; {
			i := strings.Index(s[offset:], lit)
			if i < 0 {
				break
			}
			start := offset + i
			matches = append(matches, Match{Pattern: "Configured Secret", Start: start, End: start + len(lit)})
			offset = start + len(lit)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})
	merged := matches[:1]
	for _, m := range matches[1:] {
		last := &merged[len(merged)-1]
		if m.Start < last.End {
			last.End = max(last.End, m.End)
			continue
		}
		merged = append(merged, m)
	}
	return merged
}

// String returns s with every secret replaced by Placeholder.
func (r *Redactor) String(s string) string {
	matches := r.Find(s)
	if len(matches) == 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	prev := 0
	for _, m := range matches {
		sb.WriteString(s[prev:m.Start])
		sb.WriteString(Placeholder)
		prev = m.End
	}
	sb.WriteString(s[prev:])
	return sb.String()
}
