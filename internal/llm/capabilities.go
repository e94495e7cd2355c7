package llm

import (
	"regexp"
	"strings"

	"github.com/codefionn/toolrelay/internal/consts"
)

// ModelFamily represents a family of OpenAI models
type ModelFamily int

const (
	FamilyUnknown ModelFamily = iota
	FamilyGPT5
	FamilyGPT5Mini
	FamilyGPT5Nano
	FamilyGPT41
	FamilyGPT4o
	FamilyO3
	FamilyO3Mini
	FamilyO4Mini
)

func (f ModelFamily) String() string {
	switch f {
	case FamilyGPT5:
		return "gpt-5"
	case FamilyGPT5Mini:
		return "gpt-5-mini"
	case FamilyGPT5Nano:
		return "gpt-5-nano"
	case FamilyGPT41:
		return "gpt-4.1"
	case FamilyGPT4o:
		return "gpt-4o"
	case FamilyO3:
		return "o3"
	case FamilyO3Mini:
		return "o3-mini"
	case FamilyO4Mini:
		return "o4-mini"
	default:
		return "unknown"
	}
}

// Capabilities describes the limits of one model.
type Capabilities struct {
	Family            ModelFamily
	ContextWindow     int
	MaxOutput         int
	MaxReasoning      int
	SupportsReasoning bool
	SupportsStreaming bool
}

var capabilityTable = map[ModelFamily]Capabilities{
	FamilyGPT5:     {ContextWindow: 400000, MaxOutput: 128000, MaxReasoning: 128000, SupportsReasoning: true, SupportsStreaming: true},
	FamilyGPT5Mini: {ContextWindow: 400000, MaxOutput: 128000, MaxReasoning: 64000, SupportsReasoning: true, SupportsStreaming: true},
	FamilyGPT5Nano: {ContextWindow: 400000, MaxOutput: 128000, MaxReasoning: 32000, SupportsReasoning: true, SupportsStreaming: true},
	FamilyGPT41:    {ContextWindow: 1000000, MaxOutput: 32768, SupportsStreaming: true},
	FamilyGPT4o:    {ContextWindow: 128000, MaxOutput: 16384, SupportsStreaming: true},
	FamilyO3:       {ContextWindow: 200000, MaxOutput: 65536, MaxReasoning: 65536, SupportsReasoning: true, SupportsStreaming: true},
	FamilyO3Mini:   {ContextWindow: 200000, MaxOutput: 65536, MaxReasoning: 65536, SupportsReasoning: true, SupportsStreaming: true},
	FamilyO4Mini:   {ContextWindow: 200000, MaxOutput: 100000, MaxReasoning: 100000, SupportsReasoning: true, SupportsStreaming: true},
}

// Aliases are matched after normalization, most specific first.
var familyPatterns = []struct {
	prefix string
	family ModelFamily
}{
	{"gpt5nano", FamilyGPT5Nano},
	{"gpt5mini", FamilyGPT5Mini},
	{"gpt5", FamilyGPT5},
	{"chatgpt5", FamilyGPT5},
	{"gpt41", FamilyGPT41},
	{"gpt4o", FamilyGPT4o},
	{"chatgpt4o", FamilyGPT4o},
	{"o3mini", FamilyO3Mini},
	{"o3", FamilyO3},
	{"o4mini", FamilyO4Mini},
}

var dateSuffix = regexp.MustCompile(`-\d{4}-\d{2}-\d{2}$|-\d{8}$`)

// normalizeModelID lower-cases the id, drops a trailing date stamp and
// removes "-" and "." so that "gpt-4.1" and "gpt41" match.
func normalizeModelID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	id = dateSuffix.ReplaceAllString(id, "")
	return strings.NewReplacer("-", "", ".", "", "_", "").Replace(id)
}

// DetectModelFamily detects the model family from a model ID
func DetectModelFamily(modelID string) ModelFamily {
	id := normalizeModelID(modelID)
	for _, p := range familyPatterns {
		if strings.HasPrefix(id, p.prefix) {
			return p.family
		}
	}
	return FamilyUnknown
}

// LookupCapabilities returns the limits for modelID. Unknown models get a
// conservative default without reasoning support.
func LookupCapabilities(modelID string) Capabilities {
	family := DetectModelFamily(modelID)
	caps, ok := capabilityTable[family]
	if !ok {
		return Capabilities{
			Family:            FamilyUnknown,
			ContextWindow:     consts.DefaultContextWindow,
			MaxOutput:         consts.DefaultMaxOutput,
			SupportsStreaming: true,
		}
	}
	caps.Family = family
	return caps
}

// ReasoningCeiling is the largest reasoning budget a request to this model
// may use, further capped by configured when it is positive. It is zero for
// models without reasoning support.
func (c Capabilities) ReasoningCeiling(configured int) int {
	if !c.SupportsReasoning {
		return 0
	}
	ceiling := c.MaxReasoning
	if configured > 0 && configured < ceiling {
		ceiling = configured
	}
	return ceiling
}
