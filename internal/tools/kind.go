package tools

import "strings"

// ToolKind identifies a tool. The set is closed: the registry only accepts
// the kinds listed in Kinds.
type ToolKind string

const (
	KindChat       ToolKind = "chat"
	KindDebug      ToolKind = "debug"
	KindCodeReview ToolKind = "codereview"
	KindAnalyze    ToolKind = "analyze"
	KindRefactor   ToolKind = "refactor"
	KindPlanner    ToolKind = "planner"
	KindTestGen    ToolKind = "testgen"
	KindDocGen     ToolKind = "docgen"
	KindSecAudit   ToolKind = "secaudit"
	KindPreCommit  ToolKind = "precommit"
	KindTracer     ToolKind = "tracer"
	KindConsensus  ToolKind = "consensus"
)

// Kinds lists every tool kind in catalogue order.
var Kinds = []ToolKind{
	KindChat,
	KindDebug,
	KindCodeReview,
	KindAnalyze,
	KindRefactor,
	KindPlanner,
	KindTestGen,
	KindDocGen,
	KindSecAudit,
	KindPreCommit,
	KindTracer,
	KindConsensus,
}

func (k ToolKind) String() string {
	return string(k)
}

// Valid reports whether k is one of Kinds.
func (k ToolKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func normalizeID(id string) ToolKind {
	return ToolKind(strings.ToLower(strings.TrimSpace(id)))
}
