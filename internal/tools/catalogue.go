package tools

import "github.com/codefionn/toolrelay/internal/budget"

const (
	temperatureAnalytical = 0.2
	temperatureBalanced   = 0.5
	temperatureCreative   = 0.7
)

// DefaultCatalogue returns the built-in tool specs in registration order.
func DefaultCatalogue() []ToolSpec {
	return []ToolSpec{
		{
			ID:              KindChat,
			Title:           "Chat",
			Description:     "General conversation and collaborative thinking about code and design.",
			Temperature:     temperatureBalanced,
			PreferredModels: []string{"gpt-5-mini", "gpt-5-nano", "gpt-5"},
			SystemPrompt:    "You are a senior engineer acting as a thinking partner. Answer directly and concretely, and say when you are unsure.",
			Args:            &ChatArgs{},
		},
		{
			ID:              KindDebug,
			Title:           "Debug",
			Description:     "Root cause analysis for bugs, crashes and failing tests.",
			Class:           budget.ClassHigh,
			Temperature:     temperatureAnalytical,
			PreferredModels: []string{"gpt-5", "o3"},
			SystemPrompt:    "You are an expert debugger. Work from the evidence in the supplied files and error output, rank hypotheses by likelihood and propose the minimal fix for the most likely cause.",
			Args:            &DebugArgs{},
		},
		{
			ID:              KindCodeReview,
			Title:           "Code review",
			Description:     "Review code for bugs, security issues, performance and maintainability.",
			Class:           budget.ClassHigh,
			Temperature:     temperatureAnalytical,
			PreferredModels: []string{"gpt-5", "gpt-4.1"},
			SystemPrompt:    "You are a meticulous code reviewer. Report concrete issues with file and line references, ordered by severity, and suggest a fix for each.",
			Args:            &CodeReviewArgs{},
		},
		{
			ID:              KindAnalyze,
			Title:           "Analyze",
			Description:     "Analyze architecture, dependencies and code quality across files.",
			Class:           budget.ClassHigh,
			Temperature:     temperatureCreative,
			PreferredModels: []string{"gpt-5", "gpt-4.1"},
			SystemPrompt:    "You are a software architect. Describe how the supplied code is structured, where the risks are and which changes would pay off most.",
			Args:            &AnalyzeArgs{},
		},
		{
			ID:              KindRefactor,
			Title:           "Refactor",
			Description:     "Suggest refactorings: code smells, decomposition, modernization, organization.",
			Class:           budget.ClassMedium,
			Temperature:     temperatureBalanced,
			PreferredModels: []string{"gpt-4.1", "gpt-5"},
			SystemPrompt:    "You are a refactoring specialist. Propose behavior-preserving changes in small steps and show the resulting code.",
			Args:            &RefactorArgs{},
		},
		{
			ID:              KindPlanner,
			Title:           "Planner",
			Description:     "Break a task down into an ordered, reviewable plan.",
			Class:           budget.ClassMedium,
			Temperature:     temperatureCreative,
			PreferredModels: []string{"gpt-4.1", "gpt-5"},
			SystemPrompt:    "You are a technical planner. Produce a numbered plan with dependencies between steps and a short risk list.",
			Args:            &PlannerArgs{},
		},
		{
			ID:              KindTestGen,
			Title:           "Test generation",
			Description:     "Generate tests covering behavior and edge cases of the supplied code.",
			Class:           budget.ClassMedium,
			Temperature:     temperatureBalanced,
			PreferredModels: []string{"gpt-5", "gpt-5-mini"},
			SystemPrompt:    "You write focused, deterministic tests. Cover edge cases and failure paths and follow the existing test style of the project.",
			Args:            &TestGenArgs{},
		},
		{
			ID:              KindDocGen,
			Title:           "Documentation",
			Description:     "Write or improve documentation for the supplied code.",
			Class:           budget.ClassLow,
			Temperature:     temperatureBalanced,
			PreferredModels: []string{"gpt-5-mini", "gpt-5"},
			SystemPrompt:    "You write concise technical documentation. Document behavior, parameters and failure modes without restating the code.",
			Args:            &DocGenArgs{},
		},
		{
			ID:              KindSecAudit,
			Title:           "Security audit",
			Description:     "Audit code for vulnerabilities and compliance gaps.",
			Class:           budget.ClassMax,
			Temperature:     temperatureAnalytical,
			PreferredModels: []string{"gpt-5", "o3"},
			SystemPrompt:    "You are a security auditor. Identify exploitable weaknesses, rate each by severity and give a remediation.",
			Args:            &SecAuditArgs{},
		},
		{
			ID:              KindPreCommit,
			Title:           "Pre-commit check",
			Description:     "Validate staged changes before they are committed.",
			Class:           budget.ClassMedium,
			Temperature:     temperatureAnalytical,
			PreferredModels: []string{"gpt-5", "gpt-4.1"},
			SystemPrompt:    "You validate changes before commit. Check the diff for regressions, missing tests and incomplete edits.",
			Args:            &PreCommitArgs{},
		},
		{
			ID:              KindTracer,
			Title:           "Tracer",
			Description:     "Trace call flow or dependencies of a symbol through the code.",
			Class:           budget.ClassMedium,
			Temperature:     temperatureAnalytical,
			PreferredModels: []string{"gpt-5", "gpt-4.1"},
			SystemPrompt:    "You trace code paths. Follow the target through callers and callees and report the flow with file references.",
			Args:            &TracerArgs{},
		},
		{
			ID:              KindConsensus,
			Title:           "Consensus",
			Description:     "Argue a proposal from a given stance to support a decision.",
			Temperature:     temperatureCreative,
			PreferredModels: []string{"gpt-5", "gpt-4.1", "o3"},
			SystemPrompt:    "You evaluate a technical proposal from the requested stance. Give the strongest arguments, then an honest overall verdict.",
			Args:            &ConsensusArgs{},
		},
	}
}

// NewDefaultRegistry registers DefaultCatalogue.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, spec := range DefaultCatalogue() {
		if err := r.Register(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}
