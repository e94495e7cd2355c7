package tools

// FileArg is a candidate file supplied by the caller.
type FileArg struct {
	Path    string `json:"path" jsonschema:"minLength=1" jsonschema_description:"Path of the file as the caller knows it"`
	Content string `json:"content" jsonschema_description:"Full file content"`
}

// TurnArg is one earlier conversation turn.
type TurnArg struct {
	Role    string `json:"role" jsonschema:"enum=user,enum=assistant"`
	Content string `json:"content"`
}

// BaseArgs are accepted by every tool.
type BaseArgs struct {
	Prompt        string    `json:"prompt" jsonschema:"minLength=1" jsonschema_description:"The request for the model"`
	Model         string    `json:"model,omitempty" jsonschema_description:"Override the configured model"`
	ReasoningMode string    `json:"reasoning_mode,omitempty" jsonschema:"enum=low,enum=medium,enum=high,enum=max" jsonschema_description:"Override the tool's reasoning class"`
	Temperature   *float64  `json:"temperature,omitempty" jsonschema:"minimum=0,maximum=2"`
	Files         []FileArg `json:"files,omitempty" jsonschema_description:"Candidate files in order of recency"`
	History       []TurnArg `json:"history,omitempty" jsonschema_description:"Earlier turns oldest first"`
}

type ChatArgs struct {
	BaseArgs
}

type DebugArgs struct {
	BaseArgs
	ErrorContext string `json:"error_context,omitempty" jsonschema_description:"Error message or stack trace"`
	Hypothesis   string `json:"hypothesis,omitempty"`
}

type CodeReviewArgs struct {
	BaseArgs
	ReviewType string `json:"review_type,omitempty" jsonschema:"enum=full,enum=security,enum=performance,enum=quick"`
	Focus      string `json:"focus,omitempty"`
}

type AnalyzeArgs struct {
	BaseArgs
	AnalysisType string `json:"analysis_type,omitempty" jsonschema:"enum=architecture,enum=performance,enum=security,enum=quality,enum=general"`
}

type RefactorArgs struct {
	BaseArgs
	RefactorType string `json:"refactor_type,omitempty" jsonschema:"enum=codesmells,enum=decompose,enum=modernize,enum=organization"`
}

type PlannerArgs struct {
	BaseArgs
	Constraints []string `json:"constraints,omitempty"`
}

type TestGenArgs struct {
	BaseArgs
	Framework string `json:"framework,omitempty"`
}

type DocGenArgs struct {
	BaseArgs
	Audience string `json:"audience,omitempty"`
}

type SecAuditArgs struct {
	BaseArgs
	ThreatLevel string   `json:"threat_level,omitempty" jsonschema:"enum=low,enum=medium,enum=high,enum=critical"`
	Compliance  []string `json:"compliance,omitempty"`
}

type PreCommitArgs struct {
	BaseArgs
	Diff string `json:"diff,omitempty" jsonschema_description:"Staged changes in unified diff format"`
}

type TracerArgs struct {
	BaseArgs
	TraceMode string `json:"trace_mode,omitempty" jsonschema:"enum=precision,enum=dependencies"`
	Target    string `json:"target,omitempty" jsonschema_description:"Function or symbol to trace"`
}

type ConsensusArgs struct {
	BaseArgs
	Stance string `json:"stance,omitempty" jsonschema:"enum=for,enum=against,enum=neutral"`
}

// ErrorText returns the error context carried in args, if any. Files named
// in it are treated as error-referenced when scoring candidates.
func ErrorText(args map[string]any) string {
	v, _ := args["error_context"].(string)
	return v
}
