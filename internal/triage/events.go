package triage

// Event is the closed union of everything a triage run can emit. Each
// variant maps one-to-one onto a wire tag; the stream adapter type-switches
// over all of them.
type Event interface {
	Kind() string
}

// EmitFunc receives events as a run produces them. Within one lens the order
// is fixed; across lenses events interleave and consumers must key off the
// Agent field.
type EmitFunc func(Event)

// ErrorInfo is the payload of an error event.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StepStart struct {
	Step string `json:"step"`
}

type StepComplete struct {
	Step string `json:"step"`
}

type ReviewStarted struct {
	ReviewID   string `json:"reviewId"`
	FilesTotal int    `json:"filesTotal"`
}

type AgentStart struct {
	Agent string `json:"agent"`
}

type AgentThinking struct {
	Agent   string `json:"agent"`
	Thought string `json:"thought"`
}

type AgentProgress struct {
	Agent    string  `json:"agent"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

type ToolCall struct {
	Agent string `json:"agent"`
	Tool  string `json:"tool"`
	Input string `json:"input"`
}

type ToolResult struct {
	Agent   string `json:"agent"`
	Tool    string `json:"tool"`
	Summary string `json:"summary"`
}

type IssueFound struct {
	Agent string `json:"agent"`
	Issue Issue  `json:"issue"`
}

type AgentComplete struct {
	Agent      string `json:"agent"`
	IssueCount int    `json:"issueCount"`
}

type AgentError struct {
	Agent string `json:"agent"`
	Error string `json:"error"`
}

type OrchestratorStart struct {
	Agents      []string `json:"agents"`
	Concurrency int      `json:"concurrency"`
}

type OrchestratorComplete struct {
	Summary       string     `json:"summary"`
	TotalIssues   int        `json:"totalIssues"`
	LensStats     []LensStat `json:"lensStats"`
	FilesAnalyzed int        `json:"filesAnalyzed"`
}

type Complete struct {
	Result     *Result `json:"result"`
	ReviewID   string  `json:"reviewId"`
	DurationMs int64   `json:"durationMs"`
}

type ErrorEvent struct {
	Error ErrorInfo `json:"error"`
}

func (StepStart) Kind() string            { return "step_start" }
func (StepComplete) Kind() string         { return "step_complete" }
func (ReviewStarted) Kind() string        { return "review_started" }
func (AgentStart) Kind() string           { return "agent_start" }
func (AgentThinking) Kind() string        { return "agent_thinking" }
func (AgentProgress) Kind() string        { return "agent_progress" }
func (ToolCall) Kind() string             { return "tool_call" }
func (ToolResult) Kind() string           { return "tool_result" }
func (IssueFound) Kind() string           { return "issue_found" }
func (AgentComplete) Kind() string        { return "agent_complete" }
func (AgentError) Kind() string           { return "agent_error" }
func (OrchestratorStart) Kind() string    { return "orchestrator_start" }
func (OrchestratorComplete) Kind() string { return "orchestrator_complete" }
func (Complete) Kind() string             { return "complete" }
func (ErrorEvent) Kind() string           { return "error" }
