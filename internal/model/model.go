// Package model holds the immutable data types shared by the loader,
// sandbox, rule evaluators, and the phased evaluation engine.
package model

// Difficulty is the declared difficulty tier of a task.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

// Status is the outcome of a single evaluation attempt.
type Status string

const (
	StatusValid          Status = "valid"
	StatusPartiallyValid Status = "partially_valid"
	// StatusInvalid is reserved by the protocol but never emitted by the
	// engine; status is always valid, partially_valid, or error.
	StatusInvalid Status = "invalid"
	StatusError   Status = "error"
)

// PhaseStatus is the lifecycle state of a single phase.
type PhaseStatus string

const (
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseValid      PhaseStatus = "valid"
	PhaseFailed     PhaseStatus = "failed"
)

// TaskStatus is the terminal or current state of a whole session.
type TaskStatus string

const (
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskInProgress TaskStatus = "in_progress"
)

// Rule is a single named correctness property checked per test case.
type Rule struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description" json:"description"`
	Scopes      []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}

// Phase is an ordered, cumulative-in-intent set of rules.
type Phase struct {
	ID          int    `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
	Rules       []Rule `yaml:"rules" json:"rules"`
}

// Interface describes the candidate's required function signature.
type Interface struct {
	FunctionName   string   `yaml:"function_name" json:"function_name"`
	Signature      string   `yaml:"signature" json:"signature"`
	AllowedImports []string `yaml:"allowed_imports" json:"allowed_imports"`
}

// Execution holds per-call wall-clock limits.
type Execution struct {
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// Limits bounds the number of attempts a session may spend.
type Limits struct {
	MaxAttemptsPerPhase int `yaml:"max_attempts_per_phase" json:"max_attempts_per_phase"`
	MaxTotalAttempts    int `yaml:"max_total_attempts" json:"max_total_attempts"`
}

// TaskDefinition is the immutable, loaded description of one task.
// It is shared read-only by every component that consumes it.
type TaskDefinition struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Difficulty  Difficulty `yaml:"difficulty" json:"difficulty"`
	Interface   Interface  `yaml:"interface" json:"interface"`
	Execution   Execution  `yaml:"execution" json:"execution"`
	Limits      Limits     `yaml:"limits" json:"limits"`
	Phases      []Phase    `yaml:"phases" json:"phases"`

	// Problem is the verbatim contents of problem.md.
	Problem string `yaml:"-" json:"-"`
}

// PhaseAt returns the phase with the given id, or false if out of range.
func (t *TaskDefinition) PhaseAt(id int) (Phase, bool) {
	if id < 0 || id >= len(t.Phases) {
		return Phase{}, false
	}
	return t.Phases[id], true
}

// TestCase is a single fixture; Phase is the earliest phase at which it
// becomes relevant.
type TestCase struct {
	Input    any      `json:"input"`
	Expected any      `json:"expected"`
	Phase    int      `json:"phase"`
	Tags     []string `json:"tags,omitempty"`
}

// RuleResult is the tagged outcome of one check_<rule_id> call.
type RuleResult struct {
	Passed bool
	Scope  string // required iff Passed == false
}

// Passed constructs a passing RuleResult.
func Passed() RuleResult { return RuleResult{Passed: true} }

// Failed constructs a failing RuleResult with the given scope.
func Failed(scope string) RuleResult { return RuleResult{Passed: false, Scope: scope} }

// Violation is a post-aggregation (rule_id, scope, count) tuple.
type Violation struct {
	RuleID string `json:"rule_id"`
	Scope  string `json:"scope"`
	Count  int    `json:"count"`
}

// Summary reports rule pass/fail counts and coverage for one attempt.
type Summary struct {
	RulesTotal  int     `json:"rules_total"`
	RulesPassed int     `json:"rules_passed"`
	RulesFailed int     `json:"rules_failed"`
	Coverage    float64 `json:"coverage"`
}

// Delta reports the change from the previous attempt. Nil when there is
// no previous attempt to compare against.
type Delta struct {
	CoverageChange float64  `json:"coverage_change"`
	NewFailures    []string `json:"new_failures"`
	FixedFailures  []string `json:"fixed_failures"`
}

// ErrorPhase classifies where an ErrorInfo originated.
type ErrorPhase string

const (
	ErrorPhaseExecution ErrorPhase = "execution"
	ErrorPhaseEvaluation ErrorPhase = "evaluation"
)

// ErrorInfo describes why a solution could not be evaluated at all.
type ErrorInfo struct {
	Type    string     `json:"type"`
	Message string     `json:"message"`
	Phase   ErrorPhase `json:"phase"`
}

// Feedback is the full per-attempt document written to feedback.json.
type Feedback struct {
	PhaseID      int         `json:"phase_id"`
	AttemptID    int         `json:"attempt_id"`
	Status       Status      `json:"status"`
	StatusReason string      `json:"status_reason"`
	Violations   []Violation `json:"violations"`
	Summary      Summary     `json:"summary"`
	Delta        *Delta      `json:"delta"`
	Error        *ErrorInfo  `json:"error"`
}

// FailedRuleIDs returns the distinct set of rule ids with a violation.
func (f Feedback) FailedRuleIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(f.Violations))
	for _, v := range f.Violations {
		out[v.RuleID] = struct{}{}
	}
	return out
}

// PhaseResult is one phase's row in the final Report.
type PhaseResult struct {
	PhaseID         int         `json:"phase_id"`
	Status          PhaseStatus `json:"status"`
	Attempts        int         `json:"attempts"`
	FinalCoverage   float64     `json:"final_coverage"`
	DurationSeconds float64     `json:"duration_seconds"`
}

// OverallResult is the session-level outcome in the final Report.
type OverallResult struct {
	Status                TaskStatus `json:"status"`
	TotalAttempts         int        `json:"total_attempts"`
	TotalPhases           int        `json:"total_phases"`
	PhasesCompleted       int        `json:"phases_completed"`
	TotalDurationSeconds  float64    `json:"total_duration_seconds"`
}

// Report is the final snapshot emitted by the Metrics Aggregator.
type Report struct {
	TaskID    string        `json:"task_id"`
	AgentID   string        `json:"agent_id"`
	Timestamp string        `json:"timestamp"`
	Phases    []PhaseResult `json:"phases"`
	Overall   OverallResult `json:"overall"`
}

// InitialTaskMessage is the write-once task.json document.
type InitialTaskMessage struct {
	TaskID    string         `json:"task_id"`
	Problem   string         `json:"problem"`
	Interface Interface      `json:"interface"`
	Limits    map[string]int `json:"limits"`
}

// RuleDescriptor is the trimmed rule shape sent in phase.json.
type RuleDescriptor struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// PhaseMessage is the phase.json document, rewritten on every transition.
type PhaseMessage struct {
	TaskID              string           `json:"task_id"`
	PhaseID             int              `json:"phase_id"`
	PhaseTransition     bool             `json:"phase_transition"`
	Rules               []RuleDescriptor `json:"rules"`
	PreviousFeedback    *Feedback        `json:"previous_feedback"`
	ImplicitEvaluation  *Feedback        `json:"implicit_evaluation,omitempty"`
}
