// Package rules defines the Rule Evaluator Interface (spec §4.C): the
// contract between the Phased Evaluation Engine and a per-task,
// user-supplied evaluator that exposes one check operation per declared
// rule id. It also collects the common rule-family helpers the original
// SaotriBench evaluators shared (no-mutation, determinism) so individual
// task evaluators don't each reimplement deep-copy-and-compare.
package rules

import (
	"fmt"

	"phasebench/internal/model"
)

// Evaluator is implemented by the per-task, task-author-supplied binding
// produced by the Task Loader. Check dispatches to check_<ruleID> on the
// bound evaluator value; the dispatch mechanism (reflection over an
// interpreted Go value, in phasebench's case) is a loader concern, not
// a concern of this interface.
type Evaluator interface {
	Check(ruleID string, solution any, tc model.TestCase) (model.RuleResult, error)
}

// CheckError wraps an error raised while calling check_<ruleID> itself
// (not a failure the rule intentionally reports). Per spec §7, this
// degrades to a violation with scope "error", never a Feedback-level
// error.
type CheckError struct {
	RuleID string
	Err    error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check_%s: %v", e.RuleID, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }
