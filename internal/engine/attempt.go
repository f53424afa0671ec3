package engine

import (
	"fmt"
	"sort"
	"strings"

	"phasebench/internal/model"
	"phasebench/internal/sandbox"
)

// violKey is the (rule_id, scope) grouping key for aggregated violations.
type violKey struct {
	ruleID string
	scope  string
}

// evaluate runs spec §4.D's attempt algorithm against source under
// phaseID, without mutating Session state — callers decide how (or
// whether) the result folds into Phase State, which lets the same
// function serve both real attempts and implicit re-evaluations.
func (s *Session) evaluate(source string, phaseID int, prevFeedback *model.Feedback, prevFailedIDs map[string]struct{}) model.Feedback {
	phase, _ := s.task.PhaseAt(phaseID)

	if isEmptySource(source) {
		return s.errorFeedback(phaseID, phase, &model.ErrorInfo{
			Type:    "EmptyCode",
			Message: "no candidate source submitted",
			Phase:   model.ErrorPhaseExecution,
		})
	}

	callable, errInfo := s.sandbox.Prepare(source, s.task.Interface.FunctionName, s.task.Interface.AllowedImports)
	if errInfo != nil {
		return s.errorFeedback(phaseID, phase, errInfo)
	}

	solution := wrapCallable(s.sandbox, callable, s.invokeTimeout())

	relevant := relevantTests(s.tests, phaseID)
	counts := make(map[violKey]int)
	cleanTests := 0

	for _, tc := range relevant {
		clean := true
		for _, rule := range phase.Rules {
			result, abort := s.checkRule(rule.ID, solution, tc)
			if abort != nil {
				return s.errorFeedback(phaseID, phase, abort)
			}
			if !result.Passed {
				counts[violKey{ruleID: rule.ID, scope: result.Scope}]++
				clean = false
			}
		}
		if clean {
			cleanTests++
		}
	}

	coverage := 1.0
	if len(relevant) > 0 {
		coverage = float64(cleanTests) / float64(len(relevant))
	}

	violations, failedRuleIDs := sortedViolations(counts)

	rulesTotal := len(phase.Rules)
	rulesFailed := len(failedRuleIDs)
	rulesPassed := rulesTotal - rulesFailed

	status := model.StatusValid
	reason := "All rules pass"
	if len(violations) > 0 {
		status = model.StatusPartiallyValid
		reason = fmt.Sprintf("Fails checks: %s", strings.Join(sortedKeys(failedRuleIDs), ", "))
	}

	fb := model.Feedback{
		PhaseID:      phaseID,
		Status:       status,
		StatusReason: reason,
		Violations:   violations,
		Summary: model.Summary{
			RulesTotal:  rulesTotal,
			RulesPassed: rulesPassed,
			RulesFailed: rulesFailed,
			Coverage:    coverage,
		},
	}
	fb.Delta = computeDelta(prevFeedback, prevFailedIDs, coverage, failedRuleIDs)
	return fb
}

// errorFeedback builds the Feedback shape required by spec §4.D step 1
// for any condition that prevents evaluation from running at all.
func (s *Session) errorFeedback(phaseID int, phase model.Phase, errInfo *model.ErrorInfo) model.Feedback {
	return model.Feedback{
		PhaseID:      phaseID,
		Status:       model.StatusError,
		StatusReason: fmt.Sprintf("%s: %s", errInfo.Type, errInfo.Message),
		Violations:   []model.Violation{},
		Summary: model.Summary{
			RulesTotal:  len(phase.Rules),
			RulesPassed: 0,
			RulesFailed: 0,
			Coverage:    0,
		},
		Delta: nil,
		Error: errInfo,
	}
}

// checkRule calls evaluator.Check with panic protection. A recovered
// *sandbox.InvokeFailure (the candidate itself panicked or timed out)
// is reported as an attempt-aborting error; any other panic, or a
// returned *rules.CheckError, degrades to a scope="error" violation for
// this rule alone, per spec §7's rule-check-time handling.
func (s *Session) checkRule(ruleID string, solution any, tc model.TestCase) (result model.RuleResult, abort *model.ErrorInfo) {
	defer func() {
		if r := recover(); r != nil {
			if inv, ok := r.(*sandbox.InvokeFailure); ok {
				abort = inv.Info
				return
			}
			result = model.Failed("error")
		}
	}()

	res, err := s.evaluator.Check(ruleID, solution, tc)
	if err != nil {
		return model.Failed("error"), nil
	}
	return res, nil
}

// relevantTests returns tests with phase <= phaseID, preserving declared
// order (spec §5: "tests are processed in declared order").
func relevantTests(tests []model.TestCase, phaseID int) []model.TestCase {
	var out []model.TestCase
	for _, t := range tests {
		if t.Phase <= phaseID {
			out = append(out, t)
		}
	}
	return out
}

// sortedViolations renders the (rule_id, scope) count map into the
// lexicographically sorted slice spec §5 requires for deterministic
// output, alongside the set of distinct failed rule ids.
func sortedViolations(counts map[violKey]int) ([]model.Violation, map[string]struct{}) {
	keys := make([]violKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ruleID != keys[j].ruleID {
			return keys[i].ruleID < keys[j].ruleID
		}
		return keys[i].scope < keys[j].scope
	})

	violations := make([]model.Violation, 0, len(keys))
	failed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		violations = append(violations, model.Violation{RuleID: k.ruleID, Scope: k.scope, Count: counts[k]})
		failed[k.ruleID] = struct{}{}
	}
	return violations, failed
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// computeDelta computes the symmetric-difference delta required by
// testable property #5, or nil when there is no previous attempt.
func computeDelta(prev *model.Feedback, prevFailed map[string]struct{}, coverage float64, curFailed map[string]struct{}) *model.Delta {
	if prev == nil {
		return nil
	}

	var newFailures, fixedFailures []string
	for id := range curFailed {
		if _, ok := prevFailed[id]; !ok {
			newFailures = append(newFailures, id)
		}
	}
	for id := range prevFailed {
		if _, ok := curFailed[id]; !ok {
			fixedFailures = append(fixedFailures, id)
		}
	}
	sort.Strings(newFailures)
	sort.Strings(fixedFailures)

	return &model.Delta{
		CoverageChange: coverage - prev.Summary.Coverage,
		NewFailures:    newFailures,
		FixedFailures:  fixedFailures,
	}
}
