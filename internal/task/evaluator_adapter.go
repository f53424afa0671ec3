package task

import (
	"fmt"
	"reflect"

	"phasebench/internal/model"
	"phasebench/internal/rules"
	"phasebench/internal/sandbox"
)

// reflectEvaluator adapts an interpreted evaluator.go value to
// rules.Evaluator by dispatching check_<ruleID> through reflection. The
// check_<ruleID> naming (with an underscore, atypical for Go) is a
// deliberate loader convention: it keeps the rule id and the dispatched
// method name identical across the task corpus instead of requiring a
// camel-case mangling step, matching the Python original's
// getattr(self, f"check_{rule.id}") 1:1.
type reflectEvaluator struct {
	value reflect.Value
}

// newEvaluator wraps an interpreted Evaluator instance.
func newEvaluator(v reflect.Value) rules.Evaluator {
	return &reflectEvaluator{value: v}
}

// Check calls check_<ruleID>(solution, tc) on the bound evaluator.
func (e *reflectEvaluator) Check(ruleID string, solution any, tc model.TestCase) (result model.RuleResult, err error) {
	method := e.value.MethodByName("check_" + ruleID)
	if !method.IsValid() {
		return model.RuleResult{}, fmt.Errorf("evaluator does not implement check_%s", ruleID)
	}

	defer func() {
		if r := recover(); r != nil {
			if inv, ok := r.(*sandbox.InvokeFailure); ok {
				panic(inv) // candidate-level failure: let the engine abort the attempt
			}
			err = &rules.CheckError{RuleID: ruleID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	out := method.Call([]reflect.Value{reflect.ValueOf(solution), reflect.ValueOf(tc)})
	if len(out) != 1 {
		return model.RuleResult{}, fmt.Errorf("check_%s must return exactly one model.RuleResult", ruleID)
	}
	res, ok := out[0].Interface().(model.RuleResult)
	if !ok {
		return model.RuleResult{}, fmt.Errorf("check_%s must return model.RuleResult, got %T", ruleID, out[0].Interface())
	}
	return res, nil
}
