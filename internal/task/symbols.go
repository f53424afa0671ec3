package task

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"phasebench/internal/model"
	"phasebench/internal/rules"
)

// modelSymbols exposes the pieces of internal/model that a task's
// trusted evaluator.go and tests.go are allowed to reference: the
// TestCase/RuleResult/Violation value types and the Passed/Failed
// constructors. This table stands in for what `yaegi extract` would
// normally generate from the package at build time; it is hand-written
// here because the loader only needs a handful of symbols, not the
// whole internal/model surface.
func modelSymbols() interp.Exports {
	return interp.Exports{
		"phasebench/internal/model/model": {
			"TestCase":   reflect.ValueOf((*model.TestCase)(nil)),
			"RuleResult": reflect.ValueOf((*model.RuleResult)(nil)),
			"Violation":  reflect.ValueOf((*model.Violation)(nil)),
			"Passed":     reflect.ValueOf(model.Passed),
			"Failed":     reflect.ValueOf(model.Failed),
		},
		"phasebench/internal/rules/rules": {
			"NoMutation":    reflect.ValueOf(rules.NoMutation),
			"Deterministic": reflect.ValueOf(rules.Deterministic),
		},
	}
}
