package rules

import (
	"encoding/json"
	"reflect"

	"github.com/google/go-cmp/cmp"

	"phasebench/internal/model"
)

// deepCopy round-trips v through JSON so callers get an independent copy
// even when v is built from maps/slices of interface{}, the shape every
// task's TestCase.Input and Expected take. This mirrors Python's
// copy.deepcopy in the original evaluators, generalized to arbitrary
// JSON-shaped data instead of arbitrary Python objects.
func deepCopy(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func call(solution any, args []any) []any {
	fn := reflect.ValueOf(solution)
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.New(fn.Type().In(i)).Elem()
			continue
		}
		in[i] = reflect.ValueOf(a)
	}
	out := fn.Call(in)
	results := make([]any, len(out))
	for i, r := range out {
		results[i] = r.Interface()
	}
	return results
}

// NoMutation calls solution with args, then reports whether any argument
// was mutated in place. scope is "direct" for a top-level change and
// "nested" when only an inner field/element changed (mirroring
// check_no_mutation in the original SaotriBench evaluators).
func NoMutation(solution any, args ...any) model.RuleResult {
	before := make([]any, len(args))
	for i, a := range args {
		before[i] = deepCopy(a)
	}

	call(solution, args)

	for i, a := range args {
		if cmp.Equal(a, before[i]) {
			continue
		}
		if isNested(a, before[i]) {
			return model.Failed("nested")
		}
		return model.Failed("direct")
	}
	return model.Passed()
}

// isNested reports whether only a contained map/slice value changed
// rather than the argument's own top-level shape.
func isNested(after, before any) bool {
	am, aok := after.(map[string]any)
	bm, bok := before.(map[string]any)
	if !aok || !bok {
		return false
	}
	for k, bv := range bm {
		av, ok := am[k]
		if !ok || cmp.Equal(av, bv) {
			continue
		}
		switch bv.(type) {
		case map[string]any, []any:
			return true
		}
	}
	return false
}

// Deterministic calls solution with fresh copies of args N times (3 by
// default in the original evaluators) and fails with scope "ordering" if
// any run's result differs.
func Deterministic(solution any, runs int, args ...any) model.RuleResult {
	if runs <= 0 {
		runs = 3
	}

	var first []any
	for i := 0; i < runs; i++ {
		copied := make([]any, len(args))
		for j, a := range args {
			copied[j] = deepCopy(a)
		}
		results := call(solution, copied)
		if i == 0 {
			first = results
			continue
		}
		if !cmp.Equal(results, first) {
			return model.Failed("ordering")
		}
	}
	return model.Passed()
}
