package rules

import "testing"

// These helpers operate on args shaped the way TestCase.Input/Expected
// actually arrive in practice: JSON-shaped data (map[string]interface{},
// []interface{}, float64, string, bool), not arbitrary concrete Go types,
// since that is what deepCopy's JSON round-trip produces a comparable copy
// of.

func TestNoMutationPasses(t *testing.T) {
	solution := func(data map[string]interface{}) map[string]interface{} {
		out := make(map[string]interface{}, len(data))
		for k, v := range data {
			out[k] = v
		}
		out["doubled"] = true
		return out
	}

	input := map[string]interface{}{"count": float64(3)}
	result := NoMutation(solution, input)
	if !result.Passed {
		t.Fatalf("expected NoMutation to pass, got scope %q", result.Scope)
	}
}

func TestNoMutationDetectsDirectMutation(t *testing.T) {
	solution := func(data map[string]interface{}) map[string]interface{} {
		data["mutated"] = true
		return data
	}

	input := map[string]interface{}{"count": float64(3)}
	result := NoMutation(solution, input)
	if result.Passed {
		t.Fatal("expected NoMutation to fail on a top-level mutation")
	}
	if result.Scope != "direct" {
		t.Errorf("expected scope %q, got %q", "direct", result.Scope)
	}
}

func TestNoMutationDetectsNestedMutation(t *testing.T) {
	solution := func(data map[string]interface{}) map[string]interface{} {
		inner := data["config"].(map[string]interface{})
		inner["count"] = float64(99)
		return data
	}

	input := map[string]interface{}{
		"config": map[string]interface{}{"count": float64(1)},
	}
	result := NoMutation(solution, input)
	if result.Passed {
		t.Fatal("expected NoMutation to fail on a nested mutation")
	}
	if result.Scope != "nested" {
		t.Errorf("expected scope %q, got %q", "nested", result.Scope)
	}
}

func TestDeterministicPasses(t *testing.T) {
	solution := func(data map[string]interface{}) float64 {
		return data["count"].(float64) * 2
	}

	input := map[string]interface{}{"count": float64(5)}
	result := Deterministic(solution, 3, input)
	if !result.Passed {
		t.Fatalf("expected Deterministic to pass, got scope %q", result.Scope)
	}
}

func TestDeterministicDetectsOrdering(t *testing.T) {
	calls := 0
	solution := func(data map[string]interface{}) int {
		calls++
		return calls
	}

	input := map[string]interface{}{"count": float64(5)}
	result := Deterministic(solution, 3, input)
	if result.Passed {
		t.Fatal("expected Deterministic to fail on varying output")
	}
	if result.Scope != "ordering" {
		t.Errorf("expected scope %q, got %q", "ordering", result.Scope)
	}
}

func TestDeterministicDefaultsRunsWhenNonPositive(t *testing.T) {
	calls := 0
	solution := func(data map[string]interface{}) int {
		calls++
		return 1
	}

	Deterministic(solution, 0, map[string]interface{}{})
	if calls != 3 {
		t.Fatalf("expected runs<=0 to default to 3 calls, got %d", calls)
	}
}
