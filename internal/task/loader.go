// Package task implements the Task Loader (spec §4.A): parsing a task
// directory into an immutable model.TaskDefinition plus a bound rule
// evaluator, and the trusted (unsandboxed) yaegi interpretation of the
// task author's evaluator.go and tests.go.
package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"phasebench/internal/logging"
	"phasebench/internal/model"
	"phasebench/internal/rules"
)

// Loaded bundles everything the engine needs from one task directory.
type Loaded struct {
	Task      *model.TaskDefinition
	Evaluator rules.Evaluator
	Tests     []model.TestCase
}

// difficultyTier maps a declared difficulty to its expected phase-count
// range, per spec §4.A bullet 2.
var difficultyTier = map[model.Difficulty][2]int{
	model.Easy:   {3, 5},
	model.Medium: {6, 15},
	model.Hard:   {16, 30},
	model.Expert: {31, 50},
}

// Load parses dir (expects task.yaml, problem.md, evaluator.go,
// tests.go) into a Loaded task. Violations of the fatal validation
// contract return an error; tier-mismatch and phase-coverage problems
// are logged as warnings only.
func Load(dir string) (*Loaded, error) {
	log := logging.Get(logging.CategoryLoader)

	taskYAML, err := os.ReadFile(filepath.Join(dir, "task.yaml"))
	if err != nil {
		return nil, fmt.Errorf("task.yaml: %w", err)
	}

	var raw model.TaskDefinition
	if err := yaml.Unmarshal(taskYAML, &raw); err != nil {
		return nil, fmt.Errorf("task.yaml: invalid YAML: %w", err)
	}

	problem, err := os.ReadFile(filepath.Join(dir, "problem.md"))
	if err != nil {
		return nil, fmt.Errorf("problem.md: %w", err)
	}
	raw.Problem = string(problem)

	if err := validatePhases(raw.Phases); err != nil {
		return nil, err
	}
	warnDifficultyTier(log, raw.Difficulty, len(raw.Phases))

	evalSrc, err := os.ReadFile(filepath.Join(dir, "evaluator.go"))
	if err != nil {
		return nil, fmt.Errorf("evaluator.go: %w", err)
	}
	evalValue, err := loadEvaluator(string(evalSrc))
	if err != nil {
		return nil, err
	}
	evaluator := newEvaluator(evalValue)

	testSrc, err := os.ReadFile(filepath.Join(dir, "tests.go"))
	if err != nil {
		return nil, fmt.Errorf("tests.go: %w", err)
	}
	tests, err := loadTestCases(string(testSrc))
	if err != nil {
		return nil, err
	}

	if err := validateRuleBindings(raw.Phases, evaluator, tests); err != nil {
		return nil, err
	}
	warnPhaseCoverage(log, raw.Phases, tests)

	return &Loaded{Task: &raw, Evaluator: evaluator, Tests: tests}, nil
}

// validatePhases enforces the fatal part of spec §4.A's contract: phase
// ids must be 0..N-1 in order, and there must be at least 3 phases.
func validatePhases(phases []model.Phase) error {
	if len(phases) < 3 {
		return fmt.Errorf("task must declare at least 3 phases, got %d", len(phases))
	}
	for i, p := range phases {
		if p.ID != i {
			return fmt.Errorf("phase at index %d has id %d, want %d (phase ids must be 0..N-1 in order)", i, p.ID, i)
		}
	}
	return nil
}

func warnDifficultyTier(log *logging.Logger, difficulty model.Difficulty, phaseCount int) {
	tier, ok := difficultyTier[difficulty]
	if !ok {
		log.Warn("unrecognized difficulty %q", difficulty)
		return
	}
	if phaseCount < tier[0] || phaseCount > tier[1] {
		log.Warn("difficulty %q expects %d-%d phases, task declares %d", difficulty, tier[0], tier[1], phaseCount)
	}
}

// validateRuleBindings enforces the fatal part of spec §4.A's contract:
// every rule.id referenced by any phase must have a corresponding
// check_<id> operation on the evaluator. We probe this by invoking the
// check with the first test case (a zero TestCase when there are no
// tests) and a nil solution; a missing-method error
// from Check is fatal, any other outcome (including a panic recovered
// into a CheckError) just means the binding exists.
func validateRuleBindings(phases []model.Phase, evaluator rules.Evaluator, tests []model.TestCase) error {
	var probe model.TestCase
	if len(tests) > 0 {
		probe = tests[0]
	}

	seen := make(map[string]bool)
	for _, phase := range phases {
		for _, rule := range phase.Rules {
			if seen[rule.ID] {
				continue
			}
			seen[rule.ID] = true
			if _, err := evaluator.Check(rule.ID, nil, probe); err != nil {
				if _, ok := err.(*rules.CheckError); ok {
					continue // method exists, it just panicked on the probe call
				}
				return fmt.Errorf("rule %q: %w", rule.ID, err)
			}
		}
	}
	return nil
}

func warnPhaseCoverage(log *logging.Logger, phases []model.Phase, tests []model.TestCase) {
	covered := make(map[int]bool, len(tests))
	for _, tc := range tests {
		covered[tc.Phase] = true
	}
	var missing []int
	for _, p := range phases {
		if !covered[p.ID] {
			missing = append(missing, p.ID)
		}
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		log.Warn("phases with no test case introduced at their id: %v", missing)
	}
}
