package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const fixtureTaskYAML = `
id: demo
name: Demo Task
description: adds two numbers
difficulty: easy
interface:
  function_name: Add
  signature: "func Add(a, b int) int"
  allowed_imports: []
execution:
  timeout_seconds: 1
limits:
  max_attempts_per_phase: 5
  max_total_attempts: 20
phases:
  - id: 0
    description: basic correctness
    rules:
      - id: no_mutation
        description: inputs unchanged
  - id: 1
    description: still no mutation
    rules:
      - id: no_mutation
        description: inputs unchanged
  - id: 2
    description: final
    rules:
      - id: no_mutation
        description: inputs unchanged
`

const fixtureEvaluatorGo = `
package main

import (
	"phasebench/internal/model"
	"phasebench/internal/rules"
)

type Evaluator struct{}

func (e Evaluator) check_no_mutation(solution interface{}, tc model.TestCase) model.RuleResult {
	return rules.NoMutation(solution, tc.Input)
}
`

const fixtureTestsGo = `
package main

import "phasebench/internal/model"

var TestCases = []model.TestCase{
	{Input: map[string]interface{}{"a": float64(2), "b": float64(3)}, Expected: float64(5), Phase: 0},
}
`

func writeFixtureTask(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"task.yaml":    fixtureTaskYAML,
		"problem.md":   "# Demo\n",
		"evaluator.go": fixtureEvaluatorGo,
		"tests.go":     fixtureTestsGo,
	}
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	data, _ := io.ReadAll(r)
	return string(data)
}

func TestRunSessionSingleShotEmitsReport(t *testing.T) {
	logger = zap.NewNop()
	taskDir := writeFixtureTask(t)
	ws := t.TempDir()

	source := "package main\n\nfunc Add(a, b int) int { return a + b }\n"
	if err := os.WriteFile(filepath.Join(ws, "solution.go"), []byte(source), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().String("task", taskDir, "")
	cmd.Flags().String("agent-id", "agent-1", "")
	cmd.Flags().Duration("poll-interval", time.Second, "")
	cmd.Flags().Bool("single", true, "")
	workspaceDir = ws

	output := captureStdout(t, func() {
		if err := runSession(cmd, nil); err != nil {
			t.Fatalf("runSession: %v", err)
		}
	})

	if output == "" {
		t.Fatal("expected a report to be written to stdout")
	}
	for _, want := range []string{"demo", "agent-1"} {
		if !strings.Contains(output, want) {
			t.Errorf("report output missing %q:\n%s", want, output)
		}
	}
}
