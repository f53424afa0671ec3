package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"phasebench/internal/model"
)

func sampleReport() model.Report {
	return model.Report{
		TaskID:    "demo",
		AgentID:   "agent-1",
		Timestamp: "2026-07-30T00:00:00Z",
		Phases: []model.PhaseResult{
			{PhaseID: 0, Status: model.PhaseValid, Attempts: 2, FinalCoverage: 1.0, DurationSeconds: 1.5},
			{PhaseID: 1, Status: model.PhaseFailed, Attempts: 5, FinalCoverage: 0.4, DurationSeconds: 3.2},
		},
		Overall: model.OverallResult{
			Status:               model.TaskFailed,
			TotalAttempts:        7,
			TotalPhases:          2,
			PhasesCompleted:      1,
			TotalDurationSeconds: 4.7,
		},
	}
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "json")

	if err := r.Report(sampleReport()); err != nil {
		t.Fatal(err)
	}

	var decoded model.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("reporter did not emit valid JSON: %v", err)
	}
	if decoded.TaskID != "demo" || len(decoded.Phases) != 2 {
		t.Fatalf("round-tripped report = %+v", decoded)
	}
}

func TestReportConsole(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, "console")

	if err := r.Report(sampleReport()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"demo", "agent-1", "FAILED", "Phase 0", "Phase 1", "✓", "✗"} {
		if !strings.Contains(out, want) {
			t.Errorf("console report missing %q:\n%s", want, out)
		}
	}
}

func TestCheckMark(t *testing.T) {
	if checkMark(true) != "✓" {
		t.Errorf("checkMark(true) = %q", checkMark(true))
	}
	if checkMark(false) != "✗" {
		t.Errorf("checkMark(false) = %q", checkMark(false))
	}
}
