package metrics

import (
	"testing"

	"phasebench/internal/model"
)

func TestRecordAttemptAccumulates(t *testing.T) {
	c := NewCollector("demo", "agent-1")

	c.RecordAttempt(0, model.Feedback{Summary: model.Summary{Coverage: 0.5}})
	c.RecordAttempt(0, model.Feedback{Summary: model.Summary{Coverage: 0.8}})

	report := c.GenerateReport("2026-07-30T00:00:00Z")
	if len(report.Phases) != 1 {
		t.Fatalf("expected 1 phase, got %d", len(report.Phases))
	}
	p := report.Phases[0]
	if p.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", p.Attempts)
	}
	if p.FinalCoverage != 0.8 {
		t.Errorf("expected final coverage 0.8, got %f", p.FinalCoverage)
	}
	if report.Overall.TotalAttempts != 2 {
		t.Errorf("expected total attempts 2, got %d", report.Overall.TotalAttempts)
	}
}

func TestMergeImplicitDoesNotCountAsAttempt(t *testing.T) {
	c := NewCollector("demo", "agent-1")

	c.RecordAttempt(0, model.Feedback{Summary: model.Summary{Coverage: 1.0}})
	c.CompletePhase(0)
	c.MergeImplicit(1, model.Feedback{Summary: model.Summary{Coverage: 1.0}})

	report := c.GenerateReport("2026-07-30T00:00:00Z")
	if report.Overall.TotalAttempts != 1 {
		t.Fatalf("expected implicit evaluation not to count as an attempt, total = %d", report.Overall.TotalAttempts)
	}

	var phase1 *model.PhaseResult
	for i := range report.Phases {
		if report.Phases[i].PhaseID == 1 {
			phase1 = &report.Phases[i]
		}
	}
	if phase1 == nil {
		t.Fatal("expected phase 1 to appear in the report")
	}
	if phase1.Attempts != 0 {
		t.Errorf("expected phase 1 to have 0 attempts, got %d", phase1.Attempts)
	}
	if phase1.FinalCoverage != 1.0 {
		t.Errorf("expected phase 1 final coverage 1.0, got %f", phase1.FinalCoverage)
	}
}

func TestCompletePhaseSetsValidStatus(t *testing.T) {
	c := NewCollector("demo", "agent-1")
	c.RecordAttempt(0, model.Feedback{Summary: model.Summary{Coverage: 1.0}})
	c.CompletePhase(0)

	report := c.GenerateReport("2026-07-30T00:00:00Z")
	if report.Phases[0].Status != model.PhaseValid {
		t.Fatalf("expected phase status valid, got %s", report.Phases[0].Status)
	}
}

func TestFailPhaseMarksSessionFailed(t *testing.T) {
	c := NewCollector("demo", "agent-1")
	c.RecordAttempt(0, model.Feedback{Summary: model.Summary{Coverage: 0.2}})
	c.FailPhase(0)

	report := c.GenerateReport("2026-07-30T00:00:00Z")
	if report.Phases[0].Status != model.PhaseFailed {
		t.Errorf("expected phase status failed, got %s", report.Phases[0].Status)
	}
	if report.Overall.Status != model.TaskFailed {
		t.Errorf("expected overall status failed, got %s", report.Overall.Status)
	}
}

func TestGenerateReportCompletedWhenAllPhasesValid(t *testing.T) {
	c := NewCollector("demo", "agent-1")
	for phase := 0; phase < 3; phase++ {
		c.RecordAttempt(phase, model.Feedback{Summary: model.Summary{Coverage: 1.0}})
		c.CompletePhase(phase)
	}

	report := c.GenerateReport("2026-07-30T00:00:00Z")
	if report.Overall.Status != model.TaskCompleted {
		t.Fatalf("expected overall status completed, got %s", report.Overall.Status)
	}
	if report.Overall.PhasesCompleted != 3 || report.Overall.TotalPhases != 3 {
		t.Fatalf("unexpected phase counts: %+v", report.Overall)
	}
}

func TestGenerateReportOrdersPhasesByID(t *testing.T) {
	c := NewCollector("demo", "agent-1")
	c.RecordAttempt(2, model.Feedback{})
	c.RecordAttempt(0, model.Feedback{})
	c.RecordAttempt(1, model.Feedback{})

	report := c.GenerateReport("2026-07-30T00:00:00Z")
	for i, p := range report.Phases {
		if p.PhaseID != i {
			t.Fatalf("expected phases sorted by id, got order %v", report.Phases)
		}
	}
}
