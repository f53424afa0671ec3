// Package metrics implements the Metrics Aggregator (spec §4.G): a
// per-session collector that tracks attempts and phase outcomes and
// renders them into the final model.Report.
package metrics

import (
	"sync"
	"time"

	"phasebench/internal/model"
)

// phaseMetrics tracks one phase's running totals.
type phaseMetrics struct {
	attempts      int
	finalCoverage float64
	start         time.Time
	end           time.Time
	status        model.PhaseStatus
}

func (p *phaseMetrics) durationSeconds() float64 {
	end := p.end
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(p.start).Seconds()
}

// Collector accumulates attempt and phase outcomes across one session
// and renders them into a model.Report on demand.
type Collector struct {
	mu      sync.Mutex
	taskID  string
	agentID string
	start   time.Time
	phases  map[int]*phaseMetrics
	order   []int
	total   int
}

// NewCollector starts a collector for one task/agent session.
func NewCollector(taskID, agentID string) *Collector {
	return &Collector{
		taskID:  taskID,
		agentID: agentID,
		start:   time.Now(),
		phases:  make(map[int]*phaseMetrics),
	}
}

func (c *Collector) ensurePhase(phaseID int) *phaseMetrics {
	p, ok := c.phases[phaseID]
	if !ok {
		p = &phaseMetrics{start: time.Now(), status: model.PhaseInProgress}
		c.phases[phaseID] = p
		c.order = append(c.order, phaseID)
	}
	return p
}

// RecordAttempt folds one attempt's feedback into its phase's running
// totals. Implicit (non-attempt-consuming) evaluations must not be
// passed here; use MergeImplicit instead.
func (c *Collector) RecordAttempt(phaseID int, feedback model.Feedback) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.ensurePhase(phaseID)
	p.attempts++
	p.finalCoverage = feedback.Summary.Coverage
	c.total++
}

// MergeImplicit records an implicit re-evaluation's resulting coverage
// without incrementing the phase's attempt count (spec §4.E).
func (c *Collector) MergeImplicit(phaseID int, feedback model.Feedback) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.ensurePhase(phaseID)
	p.finalCoverage = feedback.Summary.Coverage
}

// CompletePhase marks a phase valid at full coverage.
func (c *Collector) CompletePhase(phaseID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.ensurePhase(phaseID)
	p.status = model.PhaseValid
	p.end = time.Now()
	p.finalCoverage = 1.0
}

// FailPhase marks a phase failed (attempt or total cap exhausted).
func (c *Collector) FailPhase(phaseID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.ensurePhase(phaseID)
	p.status = model.PhaseFailed
	p.end = time.Now()
}

// GenerateReport snapshots the current totals into a model.Report.
// timestamp is passed in (RFC3339) rather than computed here, since the
// caller owns the session clock.
func (c *Collector) GenerateReport(timestamp string) model.Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int, len(c.order))
	copy(ids, c.order)
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}

	results := make([]model.PhaseResult, 0, len(ids))
	completed := 0
	anyFailed := false

	for _, id := range ids {
		p := c.phases[id]
		results = append(results, model.PhaseResult{
			PhaseID:         id,
			Status:          p.status,
			Attempts:        p.attempts,
			FinalCoverage:   p.finalCoverage,
			DurationSeconds: p.durationSeconds(),
		})
		if p.status == model.PhaseValid {
			completed++
		}
		if p.status == model.PhaseFailed {
			anyFailed = true
		}
	}

	totalPhases := len(c.phases)
	status := model.TaskInProgress
	switch {
	case totalPhases > 0 && completed == totalPhases:
		status = model.TaskCompleted
	case anyFailed:
		status = model.TaskFailed
	}

	return model.Report{
		TaskID:    c.taskID,
		AgentID:   c.agentID,
		Timestamp: timestamp,
		Phases:    results,
		Overall: model.OverallResult{
			Status:               status,
			TotalAttempts:        c.total,
			TotalPhases:          totalPhases,
			PhasesCompleted:      completed,
			TotalDurationSeconds: time.Since(c.start).Seconds(),
		},
	}
}
