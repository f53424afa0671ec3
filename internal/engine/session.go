// Package engine implements the Phased Evaluation Engine (spec §4.D)
// and the Phase State Machine that drives it (spec §4.E): given a
// candidate source submission, it prepares and invokes the candidate
// inside the sandbox, runs every relevant test against the current
// phase's rules, aggregates the result into a Feedback document, and
// decides whether the session advances to the next phase.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"phasebench/internal/logging"
	"phasebench/internal/metrics"
	"phasebench/internal/model"
	"phasebench/internal/rules"
	"phasebench/internal/sandbox"
	"phasebench/internal/workspace"
)

// terminalReason names why a session stopped before completing all phases.
type terminalReason string

const (
	reasonTotalCap terminalReason = "total_cap"
	reasonPhaseCap terminalReason = "phase_cap"
)

// Session owns the mutable Phase State for one task/agent run. It is
// not safe for concurrent use: per spec §5 the core is single-threaded
// cooperative within a session.
type Session struct {
	task      *model.TaskDefinition
	evaluator rules.Evaluator
	tests     []model.TestCase
	sandbox   *sandbox.Sandbox
	metrics   *metrics.Collector
	mailbox   *workspace.Mailbox
	agentID   string

	currentPhaseIdx   int
	totalAttempts     int
	phaseAttempts     int
	previousFeedback  *model.Feedback
	previousFailedIDs map[string]struct{}

	terminal bool
	reason   terminalReason
	finished bool // every phase reached valid
}

// NewSession constructs a Session at phase 0, writes the write-once
// problem.md and task.json mailbox documents, and returns the Session
// ready for its first Attempt.
func NewSession(task *model.TaskDefinition, evaluator rules.Evaluator, tests []model.TestCase, sb *sandbox.Sandbox, collector *metrics.Collector, mailbox *workspace.Mailbox, agentID string) (*Session, error) {
	s := &Session{
		task:      task,
		evaluator: evaluator,
		tests:     tests,
		sandbox:   sb,
		metrics:   collector,
		mailbox:   mailbox,
		agentID:   agentID,
	}

	if err := mailbox.WriteProblem(task.Problem); err != nil {
		return nil, fmt.Errorf("write problem.md: %w", err)
	}
	if err := mailbox.WriteTaskMessage(model.InitialTaskMessage{
		TaskID:    task.ID,
		Problem:   task.Problem,
		Interface: task.Interface,
		Limits: map[string]int{
			"total_phases":           len(task.Phases),
			"max_attempts_per_phase": task.Limits.MaxAttemptsPerPhase,
			"max_total_attempts":     task.Limits.MaxTotalAttempts,
		},
	}); err != nil {
		return nil, fmt.Errorf("write task.json: %w", err)
	}
	if err := s.writePhaseMessage(false, nil, nil); err != nil {
		return nil, fmt.Errorf("write initial phase.json: %w", err)
	}

	return s, nil
}

// Done reports whether the session has stopped accepting attempts,
// either because every phase went valid or because a cap was hit.
func (s *Session) Done() bool {
	return s.terminal || s.finished
}

// CurrentPhaseID returns the phase the next attempt will be judged against.
func (s *Session) CurrentPhaseID() int {
	return s.currentPhaseIdx
}

// Attempt runs one full evaluation cycle over source: prepare, invoke,
// aggregate, emit Feedback, update Phase State, and (on a valid
// Feedback) walk the phase transition chain, including the recursive
// implicit-evaluation collapse of spec §4.E.
func (s *Session) Attempt(source string) (model.Feedback, error) {
	if s.Done() {
		return model.Feedback{}, fmt.Errorf("session is no longer accepting attempts")
	}

	log := logging.Get(logging.CategoryEngine)
	correlationID := uuid.NewString()

	phaseID := s.currentPhaseIdx
	fb := s.evaluate(source, phaseID, s.previousFeedback, s.previousFailedIDs)
	fb.AttemptID = s.totalAttempts + 1

	log.Info("attempt %s agent=%s phase=%d attempt_id=%d status=%s", correlationID, s.agentID, phaseID, fb.AttemptID, fb.Status)

	s.totalAttempts++
	s.phaseAttempts++
	s.previousFeedback = &fb
	s.previousFailedIDs = fb.FailedRuleIDs()

	s.metrics.RecordAttempt(phaseID, fb)
	if err := s.mailbox.WriteFeedback(fb); err != nil {
		return fb, fmt.Errorf("write feedback.json: %w", err)
	}

	if fb.Status == model.StatusValid {
		if err := s.advance(source); err != nil {
			return fb, err
		}
	}

	// Cap checks run after every attempt, valid or not: the implicit
	// collapse in advance() can leave the session open on a later phase
	// without having finished, and totalAttempts was already incremented
	// above regardless of which branch ran.
	if !s.finished {
		s.enforceCaps(log)
	}
	return fb, nil
}

// enforceCaps applies spec §4.E's limit checks after any attempt that
// did not finish the session: total-attempt exhaustion fails the session
// outright; per-phase exhaustion fails the current phase and, with it,
// the session.
func (s *Session) enforceCaps(log *logging.Logger) {
	if s.totalAttempts >= s.task.Limits.MaxTotalAttempts {
		log.Warn("total attempt cap reached (%d)", s.totalAttempts)
		s.metrics.FailPhase(s.currentPhaseIdx)
		s.terminal = true
		s.reason = reasonTotalCap
		return
	}
	if s.phaseAttempts >= s.task.Limits.MaxAttemptsPerPhase {
		log.Warn("phase %d attempt cap reached (%d)", s.currentPhaseIdx, s.phaseAttempts)
		s.metrics.FailPhase(s.currentPhaseIdx)
		s.terminal = true
		s.reason = reasonPhaseCap
	}
}

// TerminalReason returns why the session stopped short of completion,
// or "" if it finished normally or is still running.
func (s *Session) TerminalReason() string {
	if !s.terminal {
		return ""
	}
	return string(s.reason)
}

// Report snapshots the current metrics state into a final model.Report.
func (s *Session) Report() model.Report {
	return s.metrics.GenerateReport(time.Now().UTC().Format(time.RFC3339))
}

func isEmptySource(source string) bool {
	return strings.TrimSpace(source) == ""
}
