package engine

import (
	"phasebench/internal/model"
)

// advance walks the phase transition chain triggered by a valid
// Feedback (spec §4.E). It marks the current phase valid, and — unless
// it was the last phase — steps into the next phase and runs an
// implicit (non-attempt-consuming) re-evaluation of the same source
// under the new rules. If that implicit evaluation is itself valid, the
// collapse repeats: a solution that already satisfies several upcoming
// phases walks through all of them without spending an attempt on any
// of them.
func (s *Session) advance(source string) error {
	s.metrics.CompletePhase(s.currentPhaseIdx)

	anchor := s.previousFeedback
	lastIdx := len(s.task.Phases) - 1

	for {
		if s.currentPhaseIdx == lastIdx {
			s.finished = true
			return nil
		}

		s.currentPhaseIdx++
		s.phaseAttempts = 0

		implicitFB := s.evaluate(source, s.currentPhaseIdx, s.previousFeedback, s.previousFailedIDs)
		s.metrics.MergeImplicit(s.currentPhaseIdx, implicitFB)

		if err := s.writePhaseMessage(true, anchor, &implicitFB); err != nil {
			return err
		}

		if implicitFB.Status != model.StatusValid {
			return nil
		}

		s.metrics.CompletePhase(s.currentPhaseIdx)
	}
}

// writePhaseMessage renders the current phase's descriptor and writes
// it to phase.json. previousFeedback and implicitEval are nil for the
// write-once initial descriptor at session start.
func (s *Session) writePhaseMessage(transition bool, previousFeedback *model.Feedback, implicitEval *model.Feedback) error {
	phase, _ := s.task.PhaseAt(s.currentPhaseIdx)

	descriptors := make([]model.RuleDescriptor, len(phase.Rules))
	for i, r := range phase.Rules {
		descriptors[i] = model.RuleDescriptor{ID: r.ID, Description: r.Description}
	}

	return s.mailbox.WritePhaseMessage(model.PhaseMessage{
		TaskID:             s.task.ID,
		PhaseID:            s.currentPhaseIdx,
		PhaseTransition:    transition,
		Rules:              descriptors,
		PreviousFeedback:   previousFeedback,
		ImplicitEvaluation: implicitEval,
	})
}
