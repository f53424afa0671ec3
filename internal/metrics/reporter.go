package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"phasebench/internal/model"
)

// Reporter formats and outputs a session Report.
type Reporter struct {
	writer io.Writer
	format string // "console" or "json"
}

// NewReporter creates a new reporter.
func NewReporter(writer io.Writer, format string) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Report outputs the session report.
func (r *Reporter) Report(report model.Report) error {
	if r.format == "json" {
		return r.reportJSON(report)
	}
	return r.reportConsole(report)
}

func (r *Reporter) reportJSON(report model.Report) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (r *Reporter) reportConsole(report model.Report) error {
	var sb strings.Builder

	sb.WriteString("═══════════════════════════════════════════════════════════════\n")
	sb.WriteString(fmt.Sprintf("  PHASEBENCH REPORT: %s (agent %s)\n", report.TaskID, report.AgentID))
	sb.WriteString("═══════════════════════════════════════════════════════════════\n\n")

	status := checkMark(report.Overall.Status == model.TaskCompleted)
	sb.WriteString(fmt.Sprintf("%s OVERALL: %s\n\n", status, strings.ToUpper(string(report.Overall.Status))))

	sb.WriteString("SUMMARY:\n")
	sb.WriteString("───────────────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("  Phases Completed:   %d / %d\n", report.Overall.PhasesCompleted, report.Overall.TotalPhases))
	sb.WriteString(fmt.Sprintf("  Total Attempts:     %d\n", report.Overall.TotalAttempts))
	sb.WriteString(fmt.Sprintf("  Duration:           %.2fs\n", report.Overall.TotalDurationSeconds))
	sb.WriteString("\n")

	sb.WriteString("PHASES:\n")
	sb.WriteString("───────────────────────────────────────────────────────────────\n")
	for _, p := range report.Phases {
		mark := "…"
		switch p.Status {
		case model.PhaseValid:
			mark = "✓"
		case model.PhaseFailed:
			mark = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s Phase %d: %s\n", mark, p.PhaseID, strings.ToUpper(string(p.Status))))
		sb.WriteString(fmt.Sprintf("    Attempts: %d | Coverage: %.0f%% | Duration: %.2fs\n",
			p.Attempts, p.FinalCoverage*100, p.DurationSeconds))
	}
	sb.WriteString("\n")

	sb.WriteString("═══════════════════════════════════════════════════════════════\n")

	_, err := r.writer.Write([]byte(sb.String()))
	return err
}

// checkMark returns ✓ or ✗ based on condition.
func checkMark(condition bool) string {
	if condition {
		return "✓"
	}
	return "✗"
}
