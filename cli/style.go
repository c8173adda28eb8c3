// ABOUTME: Terminal styles for command output
// ABOUTME: Renders run summaries and preview decisions with lipgloss
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/warmer/models"
	"github.com/harperreed/warmer/runner"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderSummary(s models.RunSummary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Run %s", s.RunID)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s (triggered by %s)\n", dimStyle.Render("company:"), s.Company, s.Trigger)
	fmt.Fprintf(&b, "%s %d  %s %d  %s %d\n",
		dimStyle.Render("evaluated:"), s.Evaluated,
		dimStyle.Render("processed:"), s.Processed,
		dimStyle.Render("skipped:"), s.Skipped)
	fmt.Fprintf(&b, "%s  %s  %s",
		okStyle.Render(fmt.Sprintf("✓ %d sent", s.Succeeded)),
		errStyle.Render(fmt.Sprintf("✗ %d failed", s.Failed)),
		warnStyle.Render(fmt.Sprintf("↷ %d contended", s.Contended)))
	if s.AuditFailures > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("⚠ %d audit writes failed", s.AuditFailures)))
	}
	if s.Cancelled {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("⚠ run cancelled before all clients were processed"))
	}
	fmt.Fprintf(&b, "\n%s %s", dimStyle.Render("took:"), s.FinishedAt.Sub(s.StartedAt).Round(1e6))
	return boxStyle.Render(b.String())
}

func renderDecision(d runner.Decision, verbose bool) string {
	var b strings.Builder
	header := fmt.Sprintf("%s <%s>", d.Client.Name, d.Client.Email)
	if d.Action == nil {
		b.WriteString(dimStyle.Render("· " + header + "  nothing due"))
	} else {
		b.WriteString(okStyle.Render("→ " + header))
		fmt.Fprintf(&b, "\n  %s %s step %d (%s)",
			dimStyle.Render("cadence:"), d.Action.EffectiveCadence(&d.Client), d.Action.StepIndex+1, d.Action.Reason)
		fmt.Fprintf(&b, "\n  %s %s", dimStyle.Render("goal:"), d.Action.Step.Intent)
		if d.Next != nil {
			fmt.Fprintf(&b, "\n  %s %s", dimStyle.Render("next contact:"), d.Next.Format("2006-01-02"))
		}
	}
	if verbose {
		for _, line := range d.Trace {
			b.WriteString("\n    ")
			b.WriteString(dimStyle.Render(line))
		}
	}
	return b.String()
}
