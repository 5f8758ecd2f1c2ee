package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jaxxstorm/ureport/internal/model"
)

var successKinds = map[string]bool{
	"KNOWN":     true,
	"NOT_KNOWN": true,
	"ATTACHED":  true,
}

func RenderPretty(outcomes []model.Outcome) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("ureport")
	detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	successStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failureStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	lines := []string{title}
	for _, out := range outcomes {
		lines = append(lines, "")
		statusLabel := successStyle.Render("OK")
		if !successKinds[out.Diagnosis.Classification] {
			statusLabel = failureStyle.Render("FAIL")
		}
		head := fmt.Sprintf("%s %s %s", statusLabel, out.Action, out.URL)
		if out.StatusCode != 0 {
			head += fmt.Sprintf(" status=%d", out.StatusCode)
		}
		lines = append(lines, head)

		details := []string{}
		if out.Value != "" {
			details = append(details, "result: "+out.Value)
		}
		if out.Message != "" {
			details = append(details, "message: "+normalizeSpace(out.Message))
		}
		if out.BTHash != "" {
			details = append(details, "bthash: "+out.BTHash)
		}
		if out.ReportURL != "" {
			details = append(details, "report: "+out.ReportURL)
		}
		for _, line := range out.ReportedTo {
			details = append(details, "reported to: "+line)
		}
		if out.Solution != "" {
			details = append(details, "solution:")
			for _, line := range strings.Split(strings.TrimRight(out.Solution, "\n"), "\n") {
				details = append(details, "  "+line)
			}
		}
		for _, detail := range details {
			lines = append(lines, detailStyle.Render("  "+detail))
		}
		for _, warning := range out.Warnings {
			lines = append(lines, warnStyle.Render("  warning: "+warning))
		}

		summary := fmt.Sprintf("%s %s", out.Diagnosis.Classification, out.Diagnosis.Summary)
		if successKinds[out.Diagnosis.Classification] {
			lines = append(lines, successStyle.Render(summary))
		} else {
			lines = append(lines, failureStyle.Render(summary))
		}
		if len(out.Diagnosis.Hints) > 0 {
			lines = append(lines, "Hints:")
			for _, hint := range out.Diagnosis.Hints {
				lines = append(lines, "- "+hint)
			}
		}
	}

	return strings.Join(lines, "\n")
}

func normalizeSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
