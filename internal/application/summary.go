package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/plugtest/plugtest/internal/core/domain"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	headStyle = lipgloss.NewStyle().Bold(true)
)

// RenderSummary formats the aggregated results: one line per plugin, then a
// list of failures with their paths when any exist.
func RenderSummary(results []domain.RunResult) string {
	var b strings.Builder

	b.WriteString(headStyle.Render("Test results"))
	b.WriteString("\n")

	for _, result := range results {
		line := fmt.Sprintf("%s  %s (%s, %s)",
			renderOutcome(result),
			result.Plugin.Name,
			result.Plugin.Convention,
			result.Elapsed.Round(10*time.Millisecond),
		)
		if result.Reason != "" {
			line += " - " + result.Reason
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	failures := Failures(results)
	if len(failures) == 0 {
		b.WriteString(passStyle.Render("All plugin test suites passed."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(failStyle.Render(fmt.Sprintf("%d plugin(s) failed:", len(failures))))
	b.WriteString("\n")
	for _, failure := range failures {
		b.WriteString(fmt.Sprintf("  %s (%s)\n", failure.Plugin.Name, failure.Plugin.Path))
	}

	return b.String()
}

func renderOutcome(result domain.RunResult) string {
	switch result.Outcome {
	case domain.OutcomePassed:
		return passStyle.Render("PASS")
	case domain.OutcomeSkipped:
		return skipStyle.Render("SKIP")
	default:
		return failStyle.Render("FAIL")
	}
}
