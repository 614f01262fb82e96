package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/tester"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// statusColors follows the status ranking: the worse the status, the hotter
// the color.
var statusColors = map[report.Status]string{
	report.StatusOK:                 "2",
	report.StatusTestsFailed:        "3",
	report.StatusCompilationFailed:  "208",
	report.StatusSourcesUnavailable: "1",
	report.StatusInternalError:      "5",
}

func renderStatus(s report.Status) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(statusColors[s])).Render(string(s))
}

func cell(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// column widths of the result tables
const (
	pluginWidth  = 36
	versionWidth = 18
	statusWidth  = 22
)

func printSummary(w io.Writer, s *tester.Summary, reportFile string) {
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(w, format, args...) }

	p("%s\n\n", titleStyle.Render("Compatibility run against "+s.CoreVersion))

	if len(s.Results) > 0 {
		p("%s%s%s%s\n",
			headerStyle.Render(cell("PLUGIN", pluginWidth)),
			headerStyle.Render(cell("VERSION", versionWidth)),
			headerStyle.Render(cell("STATUS", statusWidth)),
			headerStyle.Render("NOTE"))
	}
	for _, r := range s.Results {
		note := ""
		switch {
		case r.Cached:
			note = "cached " + r.Timestamp.Format(time.RFC3339)
		case len(r.FailedTests) > 0:
			note = fmt.Sprintf("%d of %d tests failed", len(r.FailedTests), len(r.ExecutedTests))
		case r.Error != "":
			note = firstLine(r.Error)
		}
		p("%s%s%s%s\n",
			cell(r.PluginID, pluginWidth),
			cell(r.PluginVersion, versionWidth),
			cell(renderStatus(r.Status), statusWidth),
			labelStyle.Render(note))
	}
	p("\n")

	counts := s.Counts()
	var parts []string
	for _, st := range report.Statuses {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, renderStatus(st)))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "no plugins tested")
	}
	p("%s %s\n", labelStyle.Render("Results:"), strings.Join(parts, ", "))
	if n := s.CachedCount(); n > 0 {
		p("%s %d\n", labelStyle.Render("Cached: "), n)
	}
	if len(s.Skipped) > 0 {
		p("%s %d\n", labelStyle.Render("Skipped:"), len(s.Skipped))
	}
	if s.Aborted {
		p("%s\n", renderStatus(report.StatusInternalError)+" stopped at the first failure (--fail-fast)")
	}
	p("%s %s\n", labelStyle.Render("Duration:"), s.Duration.Round(time.Second))
	p("%s %s\n", labelStyle.Render("Report: "), reportFile)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
