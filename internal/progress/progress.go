// Package progress displays the progress of a compatibility run.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
)

// Indicator tracks plugins as the tester reports them. On a terminal it
// redraws a single progress bar; in CI it prints one line per event.
type Indicator struct {
	writer    io.Writer
	isCI      bool
	now       func() time.Time
	startTime time.Time

	mu      sync.Mutex
	total   int
	done    int
	failed  int
	cached  int
	skipped int
	current string
}

// Config holds configuration for progress indicator
type Config struct {
	Writer io.Writer
	IsCI   bool // Set to true in CI/CD environments to disable fancy output
}

// NewIndicator creates a new progress indicator
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	// Auto-detect CI environment
	if !cfg.IsCI {
		cfg.IsCI = os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
	}

	return &Indicator{
		writer: cfg.Writer,
		isCI:   cfg.IsCI,
		now:    time.Now,
	}
}

// RunStarted resets the counters for a run over total candidates.
func (p *Indicator) RunStarted(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done, p.failed, p.cached, p.skipped = 0, 0, 0, 0
	p.current = ""
	p.startTime = p.now()
}

// PluginStarted is called when a plugin enters the pipeline.
func (p *Indicator) PluginStarted(pluginID, version string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = pluginID
	if p.isCI {
		_, _ = fmt.Fprintf(p.writer, "▶ %s %s\n", pluginID, version)
		return
	}
	p.render()
}

// PluginSkipped is called for plugins filtered out of the run.
func (p *Indicator) PluginSkipped(pluginID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.skipped++
	if !p.isCI {
		p.render()
	}
}

// PluginFinished is called once a plugin has its final status.
func (p *Indicator) PluginFinished(pluginID string, status report.Status, cached bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if !status.Acceptable() {
		p.failed++
	}
	if cached {
		p.cached++
	}
	p.current = ""

	if p.isCI {
		p.printStatus(pluginID, status, cached)
		return
	}
	p.render()
}

// Finish ends the progress line.
func (p *Indicator) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isCI && p.total > 0 {
		_, _ = fmt.Fprintln(p.writer)
	}
}

// render draws the progress bar
func (p *Indicator) render() {
	if p.total == 0 {
		return
	}
	processed := p.done + p.skipped
	progress := float64(processed) / float64(p.total)
	elapsed := p.now().Sub(p.startTime)

	// ETA only counts tested plugins, skipped ones take no time
	var eta string
	if p.done > 0 && processed < p.total {
		perPlugin := elapsed / time.Duration(p.done)
		eta = " | ETA: " + formatDuration(perPlugin*time.Duration(p.total-processed))
	}

	barWidth := 30
	filled := int(float64(barWidth) * progress)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("[%s] %d/%d | ✓ %d | ✗ %d | %s%s",
		bar, processed, p.total, p.done-p.failed, p.failed, formatDuration(elapsed), eta)
	if p.current != "" {
		line += " | " + p.current
	}
	_, _ = fmt.Fprintf(p.writer, "\r%-100s", line)
}

// printStatus prints a plugin status in CI-friendly format
func (p *Indicator) printStatus(pluginID string, status report.Status, cached bool) {
	symbol := "✗"
	if status.Acceptable() {
		symbol = "✓"
	}

	msg := fmt.Sprintf("%s %s [%s]", symbol, pluginID, status)
	if cached {
		msg += " (cached)"
	}
	_, _ = fmt.Fprintf(p.writer, "%s %d/%d\n", msg, p.done+p.skipped, p.total)
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
