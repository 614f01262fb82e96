package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
)

func newTestIndicator(ci bool) (*Indicator, *bytes.Buffer, *time.Time) {
	buf := &bytes.Buffer{}
	ind := NewIndicator(Config{Writer: buf, IsCI: ci})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ind.now = func() time.Time { return now }
	return ind, buf, &now
}

func TestCIOutput(t *testing.T) {
	ind, buf, _ := newTestIndicator(true)

	ind.RunStarted(3)
	ind.PluginStarted("git", "5.2.1")
	ind.PluginFinished("git", report.StatusOK, false)
	ind.PluginSkipped("ant")
	ind.PluginFinished("matrix-auth", report.StatusTestsFailed, true)
	ind.Finish()

	want := []string{
		"▶ git 5.2.1",
		"✓ git [ok] 1/3",
		"✗ matrix-auth [tests-failed] (cached) 3/3",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTerminalBar(t *testing.T) {
	ind, buf, now := newTestIndicator(false)

	ind.RunStarted(4)
	ind.PluginStarted("git", "5.2.1")
	if !strings.Contains(buf.String(), "0/4") || !strings.Contains(buf.String(), "| git") {
		t.Errorf("bar should show the running plugin: %q", buf.String())
	}

	*now = now.Add(2 * time.Minute)
	ind.PluginFinished("git", report.StatusCompilationFailed, false)
	out := buf.String()
	last := out[strings.LastIndex(out, "\r"):]
	for _, want := range []string{"1/4", "✓ 0", "✗ 1", "2m0s", "ETA: 6m0s"} {
		if !strings.Contains(last, want) {
			t.Errorf("bar missing %q: %q", want, last)
		}
	}

	ind.Finish()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Finish should end the progress line")
	}
}

func TestRunStartedResets(t *testing.T) {
	ind, _, _ := newTestIndicator(true)
	ind.RunStarted(1)
	ind.PluginFinished("git", report.StatusInternalError, true)
	ind.RunStarted(2)

	if ind.done != 0 || ind.failed != 0 || ind.cached != 0 || ind.total != 2 {
		t.Errorf("counters not reset: done=%d failed=%d cached=%d total=%d", ind.done, ind.failed, ind.cached, ind.total)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "2s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute + 1*time.Second, "2h5m1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
