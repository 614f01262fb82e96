package tester

import (
	"time"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
)

// PluginResult is the outcome recorded for one plugin in this run.
type PluginResult struct {
	PluginID      string
	PluginVersion string
	report.Result
}

// Summary describes a finished or aborted run.
type Summary struct {
	RunID       string
	CoreVersion string
	StartedAt   time.Time
	Duration    time.Duration
	Results     []PluginResult
	// Skipped lists plugin ids filtered out by the include and exclude lists.
	Skipped []string
	// Aborted is set when fail-fast stopped the run early.
	Aborted bool
}

// Failed returns the results with an unacceptable status.
func (s *Summary) Failed() []PluginResult {
	var out []PluginResult
	for _, r := range s.Results {
		if !r.Status.Acceptable() {
			out = append(out, r)
		}
	}
	return out
}

// Counts tallies results by status.
func (s *Summary) Counts() map[report.Status]int {
	counts := make(map[report.Status]int, len(report.Statuses))
	for _, r := range s.Results {
		counts[r.Status]++
	}
	return counts
}

// CachedCount is the number of results reused from the cache.
func (s *Summary) CachedCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Cached {
			n++
		}
	}
	return n
}
