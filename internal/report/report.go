// Package report holds the cumulative, persisted record of plugin results and
// the freshness cache derived from it.
package report

import (
	"sort"
	"time"
)

// FormatVersion is written into every persisted report.
const FormatVersion = "1.0"

// Report is keyed by (plugin id, plugin version); each entry holds one result
// per core version.
type Report struct {
	Version   string        `json:"version"`
	UpdatedAt time.Time     `json:"updated_at"`
	Plugins   []PluginEntry `json:"plugins"`
}

// PluginEntry collects results for one plugin version.
type PluginEntry struct {
	PluginID      string   `json:"plugin_id"`
	PluginVersion string   `json:"plugin_version"`
	Results       []Result `json:"results"`
}

// Result is the outcome of testing one plugin version against one core version.
type Result struct {
	RunID          string        `json:"run_id,omitempty"`
	CoreVersion    string        `json:"core_version"`
	Status         Status        `json:"status"`
	Timestamp      time.Time     `json:"timestamp"`
	Duration       time.Duration `json:"duration_ns,omitempty"`
	Extractor      string        `json:"extractor,omitempty"`
	SourceURL      string        `json:"source_url,omitempty"`
	GitReference   string        `json:"git_reference,omitempty"`
	SucceededSteps []string      `json:"succeeded_steps,omitempty"`
	ExecutedTests  []string      `json:"executed_tests,omitempty"`
	FailedTests    []string      `json:"failed_tests,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	LogFile        string        `json:"log_file,omitempty"`
	Error          string        `json:"error,omitempty"`
	Cached         bool          `json:"-"`
}

// New returns an empty report.
func New() *Report {
	return &Report{Version: FormatVersion}
}

// Add merges res into the entry for (pluginID, pluginVersion). An existing
// result for the same core version is replaced in place so the ordering of
// core versions is preserved.
func (r *Report) Add(pluginID, pluginVersion string, res Result) {
	r.UpdatedAt = res.Timestamp

	entry := r.entry(pluginID, pluginVersion)
	if entry == nil {
		r.Plugins = append(r.Plugins, PluginEntry{PluginID: pluginID, PluginVersion: pluginVersion})
		entry = &r.Plugins[len(r.Plugins)-1]
	}

	for i := range entry.Results {
		if entry.Results[i].CoreVersion == res.CoreVersion {
			entry.Results[i] = res
			return
		}
	}
	entry.Results = append(entry.Results, res)
}

// Lookup returns the result recorded for the plugin version and core version.
func (r *Report) Lookup(pluginID, pluginVersion, coreVersion string) (Result, bool) {
	entry := r.entry(pluginID, pluginVersion)
	if entry == nil {
		return Result{}, false
	}
	for _, res := range entry.Results {
		if res.CoreVersion == coreVersion {
			return res, true
		}
	}
	return Result{}, false
}

// Entries returns the plugin entries sorted by plugin id then version.
func (r *Report) Entries() []PluginEntry {
	out := make([]PluginEntry, len(r.Plugins))
	copy(out, r.Plugins)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PluginID != out[j].PluginID {
			return out[i].PluginID < out[j].PluginID
		}
		return out[i].PluginVersion < out[j].PluginVersion
	})
	return out
}

// Counts tallies the status of every recorded result.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, entry := range r.Plugins {
		for _, res := range entry.Results {
			counts[res.Status]++
		}
	}
	return counts
}

func (r *Report) entry(pluginID, pluginVersion string) *PluginEntry {
	for i := range r.Plugins {
		if r.Plugins[i].PluginID == pluginID && r.Plugins[i].PluginVersion == pluginVersion {
			return &r.Plugins[i]
		}
	}
	return nil
}
