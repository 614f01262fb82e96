package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPlugin(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordPlugin("ok", false, 90*time.Second)
	m.RecordPlugin("ok", true, 0)
	m.RecordPlugin("tests-failed", false, 3*time.Minute)

	if got := testutil.ToFloat64(m.PluginResults.WithLabelValues("ok", "false")); got != 1 {
		t.Errorf("ok uncached = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PluginResults.WithLabelValues("ok", "true")); got != 1 {
		t.Errorf("ok cached = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheHits); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheMisses); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.PluginDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestRecordHook(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	tests := []struct {
		outcome  string
		observed bool
	}{
		{"excluded", false},
		{"skipped", false},
		{"ok", true},
		{"failed", true},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			m.HookDuration.Reset()
			m.RecordHook("compilation", "upper-bounds-excludes", tt.outcome, time.Millisecond)

			if got := testutil.ToFloat64(m.HookRuns.WithLabelValues("compilation", "upper-bounds-excludes", tt.outcome)); got != 1 {
				t.Errorf("runs = %v, want 1", got)
			}
			want := 0
			if tt.observed {
				want = 1
			}
			if got := testutil.CollectAndCount(m.HookDuration); got != want {
				t.Errorf("duration series = %d, want %d", got, want)
			}
		})
	}
}

func TestRecordBuildAndTests(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordBuild("compile", true, time.Minute)
	m.RecordBuild("test", false, 2*time.Minute)
	m.RecordTests(40, 2)
	m.RecordTests(10, 0)

	if got := testutil.ToFloat64(m.BuildInvocations.WithLabelValues("test", "false")); got != 1 {
		t.Errorf("failed test builds = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TestCases.WithLabelValues("executed")); got != 50 {
		t.Errorf("executed = %v, want 50", got)
	}
	if got := testutil.ToFloat64(m.TestCases.WithLabelValues("failed")); got != 2 {
		t.Errorf("failed = %v, want 2", got)
	}
}

func TestRecordError(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordError("SCM-001", "tester")
	m.RecordError("", "tester")

	if got := testutil.ToFloat64(m.Errors.WithLabelValues("SCM-001", "tester")); got != 1 {
		t.Errorf("SCM-001 = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues("uncoded", "tester")); got != 1 {
		t.Errorf("uncoded = %v, want 1", got)
	}
}

func TestNewMetricsTwiceOnOneRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	NewMetrics(reg)
}
