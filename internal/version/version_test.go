package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestGetInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	defer func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	}()

	Version = "1.0.0"
	Commit = "abc123def456"
	Date = "2024-01-01T12:00:00Z"

	info := GetInfo()

	if info.Version != "1.0.0" {
		t.Errorf("GetInfo().Version = %v, want 1.0.0", info.Version)
	}
	if info.Commit != "abc123def456" {
		t.Errorf("GetInfo().Commit = %v, want abc123def456", info.Commit)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GetInfo().GoVersion = %v, want %v", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("GetInfo().Platform = %v", info.Platform)
	}
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "2.1.0",
		Commit:    "0123456789abcdef",
		Date:      "2025-01-01",
		GoVersion: "go1.24.6",
		Platform:  "linux/amd64",
	}

	got := info.String()
	for _, want := range []string{"pct 2.1.0", "(01234567)", "built 2025-01-01", "go1.24.6", "linux/amd64"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
	if strings.Contains(got, "89abcdef") {
		t.Errorf("commit should be shortened: %q", got)
	}
}

func TestInfoShort(t *testing.T) {
	if got := (Info{Version: "3.0.0"}).Short(); got != "3.0.0" {
		t.Errorf("Short() = %q", got)
	}
}

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/felixgeelhaar/plugin-compat-tester", Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "fedcba9876543210"},
			{Key: "vcs.time", Value: "2026-10-01T08:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	tests := []struct {
		name string
		info Info
		want Info
	}{
		{
			name: "unset ldflags take build info",
			info: Info{Version: "dev", Commit: "unknown", Date: "unknown"},
			want: Info{Version: "v0.4.0", Commit: "fedcba9876543210", Date: "2026-10-01T08:00:00Z", Modified: true},
		},
		{
			name: "ldflags win",
			info: Info{Version: "1.2.3", Commit: "abc", Date: "2026-01-01"},
			want: Info{Version: "1.2.3", Commit: "abc", Date: "2026-01-01", Modified: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.info
			got.fill(bi)
			if got != tt.want {
				t.Errorf("fill() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFillIgnoresDevelModule(t *testing.T) {
	info := Info{Version: "dev", Commit: "unknown", Date: "unknown"}
	info.fill(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	if info.Version != "dev" || info.Commit != "unknown" {
		t.Errorf("fill() = %+v, want ldflags defaults kept", info)
	}
}

func TestInfoStringMarksModifiedTree(t *testing.T) {
	got := Info{Version: "dev", Commit: "0123456789", Modified: true}.String()
	if !strings.Contains(got, "(01234567+dirty)") {
		t.Errorf("String() = %q, want dirty marker", got)
	}
}
