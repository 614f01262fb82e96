package tester

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/archive/archivetest"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/build"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testCore = "2.440.1"

func modernPlugin(id string) archivetest.Plugin {
	return archivetest.Plugin{
		FileName: id + ".hpi",
		Manifest: map[string]string{
			"Short-Name":           id,
			"Plugin-Version":       "1.0",
			"Plugin-ScmConnection": "scm:git:https://github.com/jenkinsci/" + id + "-plugin.git",
			"Plugin-ScmTag":        id + "-1.0",
			"Group-Id":             "org.jenkins-ci.plugins",
		},
	}
}

// candidates writes the plugins as standalone archives.
func candidates(t *testing.T, plugins ...archivetest.Plugin) []Candidate {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, p := range plugins {
		paths = append(paths, archivetest.WritePlugin(t, dir, p))
	}
	return FromFiles(paths...)
}

type runCall struct {
	Dir   string
	Props map[string]string
	Args  []string
}

// fakeRunner records invocations and answers through respond, which
// defaults to a passing build.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runCall
	respond func(call runCall, n int) (*build.Outcome, error)
}

func (f *fakeRunner) Run(_ context.Context, props map[string]string, dir, logFile string, goals ...string) (*build.Outcome, error) {
	f.mu.Lock()
	call := runCall{Dir: dir, Props: props, Args: goals}
	f.calls = append(f.calls, call)
	n := len(f.calls)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(call, n)
	}
	return passing(call, logFile), nil
}

func passing(call runCall, logFile string) *build.Outcome {
	out := &build.Outcome{SucceededSteps: []string{"maven-compiler-plugin"}, LogFile: logFile}
	if isTestRun(call) {
		out.SucceededSteps = []string{"maven-surefire-plugin"}
		out.Tests = &build.TestOutcome{Executed: []string{"org.example.PluginTest.works"}}
	}
	return out
}

func isTestRun(call runCall) bool {
	return len(call.Args) > 0 && call.Args[len(call.Args)-1] == "surefire:test"
}

func buildFailure(started bool, tests *build.TestOutcome) *build.ExecutionError {
	return &build.ExecutionError{
		Outcome: build.Outcome{Failed: true, ExitCode: 1, Tests: tests},
		Started: started,
		Err:     errors.NewBuildExecutionError("build exited with code 1", nil),
	}
}

// fakeSCM creates a checkout directory holding a pom.xml.
type fakeSCM struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeSCM) Checkout(_ context.Context, url, dir, ref string) error {
	f.mu.Lock()
	f.calls = append(f.calls, url+"@"+ref)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project/>"), 0o600)
}

type fixture struct {
	config Config
	runner *fakeRunner
	scm    *fakeSCM
	store  *report.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return &fixture{
		config: Config{
			CoreVersion:    testCore,
			WarPath:        filepath.Join(dir, "jenkins.war"),
			WorkingDir:     filepath.Join(dir, "work"),
			CacheWindow:    time.Hour,
			CacheThreshold: report.StatusInternalError,
		},
		runner: &fakeRunner{},
		scm:    &fakeSCM{},
		store:  report.NewStore(filepath.Join(dir, "report.json")),
	}
}

func (f *fixture) tester(t *testing.T, opts ...Option) *Tester {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard()), WithClock(func() time.Time { return testNow })}, opts...)
	tt, err := New(f.config, f.runner, f.scm, f.store, opts...)
	require.NoError(t, err)
	return tt
}

func (f *fixture) run(t *testing.T, cands []Candidate, opts ...Option) (*Summary, error) {
	t.Helper()
	return f.tester(t, opts...).Run(context.Background(), cands)
}

func (f *fixture) persisted(t *testing.T) *report.Report {
	t.Helper()
	r, err := f.store.Load()
	require.NoError(t, err)
	return r
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
