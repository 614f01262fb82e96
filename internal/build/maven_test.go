package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
)

// fakeMaven writes a shell script that records its arguments, prints output
// and exits with exitCode.
func fakeMaven(t *testing.T, output string, exitCode string) (*Maven, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake build tool needs a POSIX shell")
	}

	dir := t.TempDir()
	outFile := filepath.Join(dir, "output.txt")
	argsFile := filepath.Join(dir, "args.txt")
	if err := os.WriteFile(outFile, []byte(output), 0o600); err != nil {
		t.Fatal(err)
	}

	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > \"$FAKE_ARGS\"\ncat \"$FAKE_OUTPUT\"\nexit \"$FAKE_EXIT\"\n"
	exe := filepath.Join(dir, "mvn")
	if err := os.WriteFile(exe, []byte(script), 0o700); err != nil { // #nosec G306
		t.Fatal(err)
	}

	return &Maven{
		Executable: exe,
		Env:        []string{"FAKE_ARGS=" + argsFile, "FAKE_OUTPUT=" + outFile, "FAKE_EXIT=" + exitCode},
		Logger:     log.Discard(),
	}, argsFile
}

func TestMavenCommand(t *testing.T) {
	m := &Maven{
		Settings:   "/etc/settings.xml",
		Args:       []string{"-Pquick"},
		Properties: map[string]string{"b": "base", "a": "1"},
	}

	got := m.Command(map[string]string{"b": "override", "c": "3"}, "clean", "install")
	want := []string{
		"--batch-mode", "--show-version",
		"-s", "/etc/settings.xml",
		"-Pquick",
		"-Da=1", "-Db=override", "-Dc=3",
		"clean", "install",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Command() = %v\nwant %v", got, want)
	}
}

func TestMavenRunSuccess(t *testing.T) {
	m, argsFile := fakeMaven(t, strings.Join([]string{
		"[INFO] --- A:1.0:run (default) @ mod ---",
		"[INFO] --- B:1.0:run (default) @ mod ---",
		"[INFO] BUILD SUCCESS",
	}, "\n")+"\n", "0")

	work := t.TempDir()
	logFile := filepath.Join(work, "logs", "git.log")

	outcome, err := m.Run(context.Background(), map[string]string{"jenkins.version": "2.440"}, work, logFile, "verify")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !reflect.DeepEqual(outcome.SucceededSteps, []string{"A", "B"}) {
		t.Errorf("SucceededSteps = %v", outcome.SucceededSteps)
	}
	if outcome.Failed || outcome.ExitCode != 0 {
		t.Errorf("outcome = %+v", outcome)
	}
	if outcome.Tests != nil {
		t.Errorf("Tests = %+v, want nil without a test phase", outcome.Tests)
	}

	logged, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(logged), "BUILD SUCCESS") {
		t.Errorf("log file content = %q", logged)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(args), "-Djenkins.version=2.440\nverify\n") {
		t.Errorf("args = %q", args)
	}
}

func TestMavenRunFailureKeepsConfirmedSteps(t *testing.T) {
	m, _ := fakeMaven(t, strings.Join([]string{
		"[INFO] --- A:1.0:run (default) @ mod ---",
		"[INFO] --- S1:1.0:run (default) @ mod ---",
		"[ERROR] COMPILATION ERROR",
	}, "\n")+"\n", "1")

	work := t.TempDir()
	_, err := m.Run(context.Background(), nil, work, filepath.Join(work, "b.log"), "compile")

	var execErr *ExecutionError
	if !stderrors.As(err, &execErr) {
		t.Fatalf("Run() error = %v, want *ExecutionError", err)
	}
	if !execErr.Started {
		t.Error("Started = false for a process that ran")
	}
	if execErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d", execErr.ExitCode)
	}
	if !reflect.DeepEqual(execErr.SucceededSteps, []string{"A"}) {
		t.Errorf("SucceededSteps = %v, S1 must not be confirmed", execErr.SucceededSteps)
	}
	if !errors.HasCode(err, errors.ErrCodeBuildExecutionFailed) {
		t.Errorf("error code = %q", errors.CodeOf(err))
	}
}

func TestMavenRunNonZeroExitAfterSuccessLine(t *testing.T) {
	m, _ := fakeMaven(t, "[INFO] --- A:1.0:run (default) @ mod ---\n[INFO] BUILD SUCCESS\n", "3")

	work := t.TempDir()
	_, err := m.Run(context.Background(), nil, work, filepath.Join(work, "b.log"), "verify")

	var execErr *ExecutionError
	if !stderrors.As(err, &execErr) {
		t.Fatalf("Run() error = %v, want *ExecutionError", err)
	}
	if !reflect.DeepEqual(execErr.SucceededSteps, []string{"A"}) {
		t.Errorf("SucceededSteps = %v", execErr.SucceededSteps)
	}
}

func TestMavenRunStartFailure(t *testing.T) {
	m := &Maven{Executable: filepath.Join(t.TempDir(), "missing-mvn"), Logger: log.Discard()}

	work := t.TempDir()
	_, err := m.Run(context.Background(), nil, work, filepath.Join(work, "b.log"), "verify")

	var execErr *ExecutionError
	if !stderrors.As(err, &execErr) {
		t.Fatalf("Run() error = %v, want *ExecutionError", err)
	}
	if execErr.Started {
		t.Error("Started = true for a process that never ran")
	}
}

func TestMavenRunCollectsTests(t *testing.T) {
	m, _ := fakeMaven(t, strings.Join([]string{
		"[INFO] --- surefire:3.1.2:test (default-test) @ mod ---",
		"[INFO]  T E S T S",
		"[INFO] Running pkg.ATest",
		"[INFO] Running InjectedTest",
		"[INFO] BUILD SUCCESS",
	}, "\n")+"\n", "0")

	work := t.TempDir()
	writeReport(t, filepath.Join(work, "target", "surefire-reports"), "pkg.ATest",
		`<testsuite tests="1"><testcase classname="pkg.ATest" name="works"/></testsuite>`)

	outcome, err := m.Run(context.Background(), nil, work, filepath.Join(work, "b.log"), "surefire:test")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome.Tests == nil || !outcome.Tests.Succeeded() {
		t.Fatalf("Tests = %+v", outcome.Tests)
	}
	if !reflect.DeepEqual(outcome.Tests.Executed, []string{"pkg.ATest.works"}) {
		t.Errorf("Executed = %v", outcome.Tests.Executed)
	}
}

func TestMavenRunMissingUnitReports(t *testing.T) {
	m, _ := fakeMaven(t, "[INFO]  T E S T S\n[INFO] Running pkg.ATest\n[INFO] BUILD SUCCESS\n", "0")

	work := t.TempDir()
	outcome, err := m.Run(context.Background(), nil, work, filepath.Join(work, "b.log"), "surefire:test")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if outcome.Tests == nil {
		t.Fatal("Tests = nil after test banner")
	}
	if len(outcome.Tests.Executed) != 0 || len(outcome.Tests.Failed) != 0 {
		t.Errorf("expected empty sets, got %+v", outcome.Tests)
	}
	if len(outcome.Tests.Warnings) == 0 {
		t.Error("expected a missing directory warning")
	}
}

func TestMavenRunLogsReportWarnings(t *testing.T) {
	m, _ := fakeMaven(t, "[INFO] -------------------------------------------------------\n[INFO]  T E S T S\n[INFO] Running pkg.ATest\n[INFO] BUILD SUCCESS\n", "0")

	var logs strings.Builder
	m.Logger = log.New(log.Config{Level: log.LevelDebug, Format: log.FormatText, Output: log.NewOutput(&logs)})

	work := t.TempDir()
	if _, err := m.Run(context.Background(), nil, work, filepath.Join(work, "b.log"), "surefire:test"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "Test report warning") {
		t.Errorf("expected a WARN record for the missing report directory, got:\n%s", out)
	}
	if !strings.Contains(out, "surefire-reports") {
		t.Errorf("warning should name the report directory, got:\n%s", out)
	}
}

func TestMavenRunWritesManifest(t *testing.T) {
	m, _ := fakeMaven(t, "[INFO] BUILD SUCCESS\n", "0")
	m.ManifestDir = filepath.Join(t.TempDir(), "manifests")

	work := t.TempDir()
	if _, err := m.Run(context.Background(), nil, work, filepath.Join(work, "b.log"), "verify"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	entries, err := os.ReadDir(m.ManifestDir)
	if err != nil {
		t.Fatalf("manifest directory: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), "_verify.json") {
		t.Errorf("manifest files = %v", entries)
	}
}
