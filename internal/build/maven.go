package build

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
)

// DefaultExecutable is looked up on PATH when no build tool path is configured.
const DefaultExecutable = "mvn"

// Maven runs Apache Maven as a subprocess.
type Maven struct {
	Executable string
	// Settings is passed with -s when set.
	Settings string
	// Args are extra arguments placed before the properties and goals.
	Args []string
	// Properties apply to every invocation; per-call properties win.
	Properties  map[string]string
	ReportTypes []ReportType
	// ManifestDir receives one audit manifest per invocation when set.
	ManifestDir string
	Env         []string
	Logger      *log.Logger
}

var _ Runner = (*Maven)(nil)

// Command returns the arguments for an invocation, properties sorted by key.
func (m *Maven) Command(props map[string]string, goals ...string) []string {
	args := []string{"--batch-mode", "--show-version"}
	if m.Settings != "" {
		args = append(args, "-s", m.Settings)
	}
	args = append(args, m.Args...)

	merged := make(map[string]string, len(m.Properties)+len(props))
	for k, v := range m.Properties {
		merged[k] = v
	}
	for k, v := range props {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, fmt.Sprintf("-D%s=%s", k, merged[k]))
	}

	return append(args, goals...)
}

func (m *Maven) executable() string {
	if m.Executable == "" {
		return DefaultExecutable
	}
	return m.Executable
}

func (m *Maven) logger() *log.Logger {
	if m.Logger == nil {
		return log.DefaultLogger()
	}
	return m.Logger
}

func (m *Maven) reportTypes() []ReportType {
	if m.ReportTypes == nil {
		return DefaultReportTypes
	}
	return m.ReportTypes
}

// Run executes the goals in dir. Combined output is drained by a single
// reader while the process runs; Run returns once both have finished.
func (m *Maven) Run(ctx context.Context, props map[string]string, dir, logFile string, goals ...string) (*Outcome, error) {
	started := time.Now()
	args := m.Command(props, goals...)
	outcome := Outcome{LogFile: logFile, ExitCode: -1}

	logger := m.logger().With("dir", dir, "goals", goals)
	logger.Debug("Running build", "executable", m.executable(), "args", args)

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, newExecutionError(outcome, false, "cannot create build log directory", err)
	}
	logOut, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, newExecutionError(outcome, false, "cannot open build log", err)
	}
	defer func() { _ = logOut.Close() }() //nolint:errcheck

	pr, pw := io.Pipe()

	// #nosec G204 - executable and arguments come from the operator's configuration
	cmd := exec.CommandContext(ctx, m.executable(), args...)
	cmd.Dir = dir
	cmd.Stdout = pw
	cmd.Stderr = pw
	if len(m.Env) > 0 {
		cmd.Env = append(os.Environ(), m.Env...)
	}

	if err := cmd.Start(); err != nil {
		_ = pw.Close() //nolint:errcheck
		return nil, newExecutionError(outcome, false, fmt.Sprintf("cannot start %s", m.executable()), err)
	}

	classifier := NewClassifier()
	var waitErr error

	var g errgroup.Group
	g.Go(func() error {
		waitErr = cmd.Wait()
		return pw.Close()
	})
	g.Go(func() error {
		return drain(pr, logOut, classifier)
	})
	readErr := g.Wait()

	outcome.Duration = time.Since(started)
	outcome.SucceededSteps = classifier.SucceededSteps()
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	}

	var testErr error
	if classifier.SawTests() {
		outcome.Tests, testErr = Reconcile(dir, m.reportTypes(), classifier.ExecutedTests())
		if outcome.Tests != nil {
			for _, w := range outcome.Tests.Warnings {
				logger.Warn("Test report warning", "warning", w)
			}
		}
	}

	m.saveManifest(args, goals, props, dir, &outcome, logger)

	switch {
	case readErr != nil:
		return nil, newExecutionError(outcome, true, "cannot process build output", readErr)
	case ctx.Err() != nil:
		return nil, newExecutionError(outcome, true, "build interrupted", ctx.Err())
	case waitErr != nil:
		var exitErr *exec.ExitError
		if !stderrors.As(waitErr, &exitErr) {
			return nil, newExecutionError(outcome, true, "build did not complete", waitErr)
		}
		logger.Debug("Build failed", "exit_code", outcome.ExitCode, "open_step", classifier.OpenStep())
		return nil, newExecutionError(outcome, true, exitMessage(outcome.ExitCode), waitErr)
	case testErr != nil:
		return nil, newExecutionError(outcome, true, "cannot process test reports", testErr)
	}

	logger.Debug("Build finished", "duration", outcome.Duration, "steps", len(outcome.SucceededSteps))
	return &outcome, nil
}

// drain copies output lines into the log and the classifier. After a write
// failure it keeps consuming so the process never blocks on a full pipe.
func drain(r io.Reader, logOut io.Writer, c *Classifier) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var writeErr error

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if writeErr == nil {
				if _, werr := io.WriteString(logOut, line); werr != nil {
					writeErr = fmt.Errorf("write build log: %w", werr)
				}
			}
			c.Feed(line)
		}
		if err == io.EOF {
			return writeErr
		}
		if err != nil {
			return err
		}
	}
}

func (m *Maven) saveManifest(args, goals []string, props map[string]string, dir string, outcome *Outcome, logger *log.Logger) {
	if m.ManifestDir == "" {
		return
	}
	mf := NewManifest(m.executable(), args, goals, props, dir, outcome)
	if err := mf.AddLogDigest(outcome.LogFile); err != nil {
		logger.Warn("Cannot hash build log", "error", err)
	}
	if _, err := mf.Save(m.ManifestDir); err != nil {
		logger.Warn("Cannot save build manifest", "error", err)
	}
}
