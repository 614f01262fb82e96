package tester

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/archive"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/build"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/hooks"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/metadata"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/telemetry"
)

// pluginRun holds the state shared by all plugins of one run.
type pluginRun struct {
	*Tester
	runID  string
	cache  *report.Cache
	shared *hooks.SharedCheckouts
}

// pluginOutcome is a plugin result plus what the run loop needs to decide
// how to continue.
type pluginOutcome struct {
	PluginResult
	skipped bool
	err     error
}

// test runs one plugin's pipeline. A non-nil error aborts the run: it is a
// fatal hook error, in which case the outcome records internal-error, or an
// interruption, in which case the outcome is nil.
func (r *pluginRun) test(ctx context.Context, c Candidate) (*pluginOutcome, error) {
	started := r.now()
	out := &pluginOutcome{PluginResult: PluginResult{PluginID: c.Name}}
	out.RunID = r.runID
	out.CoreVersion = r.config.CoreVersion
	out.Timestamp = started

	logger := r.logger.WithPlugin(c.Name)

	pa, err := c.Open()
	if err != nil {
		logger.LogError(err)
		out.fail(report.StatusInternalError, err)
		return out, nil
	}
	if id := pa.ShortName(); id != "" {
		out.PluginID = id
		logger = r.logger.WithPlugin(id)
	}
	out.PluginVersion = pa.Version()

	if !r.selected(out.PluginID) {
		logger.Debug("Plugin filtered out")
		out.skipped = true
		return out, nil
	}

	if cached, ok := r.cache.Fresh(out.PluginID, out.PluginVersion, r.config.CoreVersion); ok {
		logger.Info("Reusing cached result", "status", cached.Status, "recorded", cached.Timestamp)
		out.Result = cached
		return out, nil
	}

	ctx, span := telemetry.StartPluginSpan(ctx, out.PluginID, out.PluginVersion)
	defer span.End()

	r.progress.PluginStarted(out.PluginID, out.PluginVersion)
	logger.Info("Testing plugin", "version", out.PluginVersion)
	fatal := r.pipeline(ctx, pa, out, logger)
	out.Duration = r.now().Sub(started)

	if fatal != nil && ctx.Err() != nil && stderrors.Is(fatal, ctx.Err()) {
		telemetry.RecordError(span, fatal)
		return nil, fatal
	}

	if out.err != nil {
		telemetry.RecordError(span, out.err)
	} else {
		telemetry.RecordSuccess(span)
	}
	logger.Info("Plugin finished", "status", out.Status, "duration", out.Duration)
	return out, fatal
}

func (r *pluginRun) selected(pluginID string) bool {
	if len(r.config.IncludePlugins) > 0 && !contains(r.config.IncludePlugins, pluginID) {
		return false
	}
	return !contains(r.config.ExcludePlugins, pluginID)
}

// pipeline resolves, checks out, compiles and tests the plugin, leaving the
// terminal status in out. It returns an error only to abort the run.
func (r *pluginRun) pipeline(ctx context.Context, pa *archive.PluginArchive, out *pluginOutcome, logger *log.Logger) error {
	// Resolve
	meta, err := r.resolve(ctx, pa)
	if err != nil {
		logger.LogError(err)
		out.fail(report.StatusSourcesUnavailable, err)
		return nil
	}
	out.Extractor = meta.Extractor
	out.SourceURL = meta.SourceURL
	out.GitReference = meta.GitReference
	out.LogFile = r.logFile(out.PluginID, out.PluginVersion)

	common := hooks.Common{
		Plugin:      meta,
		CoreVersion: r.config.CoreVersion,
		Config: &hooks.RunConfig{
			WorkingDir:        r.config.WorkingDir,
			LocalCheckoutDir:  r.config.LocalCheckoutDir,
			RerunFailingTests: r.config.RerunFailingTests,
		},
		Build:  r.runner,
		SCM:    r.scm,
		Logger: logger,
	}

	// Checkout
	checkoutDir, err := r.checkout(ctx, common)
	if err != nil {
		return r.stageFailed(out, report.StatusSourcesUnavailable, err, logger)
	}

	// Compilation
	comp := &hooks.CompilationContext{
		Common:        common,
		BuildSettings: hooks.BuildSettings{PluginDir: filepath.Join(checkoutDir, meta.ModulePath)},
	}
	comp.SetProperty(PropertyCoreVersion, r.config.CoreVersion)
	comp.SetProperty(PropertyOverrideWar, r.config.WarPath)
	comp.SetProperty(PropertyUseUpperBounds, "true")

	if err := r.compile(ctx, comp, out); err != nil {
		return r.stageFailed(out, report.StatusCompilationFailed, err, logger)
	}

	// Execution
	exec := hooks.NewExecutionContext(comp, TestGoals...)
	if err := r.execute(ctx, exec, out); err != nil {
		return r.stageFailed(out, report.StatusTestsFailed, err, logger)
	}

	// A passing build that ran no tests still counts as ok: plenty of
	// plugins ship without tests and the build itself proved compatibility.
	tests := build.TestOutcome{Executed: out.ExecutedTests, Failed: out.FailedTests}
	out.Status = report.StatusOK
	switch {
	case tests.Succeeded():
	case len(tests.Failed) > 0:
		out.Status = report.StatusTestsFailed
	default:
		logger.Warn("Build passed without running tests")
	}
	return nil
}

// stageFailed records a failed stage. Fatal hook errors and interruptions
// abort the run; build tool start failures are internal errors.
func (r *pluginRun) stageFailed(out *pluginOutcome, status report.Status, err error, logger *log.Logger) error {
	var execErr *build.ExecutionError
	switch {
	case hooks.IsFatal(err):
		logger.Error("Hook aborted the run", "error", err)
		out.fail(report.StatusInternalError, err)
		return err
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		out.fail(report.StatusInternalError, err)
		return err
	case stderrors.As(err, &execErr) && !execErr.Started:
		status = report.StatusInternalError
	case !stderrors.As(err, &execErr) && !errors.HasCode(err, errors.ErrCodeSourceUnavailable):
		status = report.StatusInternalError
	}
	logger.LogError(err)
	out.fail(status, err)
	return nil
}

func (r *pluginRun) resolve(ctx context.Context, pa *archive.PluginArchive) (*metadata.PluginMetadata, error) {
	_, span := telemetry.StartStageSpan(ctx, "resolve")
	defer span.End()

	meta, err := r.resolver.Resolve(metadata.NewDescriptor(pa))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.RecordSuccess(span)
	return meta, nil
}

// checkout runs the checkout hooks and clones the sources unless a hook
// already provided them.
func (r *pluginRun) checkout(ctx context.Context, common hooks.Common) (string, error) {
	ctx, span := telemetry.StartStageSpan(ctx, string(hooks.StageCheckout))
	defer span.End()

	c := &hooks.CheckoutContext{Common: common, Shared: r.shared}
	if _, err := r.registry.RunCheckout(ctx, c, r.config.ExcludeHooks); err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	if c.CheckoutDone {
		common.Logger.Debug("Sources provided by a hook", "dir", c.CheckoutDir)
		return c.CheckoutDir, nil
	}

	dir := filepath.Join(r.config.WorkingDir, common.Plugin.PluginID)
	common.Logger.Info("Checking out sources", "url", common.Plugin.SourceURL, "ref", common.Plugin.GitReference)
	if err := r.scm.Checkout(ctx, common.Plugin.SourceURL, dir, common.Plugin.GitReference); err != nil {
		if errors.CodeOf(err) == "" {
			err = errors.NewSourceUnavailableError(common.Plugin.SourceURL, err)
		}
		telemetry.RecordError(span, err)
		return "", err
	}
	telemetry.RecordSuccess(span)
	return dir, nil
}

// compile runs the compilation hooks and the compile goals unless a hook
// marked the compilation done.
func (r *pluginRun) compile(ctx context.Context, c *hooks.CompilationContext, out *pluginOutcome) error {
	ctx, span := telemetry.StartStageSpan(ctx, string(hooks.StageCompilation))
	defer span.End()

	if _, err := r.registry.RunCompilation(ctx, c, r.config.ExcludeHooks); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if c.CompilationDone {
		c.Logger.Debug("Compilation handled by a hook")
		return nil
	}

	outcome, err := r.build(ctx, "compile", c.BuildSettings, out.LogFile, CompileGoals)
	out.merge(outcome, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.RecordSuccess(span)
	return nil
}

// execute runs the execution hooks and then the test goals.
func (r *pluginRun) execute(ctx context.Context, c *hooks.ExecutionContext, out *pluginOutcome) error {
	ctx, span := telemetry.StartStageSpan(ctx, string(hooks.StageExecution))
	defer span.End()

	if _, err := r.registry.RunExecution(ctx, c, r.config.ExcludeHooks); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	outcome, err := r.build(ctx, "test", c.BuildSettings, out.LogFile, c.Goals)
	out.merge(outcome, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.RecordSuccess(span)
	return nil
}

// build invokes the runner with the stage's arguments ahead of the goals.
func (r *pluginRun) build(ctx context.Context, phase string, s hooks.BuildSettings, logFile string, goals []string) (*build.Outcome, error) {
	args := make([]string, 0, len(s.Args)+len(goals))
	args = append(args, s.Args...)
	args = append(args, goals...)

	started := r.now()
	outcome, err := r.runner.Run(ctx, s.BuildProperties(), s.PluginDir, logFile, args...)
	if r.metrics != nil {
		r.metrics.RecordBuild(phase, err == nil, r.now().Sub(started))
	}
	return outcome, err
}

func (r *pluginRun) logFile(pluginID, version string) string {
	name := fmt.Sprintf("v%s_against_%s.log", version, r.config.CoreVersion)
	return filepath.Join(r.config.WorkingDir, "logs", pluginID, name)
}

// fail records a terminal status and its cause.
func (o *pluginOutcome) fail(status report.Status, err error) {
	o.Status = status
	o.err = err
	if err != nil {
		o.Error = err.Error()
	}
}

// merge folds a build outcome into the result. Steps accumulate across
// invocations; test sets come from the latest invocation that ran tests.
func (o *pluginOutcome) merge(outcome *build.Outcome, err error) {
	var execErr *build.ExecutionError
	if outcome == nil && stderrors.As(err, &execErr) {
		outcome = &execErr.Outcome
	}
	if outcome == nil {
		return
	}
	o.SucceededSteps = append(o.SucceededSteps, outcome.SucceededSteps...)
	if outcome.LogFile != "" {
		o.LogFile = outcome.LogFile
	}
	if t := outcome.Tests; t != nil {
		o.ExecutedTests = t.Executed
		o.FailedTests = t.Failed
		o.Warnings = append(o.Warnings, t.Warnings...)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
