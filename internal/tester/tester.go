// Package tester runs the per-plugin compatibility pipeline: resolve the
// plugin's source, check it out, compile it and run its tests against the
// core version of a distribution, recording every result in the persisted
// report.
package tester

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/build"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/hooks"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/metadata"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/metrics"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/scm"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/telemetry"
)

var (
	// CompileGoals build the plugin and its test classes.
	CompileGoals = []string{"clean", "process-test-classes"}
	// TestGoals run the plugin's tests against the overridden core.
	TestGoals = []string{"hpi:resolve-test-dependencies", "hpi:test-hpl", "surefire:test"}
)

// Build properties set for every plugin before the compilation hooks run.
const (
	PropertyCoreVersion    = "jenkins.version"
	PropertyOverrideWar    = "overrideWar"
	PropertyUseUpperBounds = "useUpperBounds"
)

// Config contains the settings of one compatibility run
type Config struct {
	// CoreVersion is the version of the distribution under test
	CoreVersion string
	// WarPath is the distribution archive, passed to the build as overrideWar
	WarPath string
	// WorkingDir receives checkouts and build logs
	WorkingDir string
	// LocalCheckoutDir, when set, is searched for existing plugin sources
	LocalCheckoutDir string

	IncludePlugins []string
	ExcludePlugins []string
	ExcludeHooks   []string

	RerunFailingTests int
	FailFast          bool

	// CacheWindow is how long a recorded result stays reusable; zero
	// disables the cache.
	CacheWindow    time.Duration
	CacheThreshold report.Status
}

// Tester orchestrates a compatibility run.
type Tester struct {
	config   Config
	resolver *metadata.Resolver
	registry *hooks.Registry
	runner   build.Runner
	scm      scm.Client
	store    *report.Store
	metrics  *metrics.Metrics
	logger   *log.Logger
	progress Progress
	now      func() time.Time
	newID    func() string
}

// Progress receives per-plugin events as a run advances.
type Progress interface {
	RunStarted(total int)
	PluginStarted(pluginID, version string)
	PluginSkipped(pluginID string)
	PluginFinished(pluginID string, status report.Status, cached bool)
}

// Option configures a Tester.
type Option func(*Tester)

// WithResolver replaces the default metadata resolver.
func WithResolver(r *metadata.Resolver) Option {
	return func(t *Tester) { t.resolver = r }
}

// WithRegistry replaces the registry built from the default hook catalog.
func WithRegistry(r *hooks.Registry) Option {
	return func(t *Tester) { t.registry = r }
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tester) { t.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(t *Tester) { t.logger = l }
}

// WithProgress reports run progress to p.
func WithProgress(p Progress) Option {
	return func(t *Tester) { t.progress = p }
}

// WithClock replaces the time source used for timestamps and the cache.
func WithClock(now func() time.Time) Option {
	return func(t *Tester) { t.now = now }
}

// New creates a tester that builds with runner, checks out with client and
// persists to store.
func New(config Config, runner build.Runner, client scm.Client, store *report.Store, opts ...Option) (*Tester, error) {
	t := &Tester{
		config:   config,
		resolver: metadata.DefaultResolver(),
		runner:   runner,
		scm:      client,
		store:    store,
		logger:   log.DefaultLogger(),
		now:      time.Now,
		progress: noProgress{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.registry == nil {
		reg, err := hooks.NewRegistry(hooks.DefaultCatalog())
		if err != nil {
			return nil, err
		}
		t.registry = reg
	}
	if config.CoreVersion == "" {
		return nil, errors.NewConfigInvalidError("core version is unknown")
	}
	if config.WorkingDir == "" {
		return nil, errors.NewConfigInvalidError("working directory is required")
	}
	abs, err := filepath.Abs(config.WorkingDir)
	if err != nil {
		return nil, errors.NewConfigInvalidError(err.Error())
	}
	t.config.WorkingDir = abs
	return t, nil
}

// Run tests the candidates in order:
// 1. Load the persisted report, which doubles as the result cache
// 2. Test each plugin, persisting after every result
// 3. Stop early on a fatal hook error, interruption or, in fail-fast mode,
// the first unacceptable status
//
// The summary is returned even when Run fails part way.
func (t *Tester) Run(ctx context.Context, candidates []Candidate) (*Summary, error) {
	summary := &Summary{
		RunID:       t.newID(),
		CoreVersion: t.config.CoreVersion,
		StartedAt:   t.now(),
	}
	defer func() { summary.Duration = t.now().Sub(summary.StartedAt) }()

	ctx, span := telemetry.StartRunSpan(ctx, t.config.CoreVersion, len(candidates))
	defer span.End()

	rep, err := t.store.Load()
	if err != nil {
		telemetry.RecordError(span, err)
		return summary, err
	}
	cache := report.NewCache(rep, t.config.CacheWindow, t.config.CacheThreshold).WithClock(t.now)

	run := &pluginRun{
		Tester: t,
		runID:  summary.RunID,
		cache:  cache,
		shared: hooks.NewSharedCheckouts(),
	}

	t.progress.RunStarted(len(candidates))
	t.logger.Info("Starting compatibility run",
		"run_id", summary.RunID, "core_version", t.config.CoreVersion,
		"plugins", len(candidates), "report", t.store.Path())

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res, fatal := run.test(ctx, c)
		if res == nil {
			if fatal != nil {
				return summary, fatal
			}
			continue
		}
		if res.skipped {
			summary.Skipped = append(summary.Skipped, res.PluginID)
			t.progress.PluginSkipped(res.PluginID)
			continue
		}

		summary.Results = append(summary.Results, res.PluginResult)
		t.progress.PluginFinished(res.PluginID, res.Status, res.Cached)
		t.recordMetrics(res)
		if !res.Cached {
			rep.Add(res.PluginID, res.PluginVersion, res.Result)
			rep.UpdatedAt = t.now()
			if err := t.store.Save(rep); err != nil {
				telemetry.RecordError(span, err)
				return summary, err
			}
		}

		if fatal != nil {
			telemetry.RecordError(span, fatal)
			return summary, fatal
		}
		if t.config.FailFast && !res.Status.Acceptable() {
			t.logger.Warn("Stopping at first failure", "plugin", res.PluginID, "status", res.Status)
			summary.Aborted = true
			break
		}
	}

	if failed := len(summary.Failed()); failed > 0 {
		telemetry.RecordError(span, fmt.Errorf("%d plugins failed", failed))
	} else {
		telemetry.RecordSuccess(span)
	}
	return summary, nil
}

type noProgress struct{}

func (noProgress) RunStarted(int)                             {}
func (noProgress) PluginStarted(string, string)               {}
func (noProgress) PluginSkipped(string)                       {}
func (noProgress) PluginFinished(string, report.Status, bool) {}

func (t *Tester) recordMetrics(res *pluginOutcome) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordPlugin(string(res.Status), res.Cached, res.Duration)
	if !res.Cached {
		t.metrics.RecordTests(len(res.ExecutedTests), len(res.FailedTests))
	}
	if res.err != nil {
		t.metrics.RecordError(string(errors.CodeOf(res.err)), "tester")
	}
}

// HookObserver feeds hook results into m and the debug log. It is meant for
// hooks.WithObserver.
func HookObserver(m *metrics.Metrics, logger *log.Logger) func(hooks.Result) {
	return func(r hooks.Result) {
		outcome := "ok"
		switch {
		case r.Excluded:
			outcome = "excluded"
		case !r.Ran:
			outcome = "skipped"
		case r.Error != "":
			outcome = "failed"
		}
		if m != nil {
			m.RecordHook(string(r.Stage), r.HookName, outcome, r.Duration)
		}
		if logger != nil {
			logger.Debug("Hook finished", "hook", r.HookName, "stage", r.Stage, "plugin", r.Plugin, "outcome", outcome)
		}
	}
}
