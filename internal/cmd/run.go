package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/archive"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/build"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/config"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/exitcode"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/hooks"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/metrics"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/progress"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/scm"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/telemetry"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/tester"
)

// sshPassphraseEnv holds the passphrase of --ssh-key, kept out of flags and
// config files.
const sshPassphraseEnv = "PCT_SSH_KEY_PASSPHRASE"

const telemetryFlushTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Test plugins against a host distribution",
	Long: `Test the plugins bundled in a host distribution, or the given plugin
archives, against the distribution's core version.

Each plugin goes through four stages: resolve its source repository from the
archive, check out the released sources, compile them and run their tests.
Hooks customize each stage per plugin. The result of every plugin is written
to the report file as soon as it is known.

Every flag can also be set in pct.yaml or through a PCT_* environment
variable, for example PCT_WORKING_DIR.

Examples:
  # Test every bundled plugin
  pct run --war jenkins.war

  # Test two plugins, rebuilding even if cached
  pct run --war jenkins.war --include-plugins git,matrix-auth --cache-timeout 0

  # Test a locally built plugin against a distribution
  pct run --war jenkins.war --plugin-archive target/git.hpi --local-checkout-dir ~/src/git-plugin
`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	config.RegisterFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.Configure(cfg.LogLevel, cfg.LogFormat)
	if cfg.ConfigFile != "" {
		logger.Debug("Loaded configuration", "file", cfg.ConfigFile)
	}

	shutdown, err := telemetry.InitProvider(ctx, telemetry.ForEndpoint(cfg.OTLPEndpoint))
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "cannot initialize tracing", err).
			WithSuggestion("Check --otlp-endpoint or leave it empty to disable tracing")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryFlushTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	war, err := archive.Open(cfg.War)
	if err != nil {
		return err
	}
	defer func() { _ = war.Close() }()

	candidates := tester.FromDistribution(war)
	if len(cfg.PluginArchives) > 0 {
		candidates = tester.FromFiles(cfg.PluginArchives...)
	}
	logger.Info("Opened distribution", "war", cfg.War, "core_version", war.CoreVersion, "plugins", len(candidates))

	runner, err := newRunner(cfg, logger)
	if err != nil {
		return err
	}
	client, err := newSCM(cfg, logger)
	if err != nil {
		return err
	}

	indicator := progress.NewIndicator(progress.Config{Writer: cmd.ErrOrStderr()})
	promRegistry, m := metrics.NewRegistry()
	registry, err := newHookRegistry(cfg.HooksFile, hooks.WithObserver(tester.HookObserver(m, logger)))
	if err != nil {
		return err
	}

	t, err := tester.New(tester.Config{
		CoreVersion:       war.CoreVersion,
		WarPath:           absPath(cfg.War),
		WorkingDir:        cfg.WorkingDir,
		LocalCheckoutDir:  cfg.LocalCheckoutDir,
		IncludePlugins:    cfg.IncludePlugins,
		ExcludePlugins:    cfg.ExcludePlugins,
		ExcludeHooks:      cfg.ExcludeHooks,
		RerunFailingTests: cfg.RerunFailingTests,
		FailFast:          cfg.FailFast,
		CacheWindow:       cfg.CacheTimeout,
		CacheThreshold:    cfg.Threshold(),
	}, runner, client, report.NewStore(cfg.ReportFile),
		tester.WithRegistry(registry),
		tester.WithMetrics(m),
		tester.WithLogger(logger),
		tester.WithProgress(indicator),
	)
	if err != nil {
		return err
	}

	summary, runErr := t.Run(ctx, candidates)
	indicator.Finish()

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, promRegistry); err != nil {
			logger.Warn("Failed to write metrics", "file", cfg.MetricsFile, "error", err)
		}
	}
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary, cfg.ReportFile)
	}

	if runErr != nil {
		return runErr
	}
	if len(summary.Failed()) > 0 {
		return exitcode.ErrPluginFailures
	}
	return nil
}

func newRunner(cfg *config.Config, logger *log.Logger) (*build.Maven, error) {
	props, err := cfg.BuildProperties()
	if err != nil {
		return nil, err
	}
	return &build.Maven{
		Executable:  cfg.Maven,
		Settings:    cfg.MavenSettings,
		Args:        cfg.MavenArgs,
		Properties:  props,
		ManifestDir: filepath.Join(cfg.WorkingDir, "manifests"),
		Logger:      logger,
	}, nil
}

func newSCM(cfg *config.Config, logger *log.Logger) (*scm.GoGit, error) {
	var auth transport.AuthMethod
	if cfg.SSHKey != "" {
		a, err := scm.SSHAuth(cfg.SSHKey, os.Getenv(sshPassphraseEnv), cfg.SSHKnownHosts)
		if err != nil {
			return nil, err
		}
		auth = a
	}
	return scm.NewGoGit(auth, logger), nil
}

// newHookRegistry builds the registry from the built-in catalog plus the
// rules in hooksFile, if any.
func newHookRegistry(hooksFile string, opts ...hooks.Option) (*hooks.Registry, error) {
	catalog := hooks.DefaultCatalog()
	if hooksFile != "" {
		rules, err := hooks.LoadRules(hooksFile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "invalid hooks file "+hooksFile, err)
		}
		if catalog, err = catalog.WithRules(rules...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "invalid hooks file "+hooksFile, err)
		}
	}
	registry, err := hooks.NewRegistry(catalog, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, "cannot build hook registry", err)
	}
	return registry, nil
}

// absPath is used for paths handed to the build tool, which runs in the
// plugin's directory.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
