package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/log"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "pct",
	Short: "Plugin compatibility tester",
	Long: `pct checks that the plugins bundled with a host distribution still build
and pass their own tests against that distribution's core version.

For every plugin it resolves the source repository from the plugin archive,
checks out the released sources, compiles them against the core and runs
their test suite. Results are persisted to a JSON report that doubles as a
cache, so unchanged plugins are not rebuilt on the next run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Configure(logLevel, logFormat)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// interrupt by the caller.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./pct.yaml or ~/.config/pct/pct.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json, console")
}
