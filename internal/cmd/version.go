package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
	RunE: runVersion,
}

var (
	versionVerbose bool
	versionJSON    bool
)

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "show detailed version information")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version information as JSON")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.GetInfo()
	out := cmd.OutOrStdout()

	if versionJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version info: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil
	}

	if versionVerbose {
		_, _ = fmt.Fprintln(out, titleStyle.Render("pct · plugin compatibility tester"))
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, info.String())
		return nil
	}

	_, _ = fmt.Fprintf(out, "pct %s\n", info.Short())
	return nil
}
