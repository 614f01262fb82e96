package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/config"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/errors"
	"github.com/felixgeelhaar/plugin-compat-tester/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the persisted report",
	Long: `Show the results recorded in the report file, one line per plugin
version and core version.

Examples:
  pct report
  pct report --core 2.440.1 --status tests-failed
  pct report --json
`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

var (
	reportFile   string
	reportCore   string
	reportStatus string
	reportJSON   bool
)

func init() {
	reportCmd.Flags().StringVar(&reportFile, "report-file", config.DefaultReportFile, "report file to read")
	reportCmd.Flags().StringVar(&reportCore, "core", "", "only show results for this core version")
	reportCmd.Flags().StringVar(&reportStatus, "status", "", "only show results with this status")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "output the report as JSON")

	rootCmd.AddCommand(reportCmd)
}

// reportRow is one result with its plugin identity.
type reportRow struct {
	PluginID      string `json:"plugin_id"`
	PluginVersion string `json:"plugin_version"`
	report.Result
}

func runReport(cmd *cobra.Command, _ []string) error {
	var status report.Status
	if reportStatus != "" {
		if err := status.Set(reportStatus); err != nil {
			return errors.NewConfigInvalidError("--status: " + err.Error())
		}
	}

	r, err := report.NewStore(reportFile).Load()
	if err != nil {
		return err
	}
	rows := selectRows(r, reportCore, status)
	out := cmd.OutOrStdout()

	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, labelStyle.Render("No results recorded in "+reportFile))
		return nil
	}

	_, _ = fmt.Fprintf(out, "%s%s%s%s%s\n",
		headerStyle.Render(cell("PLUGIN", pluginWidth)),
		headerStyle.Render(cell("VERSION", versionWidth)),
		headerStyle.Render(cell("CORE", versionWidth)),
		headerStyle.Render(cell("STATUS", statusWidth)),
		headerStyle.Render("RECORDED"))
	for _, row := range rows {
		_, _ = fmt.Fprintf(out, "%s%s%s%s%s\n",
			cell(row.PluginID, pluginWidth),
			cell(row.PluginVersion, versionWidth),
			cell(row.CoreVersion, versionWidth),
			cell(renderStatus(row.Status), statusWidth),
			labelStyle.Render(row.Timestamp.Local().Format(time.DateTime)))
	}
	return nil
}

// selectRows flattens the report, ordered by plugin id, plugin version and
// core version.
func selectRows(r *report.Report, core string, status report.Status) []reportRow {
	rows := []reportRow{}
	for _, entry := range r.Entries() {
		for _, res := range entry.Results {
			if core != "" && res.CoreVersion != core {
				continue
			}
			if status != "" && res.Status != status {
				continue
			}
			rows = append(rows, reportRow{PluginID: entry.PluginID, PluginVersion: entry.PluginVersion, Result: res})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.PluginID != b.PluginID {
			return a.PluginID < b.PluginID
		}
		if a.PluginVersion != b.PluginVersion {
			return a.PluginVersion < b.PluginVersion
		}
		return a.CoreVersion < b.CoreVersion
	})
	return rows
}
