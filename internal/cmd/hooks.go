package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plugin-compat-tester/internal/hooks"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List the registered hooks",
	Long: `List the hooks registered for each stage, in the order they are
considered: hooks that apply to every plugin first, then plugin-specific
hooks.

With --plugin, only the hooks that would be queued for that plugin are
shown. Whether a queued hook actually runs still depends on its own check.

Examples:
  pct hooks
  pct hooks --hooks-file rules.yaml --plugin configuration-as-code
  pct hooks --json
`,
	Args: cobra.NoArgs,
	RunE: runHooks,
}

var (
	hooksFile   string
	hooksPlugin string
	hooksJSON   bool
)

func init() {
	hooksCmd.Flags().StringVar(&hooksFile, "hooks-file", "", "YAML file with additional hook rules")
	hooksCmd.Flags().StringVar(&hooksPlugin, "plugin", "", "show the hook queue of this plugin id")
	hooksCmd.Flags().BoolVar(&hooksJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(hooksCmd)
}

func runHooks(cmd *cobra.Command, _ []string) error {
	registry, err := newHookRegistry(hooksFile)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	infos := registry.Describe()
	if hooksPlugin != "" {
		infos = queued(registry, infos, hooksPlugin)
	}

	if hooksJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	for _, stage := range hooks.Stages {
		_, _ = fmt.Fprintln(out, headerStyle.Render(string(stage)))
		n := 0
		for _, info := range infos {
			if info.Stage != stage {
				continue
			}
			n++
			affinity := "all plugins"
			if len(info.Plugins) > 0 {
				affinity = strings.Join(info.Plugins, ", ")
			}
			_, _ = fmt.Fprintf(out, "  %s%s\n", cell(info.Name, pluginWidth), labelStyle.Render(affinity))
		}
		if n == 0 {
			_, _ = fmt.Fprintln(out, labelStyle.Render("  (none)"))
		}
	}
	return nil
}

// queued keeps the hooks queued for pluginID, in queue order.
func queued(registry *hooks.Registry, infos []hooks.Info, pluginID string) []hooks.Info {
	byKey := make(map[string]hooks.Info, len(infos))
	for _, info := range infos {
		byKey[string(info.Stage)+"/"+info.Name] = info
	}

	var out []hooks.Info
	for _, stage := range hooks.Stages {
		for _, name := range registry.Queue(stage, pluginID) {
			out = append(out, byKey[string(stage)+"/"+name])
		}
	}
	return out
}
