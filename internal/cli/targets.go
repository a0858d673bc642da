package cli

import (
	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/cli/format"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List debuggable targets",
	Long:  "Lists the targets the browser exposes on its discovery endpoint (/json/list).",
	Args:  cobra.NoArgs,
	RunE:  runTargets,
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}

func runTargets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return outputError(cmd, err)
	}

	targets, err := discoveryClient(cfg).Targets(cmd.Context())
	if err != nil {
		return outputError(cmd, err)
	}

	if JSONOutput {
		return outputSuccess(cmd, targets)
	}
	return format.Targets(cmd.OutOrStdout(), targets, outputOptions())
}
