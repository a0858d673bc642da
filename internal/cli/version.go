package cli

import (
	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/cli/format"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show browser version information",
	Long:  "Queries the browser's /json/version endpoint. Use --version for the cdpsession version.",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return outputError(cmd, err)
	}

	info, err := discoveryClient(cfg).Version(cmd.Context())
	if err != nil {
		return outputError(cmd, err)
	}

	if JSONOutput {
		return outputSuccess(cmd, info)
	}
	return format.Version(cmd.OutOrStdout(), *info, outputOptions())
}
