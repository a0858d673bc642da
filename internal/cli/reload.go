package cli

import (
	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/protocol/page"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload current page",
	Long:  "Reloads the target page. Returns once the browser accepted the reload.",
	Args:  cobra.NoArgs,
	RunE:  runReload,
}

var reloadIgnoreCache bool

func init() {
	reloadCmd.Flags().BoolVar(&reloadIgnoreCache, "ignore-cache", false, "Bypass browser cache (hard reload)")
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	c, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	if err := page.Use(c.session).Reload(cmd.Context(), reloadIgnoreCache); err != nil {
		return outputError(cmd, err)
	}
	return outputSuccess(cmd, nil)
}
