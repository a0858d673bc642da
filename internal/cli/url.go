package cli

import (
	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/actions"
)

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the current document URL",
	Args:  cobra.NoArgs,
	RunE:  runURL,
}

func init() {
	rootCmd.AddCommand(urlCmd)
}

func runURL(cmd *cobra.Command, args []string) error {
	c, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	u, err := actions.On(c.session).URL(cmd.Context())
	if err != nil {
		return outputError(cmd, err)
	}
	return outputSuccess(cmd, u)
}
