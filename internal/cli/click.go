package cli

import (
	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/actions"
)

var clickCmd = &cobra.Command{
	Use:   "click <selector>",
	Short: "Click an element",
	Long:  "Clicks the centre of the first element matching a CSS selector.",
	Args:  cobra.ExactArgs(1),
	RunE:  runClick,
}

func init() {
	rootCmd.AddCommand(clickCmd)
}

func runClick(cmd *cobra.Command, args []string) error {
	c, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	if err := actions.On(c.session).Click(cmd.Context(), args[0]); err != nil {
		return outputError(cmd, err)
	}
	return outputSuccess(cmd, nil)
}
