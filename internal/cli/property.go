package cli

import (
	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/actions"
	"github.com/grantcarthew/cdpsession/internal/cli/format"
)

var propertyCmd = &cobra.Command{
	Use:   "property <selector> <path>",
	Short: "Read a property of an element",
	Long: `Reads a dotted property path from the first element matching a CSS selector
and prints it as JSON.

Examples:
  cdpsession property h1 textContent
  cdpsession property '#main' dataset.state
  cdpsession property input.email validity.valid`,
	Args: cobra.ExactArgs(2),
	RunE: runProperty,
}

func init() {
	rootCmd.AddCommand(propertyCmd)
}

func runProperty(cmd *cobra.Command, args []string) error {
	c, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	v, err := actions.On(c.session).Property(cmd.Context(), args[0], args[1])
	if err != nil {
		return outputError(cmd, err)
	}
	if JSONOutput {
		return outputSuccess(cmd, v)
	}
	return format.JSON(cmd.OutOrStdout(), v)
}
