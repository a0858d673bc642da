package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/cli/format"
	"github.com/grantcarthew/cdpsession/internal/protocol/runtime"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate JavaScript in the page",
	Long:  "Evaluates a JavaScript expression in the page context, awaiting promises, and prints the result.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	c, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	// Join all args to form the expression (allows shell-friendly use without quotes)
	expression := strings.Join(args, " ")

	obj, err := runtime.Use(c.session).Evaluate(cmd.Context(), expression)
	if err != nil {
		return outputError(cmd, err)
	}

	if JSONOutput {
		return outputSuccess(cmd, obj)
	}
	return format.EvalResult(cmd.OutOrStdout(), obj)
}
