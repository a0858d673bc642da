package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/cli/format"
)

var sendCmd = &cobra.Command{
	Use:   "send <method> [params-json]",
	Short: "Send a raw protocol command",
	Long: `Sends one protocol command and prints its result object.

Params are a JSON object; members set to null are left out of the request.

Examples:
  cdpsession send Browser.getVersion
  cdpsession send Page.navigate '{"url":"https://example.com"}'
  cdpsession send Runtime.evaluate '{"expression":"1+1"}' --session <id>`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().String("session", "", "Route the command to an attached target session")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	sessionID, _ := cmd.Flags().GetString("session")

	var raw string
	if len(args) == 2 {
		raw = args[1]
	}
	params, err := parseParams(raw)
	if err != nil {
		return outputError(cmd, err)
	}

	c, err := openSession(cmd.Context(), cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	result, err := c.session.CallSession(cmd.Context(), sessionID, args[0], params)
	if err != nil {
		return outputError(cmd, err)
	}

	if JSONOutput {
		return outputSuccess(cmd, result)
	}
	return format.JSON(cmd.OutOrStdout(), result)
}

// parseParams decodes a JSON object into ordered command params. Member
// order is kept; null members are dropped. Empty input yields nil params.
func parseParams(raw string) (*cdp.Params, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("params: must be a JSON object")
	}

	params := cdp.NewParams()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("params: unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("params: %s: %w", key, err)
		}
		if bytes.Equal(value, []byte("null")) {
			continue
		}
		params.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	if dec.More() {
		return nil, errors.New("params: trailing data after object")
	}
	return params, nil
}
