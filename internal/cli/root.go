package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grantcarthew/cdpsession/internal/cli/format"
)

// Version is set at build time.
var Version = "dev"

// Debug enables verbose debug output.
var Debug bool

// JSONOutput enables JSON output format (default is text).
var JSONOutput bool

// NoColor disables color output.
var NoColor bool

// Connection flags. Zero values leave the config file and environment in
// charge; only flags the user set are applied.
var (
	ConfigPath string
	Host       string
	Port       int
	TargetID   string
	NewTarget  bool
	Launch     bool
	Headless   bool
	Timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "cdpsession",
	Short:         "Talk to a browser over the Chrome DevTools Protocol",
	Long:          "cdpsession opens a DevTools protocol session to a running (or launched) browser and sends commands, evaluates script and streams events.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&ConfigPath, "config", "", "Config file (default is the user config dir)")
	pf.StringVar(&Host, "host", "", "Browser debugging host")
	pf.IntVar(&Port, "port", 0, "Browser debugging port")
	pf.StringVar(&TargetID, "target", "", "Attach to the target with this id")
	pf.BoolVar(&NewTarget, "new-target", false, "Open a new page instead of reusing one")
	pf.BoolVar(&Launch, "launch", false, "Start a local browser before connecting")
	pf.BoolVar(&Headless, "headless", false, "Run the launched browser headless")
	pf.DurationVar(&Timeout, "timeout", 0, "Command timeout")
	pf.BoolVar(&Debug, "debug", false, "Enable verbose debug output")
	pf.BoolVar(&JSONOutput, "json", false, "Output in JSON format (default is text)")
	pf.BoolVar(&NoColor, "no-color", false, "Disable color output")
	rootCmd.SetVersionTemplate(`cdpsession version {{.Version}}
Repository: https://github.com/grantcarthew/cdpsession
`)
}

// newLogger returns the logger handed to the session engine.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// debugf logs a debug message if debug mode is enabled.
func debugf(cmd *cobra.Command, format string, args ...any) {
	if Debug {
		fmt.Fprintf(cmd.ErrOrStderr(), "[DEBUG] "+format+"\n", args...)
	}
}

// Execute runs the root command. Interrupts cancel the command context.
// Supports command abbreviation via unique prefix matching.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	if len(args) > 0 {
		if expanded := tryExpandCommand(args[0]); expanded != "" {
			args[0] = expanded
			rootCmd.SetArgs(args)
		}
	}
	return rootCmd.ExecuteContext(ctx)
}

// tryExpandCommand attempts to expand a command abbreviation.
// Returns the expanded command if exactly one match is found, empty string otherwise.
func tryExpandCommand(prefix string) string {
	var matches []string
	for _, cmd := range rootCmd.Commands() {
		name := cmd.Name()
		if name == prefix {
			return ""
		}
		if len(prefix) < len(name) && name[:len(prefix)] == prefix {
			matches = append(matches, name)
		}
	}
	if len(matches) == 1 {
		return matches[0]
	}
	return ""
}

// printedError marks an error already reported to the user.
type printedError struct{ err error }

func (e *printedError) Error() string { return e.err.Error() }
func (e *printedError) Unwrap() error { return e.err }

// IsPrintedError reports whether err was already written to stderr by a
// command handler.
func IsPrintedError(err error) bool {
	var pe *printedError
	return errors.As(err, &pe)
}

// isStdoutTTY returns true if stdout is a terminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// outputJSON writes a JSON response to the given writer.
// Pretty prints if stdout is a TTY, compact otherwise.
func outputJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if isStdoutTTY() {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// outputSuccess writes a successful response.
// For action commands (no data), outputs "OK" in text mode.
func outputSuccess(cmd *cobra.Command, data any) error {
	w := cmd.OutOrStdout()
	if JSONOutput {
		resp := map[string]any{"ok": true}
		if data != nil {
			resp["data"] = data
		}
		return outputJSON(w, resp)
	}

	if data == nil {
		if shouldUseColor() {
			color.New(color.FgGreen).Fprintln(w, "OK")
			return nil
		}
		return format.ActionSuccess(w)
	}

	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// outputError writes an error response to stderr and returns it marked as
// printed.
func outputError(cmd *cobra.Command, err error) error {
	w := cmd.ErrOrStderr()
	if JSONOutput {
		_ = outputJSON(w, map[string]any{"ok": false, "error": err.Error()})
	} else {
		_ = format.ActionError(w, err.Error(), format.OutputOptions{UseColor: shouldUseColor()})
	}
	return &printedError{err: err}
}

// shouldUseColor determines if color output should be used based on flags and environment.
func shouldUseColor() bool {
	if JSONOutput || NoColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// outputOptions returns text formatting options for stdout.
func outputOptions() format.OutputOptions {
	return format.NewOutputOptions(JSONOutput, NoColor)
}
