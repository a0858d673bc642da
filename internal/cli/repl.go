package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/cli/format"
	"github.com/grantcarthew/cdpsession/internal/protocol"
	"github.com/grantcarthew/cdpsession/internal/protocol/target"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive protocol session",
	Long: `Opens a session and reads commands interactively. Each line is either a
protocol command with optional JSON params:

  Page.navigate {"url":"https://example.com"}

or one of the REPL commands listed by "help". When stdin is not a terminal
lines are read from it one at a time, so a script can be piped in.`,
	Args: cobra.NoArgs,
	RunE: runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// isStdinTTY returns true if stdin is a terminal.
func isStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func runREPL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := openSession(ctx, cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	r := newREPL(c.session, cmd.OutOrStdout(), cmd.ErrOrStderr(), outputOptions())
	defer r.close()

	in := cmd.InOrStdin()
	if in == os.Stdin && isStdinTTY() {
		return r.runInteractive(ctx)
	}
	return r.runScript(ctx, in)
}

// repl holds the state of one interactive session.
type repl struct {
	session   *cdp.Session
	out       io.Writer
	errOut    io.Writer
	opts      format.OutputOptions
	printer   *eventPrinter
	listeners map[string]string // event name -> listener id
	sessionID string            // flat-mode target session commands are routed to
	history   []string
}

func newREPL(s *cdp.Session, out, errOut io.Writer, opts format.OutputOptions) *repl {
	return &repl{
		session:   s,
		out:       out,
		errOut:    errOut,
		opts:      opts,
		printer:   newEventPrinter(out, opts, 0),
		listeners: make(map[string]string),
	}
}

func (r *repl) close() {
	for _, id := range r.listeners {
		r.session.RemoveListener(id)
	}
	clear(r.listeners)
}

// runInteractive runs the liner prompt loop. Blocks until exit or EOF.
func (r *repl) runInteractive(ctx context.Context) error {
	l := liner.NewLiner()
	defer l.Close()
	l.SetCtrlCAborts(true)

	for ctx.Err() == nil {
		line, err := l.Prompt(r.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.AppendHistory(line)
		if r.handle(ctx, line) {
			return nil
		}
	}
	return nil
}

// runScript executes each line of in until EOF or exit.
func (r *repl) runScript(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() && ctx.Err() == nil {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if r.handle(ctx, line) {
			return nil
		}
	}
	return sc.Err()
}

// prompt shows the target session commands are routed to, if any.
func (r *repl) prompt() string {
	if r.sessionID == "" {
		return "cdp> "
	}
	id := r.sessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("cdp [%s]> ", id)
}

// replCommands lists REPL-specific commands for abbreviation matching.
var replCommands = []string{"exit", "quit", "help", "history", "on", "off", "attach", "session", "events"}

// expandAbbreviation expands a command prefix to a full command name.
// Returns the expanded command and true if exactly one match found.
func expandAbbreviation(prefix string, commands []string) (string, bool) {
	prefix = strings.ToLower(prefix)
	var matches []string
	for _, cmd := range commands {
		if cmd == prefix {
			return cmd, true
		}
		if strings.HasPrefix(cmd, prefix) {
			matches = append(matches, cmd)
		}
	}
	if len(matches) == 1 {
		return matches[0], true
	}
	return "", false
}

// handle runs one input line and reports whether the REPL should exit.
func (r *repl) handle(ctx context.Context, line string) bool {
	r.history = append(r.history, line)

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	// Protocol methods are Domain.method; everything else is a REPL command.
	if strings.Contains(name, ".") {
		r.send(ctx, name, rest)
		return false
	}
	if name == "?" {
		name = "help"
	}

	cmd, ok := expandAbbreviation(name, replCommands)
	if !ok {
		r.errorf("unknown command: %s (try help)", name)
		return false
	}

	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		r.printHelp()
	case "history":
		for i, h := range r.history {
			fmt.Fprintf(r.out, "  %d  %s\n", i+1, h)
		}
	case "on":
		r.on(ctx, strings.Fields(rest))
	case "off":
		r.off(strings.Fields(rest))
	case "events":
		for _, t := range protocol.Registry().Types() {
			fmt.Fprintln(r.out, t)
		}
	case "attach":
		r.attach(ctx, rest)
	case "session":
		r.sessionID = rest
		_ = format.ActionSuccess(r.out)
	}
	return false
}

func (r *repl) errorf(msg string, args ...any) {
	_ = format.ActionError(r.errOut, fmt.Sprintf(msg, args...), r.opts)
}

func (r *repl) send(ctx context.Context, method, raw string) {
	params, err := parseParams(raw)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	result, err := r.session.CallSession(ctx, r.sessionID, method, params)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	r.printer.mu.Lock()
	defer r.printer.mu.Unlock()
	if err := format.JSON(r.out, result); err != nil {
		r.errorf("%v", err)
	}
}

func (r *repl) on(ctx context.Context, events []string) {
	if len(events) == 0 {
		r.errorf("usage: on <event...>")
		return
	}
	domains, err := eventDomains(protocol.Registry(), events)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	for _, name := range events {
		if _, ok := r.listeners[name]; ok {
			continue
		}
		r.listeners[name] = r.session.AddListener(
			cdp.Filter{Type: cdp.EventType(name), SessionID: r.sessionID}, r.printer.print)
	}
	for _, d := range domains {
		if d == "Target" || d == "Browser" {
			if err := enableDomain(ctx, r.session, d); err != nil {
				r.errorf("enable %s: %v", d, err)
			}
			continue
		}
		if _, err := r.session.CallSession(ctx, r.sessionID, d+".enable", nil); err != nil {
			r.errorf("enable %s: %v", d, err)
		}
	}
}

func (r *repl) off(events []string) {
	if len(events) == 0 {
		r.close()
		return
	}
	for _, name := range events {
		if id, ok := r.listeners[name]; ok {
			r.session.RemoveListener(id)
			delete(r.listeners, name)
		}
	}
}

func (r *repl) attach(ctx context.Context, targetID string) {
	if targetID == "" {
		r.errorf("usage: attach <target-id>")
		return
	}
	sid, err := target.Use(r.session).Attach(ctx, target.ID(targetID))
	if err != nil {
		r.errorf("%v", err)
		return
	}
	r.sessionID = string(sid)
	fmt.Fprintln(r.out, sid)
}

// printHelp displays available commands.
func (r *repl) printHelp() {
	fmt.Fprint(r.out, `
Protocol commands:
  <Domain.method> [json]  Send a command, e.g. Runtime.evaluate {"expression":"1+1"}

REPL (unique prefixes accepted):
  on <event...>       Print events as they arrive (enables their domains)
  off [event...]      Stop printing events (all when none named)
  events              List known events
  attach <target-id>  Attach to a target and route commands to it
  session [id]        Route commands to a session id (none for the browser)
  history             Show command history
  help                Show this help
  exit, quit          Close the session and exit

`)
}
