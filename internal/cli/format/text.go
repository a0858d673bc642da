package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/grantcarthew/cdpsession/internal/browser"
	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/protocol/network"
	"github.com/grantcarthew/cdpsession/internal/protocol/page"
	"github.com/grantcarthew/cdpsession/internal/protocol/runtime"
	"github.com/grantcarthew/cdpsession/internal/protocol/target"
	"golang.org/x/term"
)

// Color helper functions that respect color.NoColor flag
func colorize(c color.Attribute, s string) string {
	return color.New(c).Sprint(s)
}

func colorFprint(w io.Writer, c color.Attribute, s string) {
	color.New(c).Fprint(w, s)
}

// OutputOptions controls text formatting behavior.
type OutputOptions struct {
	UseColor bool // Enable ANSI color codes
}

// NewOutputOptions returns output options based on flags and environment.
// Priority: jsonOutput > noColorFlag > NO_COLOR env > TTY detection.
func NewOutputOptions(jsonOutput bool, noColorFlag bool) OutputOptions {
	if jsonOutput || noColorFlag {
		return OutputOptions{UseColor: false}
	}

	if os.Getenv("NO_COLOR") != "" {
		return OutputOptions{UseColor: false}
	}

	return OutputOptions{
		UseColor: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// ActionSuccess outputs "OK" for successful action commands.
func ActionSuccess(w io.Writer) error {
	_, err := fmt.Fprintln(w, "OK")
	return err
}

// ActionError outputs "Error: <message>" for failed action commands.
func ActionError(w io.Writer, msg string, opts OutputOptions) error {
	if opts.UseColor {
		colorFprint(w, color.FgRed, "Error:")
		fmt.Fprintf(w, " %s\n", msg)
	} else {
		fmt.Fprintf(w, "Error: %s\n", msg)
	}
	return nil
}

// FilePath outputs a file path (for the screenshot command).
func FilePath(w io.Writer, path string) error {
	_, err := fmt.Fprintln(w, path)
	return err
}

func statusColor(status int) color.Attribute {
	switch {
	case status >= 200 && status < 300:
		return color.FgGreen
	case status >= 300 && status < 400:
		return color.FgCyan
	case status >= 400 && status < 500:
		return color.FgYellow
	case status >= 500:
		return color.FgRed
	}
	return color.Reset
}

func levelColor(level string) color.Attribute {
	switch strings.ToLower(level) {
	case "error", "assert":
		return color.FgRed
	case "warning", "warn":
		return color.FgYellow
	case "info":
		return color.FgCyan
	case "debug":
		return color.Faint
	}
	return color.Reset
}

func methodColor(method string) color.Attribute {
	switch method {
	case "GET":
		return color.FgGreen
	case "POST":
		return color.FgBlue
	case "PUT", "PATCH":
		return color.FgYellow
	case "DELETE":
		return color.FgRed
	}
	return color.Reset
}

func paint(opts OutputOptions, c color.Attribute, s string) string {
	if !opts.UseColor || c == color.Reset {
		return s
	}
	return colorize(c, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Targets outputs the browser's debuggable targets, one per line.
func Targets(w io.Writer, targets []browser.Target, opts OutputOptions) error {
	if len(targets) == 0 {
		_, err := fmt.Fprintln(w, "No targets")
		return err
	}
	for _, t := range targets {
		title := strings.TrimSpace(t.Title)
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		if _, err := fmt.Fprintf(w, "%s %-15s %s - %s\n",
			paint(opts, color.FgCyan, shortID(t.ID)), t.Type, t.URL, title); err != nil {
			return err
		}
	}
	return nil
}

// Version outputs the browser's version information.
func Version(w io.Writer, v browser.VersionInfo, opts OutputOptions) error {
	rows := []struct{ key, val string }{
		{"browser", v.Browser},
		{"protocol", v.ProtocolVer},
		{"v8", v.V8Version},
		{"webkit", v.WebKitVersion},
		{"user-agent", v.UserAgent},
	}
	for _, r := range rows {
		if r.val == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", paint(opts, color.Faint, r.key), r.val); err != nil {
			return err
		}
	}
	return nil
}

// EvalResult outputs the value of a remote object as JavaScript would
// print it: strings raw, objects and arrays as compact JSON.
func EvalResult(w io.Writer, obj runtime.RemoteObject) error {
	_, err := fmt.Fprintln(w, remoteText(obj))
	return err
}

// JSON writes raw JSON compacted onto one line.
func JSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func remoteText(obj runtime.RemoteObject) string {
	if len(obj.Value) > 0 {
		var v any
		if err := json.Unmarshal(obj.Value, &v); err != nil {
			return string(obj.Value)
		}
		switch v := v.(type) {
		case nil:
			return "null"
		case string:
			return v
		case map[string]any, []any:
			var buf bytes.Buffer
			if err := json.Compact(&buf, obj.Value); err != nil {
				return string(obj.Value)
			}
			return buf.String()
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	switch {
	case obj.UnserializableValue != "":
		return obj.UnserializableValue
	case obj.Subtype == "null":
		return "null"
	case obj.Description != "":
		return obj.Description
	}
	return obj.Type
}

// Event outputs one event on a single line: the event name, the session it
// arrived on (if any) and a summary of the payload.
func Event(w io.Writer, ev cdp.Event, opts OutputOptions) error {
	var b strings.Builder
	b.WriteString(paint(opts, color.FgCyan, string(ev.Type)))
	if ev.SessionID != "" {
		fmt.Fprintf(&b, " [%s]", shortID(ev.SessionID))
	}
	if s := eventSummary(ev.Payload, opts); s != "" {
		b.WriteByte(' ')
		b.WriteString(s)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func eventSummary(payload any, opts OutputOptions) string {
	switch p := payload.(type) {
	case *runtime.ConsoleAPICalled:
		args := make([]string, len(p.Args))
		for i, a := range p.Args {
			args[i] = remoteText(a)
		}
		level := strings.ToUpper(p.Type)
		return paint(opts, levelColor(p.Type), level) + " " + strings.Join(args, " ")
	case *runtime.ExceptionThrown:
		return paint(opts, color.FgRed, "EXCEPTION") + " " + p.ExceptionDetails.Error()
	case *network.RequestWillBeSent:
		return paint(opts, methodColor(p.Request.Method), p.Request.Method) + " " + p.Request.URL
	case *network.ResponseReceived:
		status := fmt.Sprintf("%d", p.Response.Status)
		return paint(opts, statusColor(p.Response.Status), status) + " " + p.Response.URL
	case *network.LoadingFailed:
		return paint(opts, color.FgRed, "FAILED") + " " + string(p.RequestID) + " " + p.ErrorText
	case *page.FrameNavigated:
		return p.Frame.URL
	case *page.LifecycleEvent:
		return p.Name
	case *target.AttachedToTarget:
		return string(p.SessionID) + " " + p.TargetInfo.URL
	}
	data, err := json.Marshal(payload)
	if err != nil || string(data) == "{}" || string(data) == "null" {
		return ""
	}
	return string(data)
}
