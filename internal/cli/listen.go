package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/cli/format"
	"github.com/grantcarthew/cdpsession/internal/protocol"
	"github.com/grantcarthew/cdpsession/internal/protocol/target"
)

var listenCmd = &cobra.Command{
	Use:   "listen [event...]",
	Short: "Stream protocol events",
	Long: `Enables the domains of the named events and prints each event as it arrives.
With no arguments every known event of the Page, Runtime and Network domains
is printed. Runs until interrupted, --count events were printed or --duration
elapsed.

Examples:
  cdpsession listen
  cdpsession listen Runtime.consoleAPICalled
  cdpsession listen Network.responseReceived --count 10
  cdpsession listen --duration 30s --json`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().Int("count", 0, "Stop after this many events (0 for no limit)")
	listenCmd.Flags().Duration("duration", 0, "Stop after this long (0 for no limit)")
	rootCmd.AddCommand(listenCmd)
}

// defaultListenDomains are enabled when no event is named.
var defaultListenDomains = []string{"Page", "Runtime", "Network"}

// eventDomains returns the distinct domains of the given events, validating
// each against the registry.
func eventDomains(reg *cdp.Registry, events []string) ([]string, error) {
	if len(events) == 0 {
		return defaultListenDomains, nil
	}
	var domains []string
	for _, name := range events {
		if _, ok := reg.Lookup(name); !ok {
			return nil, fmt.Errorf("unknown event %q", name)
		}
		domain, _, _ := strings.Cut(name, ".")
		if !slices.Contains(domains, domain) {
			domains = append(domains, domain)
		}
	}
	return domains, nil
}

// enableDomain turns on event reporting for one domain.
func enableDomain(ctx context.Context, s *cdp.Session, domain string) error {
	switch domain {
	case "Target":
		return target.Use(s).SetDiscoverTargets(ctx, true)
	case "Browser":
		return nil
	}
	_, err := s.Call(ctx, domain+".enable", nil)
	return err
}

// eventPrinter serializes output from concurrently delivered events.
type eventPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	opts  format.OutputOptions
	limit int
	n     int
	done  chan struct{}
}

func newEventPrinter(w io.Writer, opts format.OutputOptions, limit int) *eventPrinter {
	return &eventPrinter{w: w, opts: opts, limit: limit, done: make(chan struct{})}
}

func (p *eventPrinter) print(ev cdp.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limit > 0 && p.n >= p.limit {
		return
	}
	if JSONOutput {
		_ = outputJSON(p.w, map[string]any{
			"method":    ev.Type,
			"sessionId": ev.SessionID,
			"params":    ev.Payload,
		})
	} else {
		_ = format.Event(p.w, ev, p.opts)
	}
	p.n++
	if p.limit > 0 && p.n == p.limit {
		close(p.done)
	}
}

func runListen(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	duration, _ := cmd.Flags().GetDuration("duration")

	reg := protocol.Registry()
	domains, err := eventDomains(reg, args)
	if err != nil {
		return outputError(cmd, err)
	}

	ctx := cmd.Context()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	c, err := openSession(ctx, cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	printer := newEventPrinter(cmd.OutOrStdout(), outputOptions(), count)
	if len(args) == 0 {
		c.session.AddListener(cdp.Filter{}, printer.print)
	}
	for _, name := range args {
		c.session.AddListener(cdp.Filter{Type: cdp.EventType(name)}, printer.print)
	}

	for _, d := range domains {
		debugf(cmd, "enabling %s", d)
		if err := enableDomain(ctx, c.session, d); err != nil {
			return outputError(cmd, fmt.Errorf("enable %s: %w", d, err))
		}
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-printer.done:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !c.session.IsConnected() {
				err := c.session.Err()
				if err == nil {
					err = cdp.ErrConnectionLost
				}
				return outputError(cmd, err)
			}
		}
	}
}
