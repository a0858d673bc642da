// Package input provides commands of the CDP Input domain.
package input

import (
	"context"

	"github.com/grantcarthew/cdpsession/internal/cdp"
)

// CommandDispatchMouseEvent is the Input.dispatchMouseEvent method name.
const CommandDispatchMouseEvent = "Input.dispatchMouseEvent"

// Mouse event types.
const (
	MousePressed  = "mousePressed"
	MouseReleased = "mouseReleased"
	MouseMoved    = "mouseMoved"
)

// MouseEvent is the parameter set of Input.dispatchMouseEvent. Zero Button and
// ClickCount are omitted.
type MouseEvent struct {
	Type       string
	X, Y       float64
	Button     string
	ClickCount int
}

// Command builds the Input.dispatchMouseEvent command.
func (e MouseEvent) Command() cdp.Command[cdp.Empty] {
	cmd := cdp.NewCommand[cdp.Empty](CommandDispatchMouseEvent).
		With("type", e.Type).
		With("x", e.X).
		With("y", e.Y)
	if e.Button != "" {
		cmd = cmd.With("button", e.Button)
	}
	if e.ClickCount > 0 {
		cmd = cmd.With("clickCount", e.ClickCount)
	}
	return cmd
}

// Domain is a borrowed handle for issuing Input commands on a session.
type Domain struct {
	s         *cdp.Session
	sessionID string
}

// Use returns the Input handle for s.
func Use(s *cdp.Session) Domain {
	return Domain{s: s}
}

// In targets a flat-mode child session.
func (d Domain) In(sessionID string) Domain {
	d.sessionID = sessionID
	return d
}

// Click presses and releases the left button at x, y.
func (d Domain) Click(ctx context.Context, x, y float64) error {
	for _, typ := range []string{MousePressed, MouseReleased} {
		ev := MouseEvent{Type: typ, X: x, Y: y, Button: "left", ClickCount: 1}
		if _, err := cdp.Send(ctx, d.s, ev.Command().InSession(d.sessionID)); err != nil {
			return err
		}
	}
	return nil
}
