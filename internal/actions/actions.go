// Package actions builds page-level operations out of protocol commands:
// readiness polling, selector lookups, property reads and clicks.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/protocol/dom"
	"github.com/grantcarthew/cdpsession/internal/protocol/input"
	"github.com/grantcarthew/cdpsession/internal/protocol/runtime"
)

// DefaultPollInterval is the spacing of condition checks in WaitUntil.
const DefaultPollInterval = 10 * time.Millisecond

// ErrNoNode is returned when a selector matches nothing.
var ErrNoNode = errors.New("no node matches selector")

// ErrNoBox is returned when a matched node has no usable layout box.
var ErrNoBox = errors.New("node has no layout box")

// propertyFunc walks a dotted path from the receiver.
const propertyFunc = `function(path) { return path.split('.').reduce((o, k) => o == null ? undefined : o[k], this); }`

// Page runs actions against one session, optionally routed to a flat-mode
// child session.
type Page struct {
	s         *cdp.Session
	sessionID string
}

// On returns a Page bound to s.
func On(s *cdp.Session) Page {
	return Page{s: s}
}

// In routes the page's commands to a child session.
func (p Page) In(sessionID string) Page {
	p.sessionID = sessionID
	return p
}

// WaitUntil calls cond every interval until it reports true, returns an
// error, or ctx ends. A zero interval uses DefaultPollInterval.
func WaitUntil(ctx context.Context, interval time.Duration, cond func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitReady blocks until document.readyState is "complete".
func (p Page) WaitReady(ctx context.Context, interval time.Duration) error {
	return WaitUntil(ctx, interval, func(ctx context.Context) (bool, error) {
		obj, err := runtime.Use(p.s).In(p.sessionID).Evaluate(ctx, `document.readyState === "complete"`)
		if err != nil {
			return false, err
		}
		var done bool
		_ = json.Unmarshal(obj.Value, &done)
		return done, nil
	})
}

// URL returns the document URL of the page.
func (p Page) URL(ctx context.Context) (string, error) {
	doc, err := dom.Use(p.s).In(p.sessionID).GetDocument(ctx)
	if err != nil {
		return "", err
	}
	return doc.DocumentURL, nil
}

// ObjectID resolves the first node matching selector to a remote object.
// The caller owns the object and should release it.
func (p Page) ObjectID(ctx context.Context, selector string) (runtime.RemoteObjectID, error) {
	d := dom.Use(p.s).In(p.sessionID)
	node, err := d.QuerySelector(ctx, selector)
	if err != nil {
		return "", err
	}
	if node == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoNode, selector)
	}
	obj, err := d.ResolveNode(ctx, node)
	if err != nil {
		return "", err
	}
	if obj.ObjectID == "" {
		return "", fmt.Errorf("%w: %s", ErrNoNode, selector)
	}
	return obj.ObjectID, nil
}

// Property reads a dotted property path, such as "dataset.id" or
// "style.display", from the first node matching selector. The value is
// returned as JSON; an undefined property is null.
func (p Page) Property(ctx context.Context, selector, path string) (json.RawMessage, error) {
	id, err := p.ObjectID(ctx, selector)
	if err != nil {
		return nil, err
	}
	defer func() {
		release := runtime.ReleaseObject(id).InSession(p.sessionID)
		_, _ = cdp.Send(context.WithoutCancel(ctx), p.s, release)
	}()

	call := runtime.CallFunctionOn(propertyFunc, id, []runtime.CallArgument{{Value: path}}, true).
		InSession(p.sessionID)
	res, err := cdp.Send(ctx, p.s, call)
	if err != nil {
		return nil, err
	}
	if res.ExceptionDetails != nil {
		return nil, res.ExceptionDetails
	}
	if len(res.Result.Value) == 0 {
		return json.RawMessage("null"), nil
	}
	return res.Result.Value, nil
}

// Click presses the left mouse button at the centre of the first node
// matching selector.
func (p Page) Click(ctx context.Context, selector string) error {
	d := dom.Use(p.s).In(p.sessionID)
	node, err := d.QuerySelector(ctx, selector)
	if err != nil {
		return err
	}
	if node == 0 {
		return fmt.Errorf("%w: %s", ErrNoNode, selector)
	}
	box, err := d.BoxModel(ctx, node)
	if err != nil {
		return err
	}
	x, y, ok := box.Content.Center()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoBox, selector)
	}
	return input.Use(p.s).In(p.sessionID).Click(ctx, x, y)
}
