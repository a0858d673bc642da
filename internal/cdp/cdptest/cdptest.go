// Package cdptest provides an in-memory browser for testing code built on
// cdp.Session.
package cdptest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// Request is a command as received by the fake browser.
type Request struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Handler answers one command. It returns the result body, or a non-nil
// *Error to reply with a protocol error.
type Handler func(req Request) (result any, err *Error)

// Error is a protocol error reply.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Browser is a fake CDP endpoint implementing cdp.Conn. Commands are
// answered by per-method handlers; unknown methods get -32601.
type Browser struct {
	mu       sync.Mutex
	handlers map[string]Handler
	requests []Request

	inbox   chan []byte
	closeCh chan struct{}
	closed  bool
}

// NewBrowser returns a browser with no handlers.
func NewBrowser() *Browser {
	return &Browser{
		handlers: make(map[string]Handler),
		inbox:    make(chan []byte, 1024),
		closeCh:  make(chan struct{}),
	}
}

// Handle registers h for method.
func (b *Browser) Handle(method string, h Handler) *Browser {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method] = h
	return b
}

// Result registers a handler that always replies with result.
func (b *Browser) Result(method string, result any) *Browser {
	return b.Handle(method, func(Request) (any, *Error) { return result, nil })
}

// Emit sends an event frame. An empty sessionID omits the member.
func (b *Browser) Emit(method string, params any, sessionID string) error {
	frame := struct {
		Method    string `json:"method"`
		Params    any    `json:"params"`
		SessionID string `json:"sessionId,omitempty"`
	}{method, params, sessionID}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	b.inbox <- data
	return nil
}

// Requests returns every command received so far.
func (b *Browser) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Read implements cdp.Conn.
func (b *Browser) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data := <-b.inbox:
		return websocket.MessageText, data, nil
	case <-b.closeCh:
		return 0, nil, errors.New("connection closed")
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

// Write implements cdp.Conn.
func (b *Browser) Write(ctx context.Context, typ websocket.MessageType, p []byte) error {
	var req Request
	if err := json.Unmarshal(p, &req); err != nil {
		return fmt.Errorf("cdptest: bad request: %w", err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("connection closed")
	}
	b.requests = append(b.requests, req)
	h := b.handlers[req.Method]
	b.mu.Unlock()

	reply := struct {
		ID        int64  `json:"id"`
		Result    any    `json:"result,omitempty"`
		Error     *Error `json:"error,omitempty"`
		SessionID string `json:"sessionId,omitempty"`
	}{ID: req.ID, SessionID: req.SessionID}

	if h == nil {
		reply.Error = &Error{Code: -32601, Message: fmt.Sprintf("'%s' wasn't found", req.Method)}
	} else {
		result, perr := h(req)
		if perr != nil {
			reply.Error = perr
		} else if result == nil {
			reply.Result = struct{}{}
		} else {
			reply.Result = result
		}
	}

	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	b.inbox <- data
	return nil
}

// Close implements cdp.Conn.
func (b *Browser) Close(code websocket.StatusCode, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.closeCh)
	}
	return nil
}
