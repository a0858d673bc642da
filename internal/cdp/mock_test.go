package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// wireRequest is a request as seen by the fake browser.
type wireRequest struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	SessionID string          `json:"sessionId"`
}

// responder produces the frames a fake browser sends back for a request.
type responder func(req wireRequest) []string

// mockConn implements the Conn interface for testing. Frames returned by
// the responder are queued for reading after each write, so a response is
// never read before its command has been registered.
type mockConn struct {
	mu       sync.Mutex
	readCh   chan []byte
	failCh   chan error
	written  [][]byte
	writeErr error
	respond  responder
	closed   bool
	closeCh  chan struct{}
}

func newMockConn(respond responder) *mockConn {
	return &mockConn{
		readCh:  make(chan []byte, 1024),
		failCh:  make(chan error, 1),
		respond: respond,
		closeCh: make(chan struct{}),
	}
}

func (m *mockConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case msg := <-m.readCh:
		return websocket.MessageText, msg, nil
	case err := <-m.failCh:
		return 0, nil, err
	case <-m.closeCh:
		return 0, nil, errors.New("connection closed")
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (m *mockConn) Write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	m.mu.Lock()
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return err
	}
	m.written = append(m.written, append([]byte(nil), data...))
	respond := m.respond
	m.mu.Unlock()

	if respond == nil {
		return nil
	}
	var req wireRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	for _, frame := range respond(req) {
		m.push(frame)
	}
	return nil
}

func (m *mockConn) Close(code websocket.StatusCode, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closeCh)
	}
	return nil
}

// push queues a frame as if the browser had sent it.
func (m *mockConn) push(frame string) {
	m.readCh <- []byte(frame)
}

// fail makes the next Read return err.
func (m *mockConn) fail(err error) {
	m.failCh <- err
}

func (m *mockConn) setResponder(r responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respond = r
}

func (m *mockConn) setWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *mockConn) getWritten() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]byte, len(m.written))
	copy(result, m.written)
	return result
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// resultResponder answers every request with the same result body.
func resultResponder(result string) responder {
	return func(req wireRequest) []string {
		return []string{`{"id":` + itoa(req.ID) + `,"result":` + result + `}`}
	}
}

// errorResponder answers every request with a protocol error.
func errorResponder(code int, message string) responder {
	return func(req wireRequest) []string {
		body, _ := json.Marshal(ProtocolError{Code: code, Message: message})
		return []string{`{"id":` + itoa(req.ID) + `,"error":` + string(body) + `}`}
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// Test event payloads.
type loadFired struct {
	Timestamp float64 `json:"timestamp"`
}

type consoleCalled struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`
}

const (
	evLoad    EventType = "Page.domContentEventFired"
	evConsole EventType = "Runtime.consoleAPICalled"
)

var testRegistry = MustRegistry(
	Describe[loadFired](evLoad),
	Describe[consoleCalled](evConsole),
)

// newTestSession attaches a session to conn and closes it at cleanup.
func newTestSession(t *testing.T, conn Conn, cfg Config) *Session {
	t.Helper()
	if cfg.Registry == nil {
		cfg.Registry = testRegistry
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	s := NewSession(cfg)
	if err := s.Attach(conn); err != nil {
		t.Fatalf("attach: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
