// Package cdp implements a Chrome DevTools Protocol session engine: a single
// websocket carrying many concurrent commands and an unbounded event stream.
package cdp

import (
	"context"

	"github.com/coder/websocket"
)

// Conn defines the interface for a WebSocket connection.
// This abstraction enables testing with mock connections.
type Conn interface {
	// Read reads a message from the connection.
	// Returns message type, payload, and any error.
	Read(ctx context.Context) (websocket.MessageType, []byte, error)

	// Write writes a message to the connection.
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error

	// Close closes the connection with a status code and reason.
	Close(code websocket.StatusCode, reason string) error
}

// dial performs the websocket handshake against a CDP endpoint.
// No retry happens here; the endpoint resolver owns retry policy.
//
// Keepalive is deliberately absent: Chrome does not reliably answer pings,
// so liveness is inferred from read and write failures only.
func dial(ctx context.Context, endpoint string, maxMessageSize int64) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	if maxMessageSize != 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return conn, nil
}
