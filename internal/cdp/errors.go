package cdp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrSessionClosed is returned to any caller waiting on a command when the
// session is closed, and to calls made after close.
var ErrSessionClosed = errors.New("cdp: session closed")

// ErrNotConnected is returned for calls on a session with no open channel.
var ErrNotConnected = errors.New("cdp: session not connected")

// ErrConnectionLost is wrapped into the ConnectionError delivered to pending
// callers when the read loop fails.
var ErrConnectionLost = errors.New("cdp: connection lost")

// ConnectionError reports that the transport could not be established or
// failed underneath a pending command.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("cdp connection error: %v", e.Err)
	}
	return fmt.Sprintf("cdp connection error (%s): %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError represents a command-level error reported by the browser.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("cdp error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// UnmarshalJSON accepts any JSON value in data. Non-string values are kept
// as compact JSON text so the code and message still reach the caller.
func (e *ProtocolError) UnmarshalJSON(b []byte) error {
	var raw struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Code, e.Message, e.Data = raw.Code, raw.Message, ""
	if !present(raw.Data) {
		return nil
	}
	if err := json.Unmarshal(raw.Data, &e.Data); err == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw.Data); err != nil {
		return err
	}
	e.Data = buf.String()
	return nil
}

// TimeoutError reports that no result or error arrived for a command in time.
// It matches context.DeadlineExceeded under errors.Is.
type TimeoutError struct {
	Method string
	ID     int64
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("cdp: %s (id %d) timed out after %s", e.Method, e.ID, e.After)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// Timeout reports true; it lets callers treat the error like a net.Error.
func (e *TimeoutError) Timeout() bool { return true }

// DecodeError reports a result or event body that does not fit the target type.
type DecodeError struct {
	Method string
	Type   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cdp: decode %s into %s: %v", e.Method, e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
