package cdp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request represents a CDP command request.
type Request struct {
	ID        int64
	Method    string
	Params    *Params
	SessionID string
}

// MarshalJSON encodes the request. The params member is omitted entirely
// when there are no parameters.
func (r Request) MarshalJSON() ([]byte, error) {
	wire := struct {
		ID        int64           `json:"id"`
		Method    string          `json:"method"`
		Params    json.RawMessage `json:"params,omitempty"`
		SessionID string          `json:"sessionId,omitempty"`
	}{
		ID:        r.ID,
		Method:    r.Method,
		SessionID: r.SessionID,
	}
	if r.Params.Len() > 0 {
		params, err := r.Params.MarshalJSON()
		if err != nil {
			return nil, err
		}
		wire.Params = params
	}
	return json.Marshal(wire)
}

// frameKind is the classification of an inbound frame.
type frameKind int

const (
	frameUnclassified frameKind = iota
	frameResult
	frameError
	frameEvent
)

// String returns a human-readable name for the frame kind.
func (k frameKind) String() string {
	switch k {
	case frameResult:
		return "result"
	case frameError:
		return "error"
	case frameEvent:
		return "event"
	default:
		return "unclassified"
	}
}

// inboundFrame is a classified inbound message. Only the fields relevant to
// kind are populated.
type inboundFrame struct {
	kind      frameKind
	id        int64
	hasID     bool
	result    json.RawMessage
	err       *ProtocolError
	method    string
	params    json.RawMessage
	sessionID string
}

// message is used internally to determine message type during parsing.
type message struct {
	ID        *int64          `json:"id"`
	Method    string          `json:"method"`
	Result    json.RawMessage `json:"result"`
	Error     *ProtocolError  `json:"error"`
	Params    json.RawMessage `json:"params"`
	SessionID string          `json:"sessionId"`
}

// classifyFrame decodes a raw frame and assigns it exactly one kind.
// Error is checked first, then Result, then Event. Frames matching none are
// returned as frameUnclassified with no error; only undecodable JSON is an error.
func classifyFrame(data []byte) (inboundFrame, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return inboundFrame{}, fmt.Errorf("failed to parse CDP message: %w", err)
	}

	f := inboundFrame{sessionID: msg.SessionID}
	if msg.ID != nil {
		f.id = *msg.ID
		f.hasID = true
	}

	switch {
	case msg.Error != nil:
		f.kind = frameError
		f.err = msg.Error
	case f.hasID && present(msg.Result):
		f.kind = frameResult
		f.result = msg.Result
	case msg.Method != "" && present(msg.Params):
		f.kind = frameEvent
		f.method = msg.Method
		f.params = msg.Params
	}
	return f, nil
}

// present reports whether a raw member carried a non-null value.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
