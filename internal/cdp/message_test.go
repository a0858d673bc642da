package cdp

import (
	"encoding/json"
	"testing"
)

func TestClassifyFrame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		kind      frameKind
		id        int64
		method    string
		sessionID string
	}{
		{
			name:  "result",
			input: `{"id":1,"result":{"frameId":"F1"}}`,
			kind:  frameResult,
			id:    1,
		},
		{
			name:  "empty result object",
			input: `{"id":7,"result":{}}`,
			kind:  frameResult,
			id:    7,
		},
		{
			name:  "error",
			input: `{"id":2,"error":{"code":-32601,"message":"Method not found"}}`,
			kind:  frameError,
			id:    2,
		},
		{
			name:  "error wins over result",
			input: `{"id":3,"result":{},"error":{"code":-32000,"message":"x"}}`,
			kind:  frameError,
			id:    3,
		},
		{
			name:   "event",
			input:  `{"method":"Page.domContentEventFired","params":{"timestamp":904169.746022}}`,
			kind:   frameEvent,
			method: "Page.domContentEventFired",
		},
		{
			name:      "flat mode event",
			input:     `{"method":"Page.domContentEventFired","params":{},"sessionId":"ABC123"}`,
			kind:      frameEvent,
			method:    "Page.domContentEventFired",
			sessionID: "ABC123",
		},
		{
			name:  "result wins over event",
			input: `{"id":4,"result":{},"method":"Page.x","params":{}}`,
			kind:  frameResult,
			id:    4,
		},
		{
			name:  "id without result",
			input: `{"id":5}`,
			kind:  frameUnclassified,
		},
		{
			name:  "null result",
			input: `{"id":6,"result":null}`,
			kind:  frameUnclassified,
		},
		{
			name:  "method without params",
			input: `{"method":"Page.loadEventFired"}`,
			kind:  frameUnclassified,
		},
		{
			name:  "null params",
			input: `{"method":"Page.loadEventFired","params":null}`,
			kind:  frameUnclassified,
		},
		{
			name:  "result without id",
			input: `{"result":{}}`,
			kind:  frameUnclassified,
		},
		{
			name:  "empty object",
			input: `{}`,
			kind:  frameUnclassified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := classifyFrame([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.kind != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, f.kind)
			}
			if tt.kind == frameUnclassified {
				return
			}
			if tt.id != 0 && f.id != tt.id {
				t.Errorf("expected id %d, got %d", tt.id, f.id)
			}
			if f.method != tt.method {
				t.Errorf("expected method %q, got %q", tt.method, f.method)
			}
			if f.sessionID != tt.sessionID {
				t.Errorf("expected sessionId %q, got %q", tt.sessionID, f.sessionID)
			}
		})
	}
}

func TestClassifyFrame_ErrorFields(t *testing.T) {
	t.Parallel()

	f, err := classifyFrame([]byte(`{"id":2,"error":{"code":-32601,"message":"Method not found","data":"Foo.bar"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.err == nil {
		t.Fatal("expected protocol error")
	}
	if f.err.Code != -32601 || f.err.Message != "Method not found" || f.err.Data != "Foo.bar" {
		t.Errorf("unexpected error fields: %+v", f.err)
	}
	if got := f.err.Error(); got != "cdp error -32601: Method not found (Foo.bar)" {
		t.Errorf("unexpected error string: %s", got)
	}
}

func TestClassifyFrame_ErrorDataNotString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		data  string
	}{
		{"object", `{"id":3,"error":{"code":-32000,"message":"Boom","data":{"line": 4}}}`, `{"line":4}`},
		{"number", `{"id":3,"error":{"code":-32000,"message":"Boom","data":12}}`, `12`},
		{"null", `{"id":3,"error":{"code":-32000,"message":"Boom","data":null}}`, ``},
		{"absent", `{"id":3,"error":{"code":-32000,"message":"Boom"}}`, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := classifyFrame([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.kind != frameError || f.id != 3 {
				t.Fatalf("expected error frame for id 3, got %s id %d", f.kind, f.id)
			}
			if f.err.Code != -32000 || f.err.Message != "Boom" || f.err.Data != tt.data {
				t.Errorf("unexpected error fields: %+v", f.err)
			}
		})
	}
}

func TestClassifyFrame_InvalidJSON(t *testing.T) {
	t.Parallel()

	for _, input := range []string{``, `not json`, `{"id":`, `[1,2]`, `{"id":"x"}`} {
		if _, err := classifyFrame([]byte(input)); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestRequest_MarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "with params",
			req:  Request{ID: 1, Method: "Page.navigate", Params: NewParams().Set("url", "http://x")},
			want: `{"id":1,"method":"Page.navigate","params":{"url":"http://x"}}`,
		},
		{
			name: "nil params",
			req:  Request{ID: 2, Method: "Page.enable"},
			want: `{"id":2,"method":"Page.enable"}`,
		},
		{
			name: "only null params",
			req:  Request{ID: 3, Method: "Page.reload", Params: NewParams().Set("ignoreCache", nil)},
			want: `{"id":3,"method":"Page.reload"}`,
		},
		{
			name: "flat mode",
			req:  Request{ID: 4, Method: "Runtime.enable", SessionID: "S1"},
			want: `{"id":4,"method":"Runtime.enable","sessionId":"S1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(tt.req)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, data)
			}
		})
	}
}

func FuzzClassifyFrame(f *testing.F) {
	f.Add([]byte(`{"id":1,"result":{"frameId":"F1"}}`))
	f.Add([]byte(`{"id":2,"error":{"code":-32601,"message":"Method not found"}}`))
	f.Add([]byte(`{"method":"Page.loadEventFired","params":{"timestamp":1}}`))
	f.Add([]byte(`{"id":1,"result":null,"method":"x","params":null}`))
	f.Add([]byte(`garbage`))

	f.Fuzz(func(t *testing.T, data []byte) {
		fr, err := classifyFrame(data)
		if err != nil {
			return
		}
		switch fr.kind {
		case frameResult:
			if !fr.hasID || !present(fr.result) {
				t.Fatalf("result frame without id or body: %s", data)
			}
		case frameError:
			if fr.err == nil {
				t.Fatalf("error frame without error: %s", data)
			}
		case frameEvent:
			if fr.method == "" || !present(fr.params) {
				t.Fatalf("event frame without method or params: %s", data)
			}
		case frameUnclassified:
		default:
			t.Fatalf("unknown kind %d", fr.kind)
		}
	})
}
