package browser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

// newTestClient starts an httptest server for handler and returns a Client
// pointed at it.
func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return Client{Host: u.Hostname(), Port: port, HTTP: server.Client()}
}

func TestClientTargets_ParsesResponse(t *testing.T) {
	t.Parallel()

	targets := []Target{
		{
			ID:           "ABC123",
			Type:         "page",
			Title:        "Test Page",
			URL:          "https://example.com",
			WebSocketURL: "ws://127.0.0.1:9222/devtools/page/ABC123",
		},
		{
			ID:   "DEF456",
			Type: "background_page",
		},
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/list" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(targets)
	}))

	result, err := c.Targets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(result))
	}

	if result[0].ID != "ABC123" {
		t.Errorf("expected ID ABC123, got %s", result[0].ID)
	}

	if result[0].WebSocketURL != "ws://127.0.0.1:9222/devtools/page/ABC123" {
		t.Errorf("unexpected WebSocket URL: %s", result[0].WebSocketURL)
	}
}

func TestClientTargets_HandlesError(t *testing.T) {
	t.Parallel()

	c := Client{Host: "127.0.0.1", Port: 59999}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := c.Targets(ctx); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestClientTargets_BadStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := c.Targets(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestClientNewTarget_UsesPut(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/new" || r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(Target{ID: "NEW1", Type: "page"})
	}))

	target, err := c.NewTarget(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.ID != "NEW1" {
		t.Errorf("expected ID NEW1, got %s", target.ID)
	}
}

func TestClientVersion_ParsesResponse(t *testing.T) {
	t.Parallel()

	info := VersionInfo{
		Browser:      "Chrome/120.0.0.0",
		ProtocolVer:  "1.3",
		UserAgent:    "Mozilla/5.0",
		WebSocketURL: "ws://127.0.0.1:9222/devtools/browser/abc",
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(info)
	}))

	result, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Browser != "Chrome/120.0.0.0" {
		t.Errorf("expected Chrome/120.0.0.0, got %s", result.Browser)
	}
	if result.ProtocolVer != "1.3" {
		t.Errorf("expected protocol 1.3, got %s", result.ProtocolVer)
	}
}

func TestClientSocketURL(t *testing.T) {
	t.Parallel()

	c := Client{Host: "localhost", Port: 9333}

	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{"advertised", Target{ID: "A", WebSocketURL: "ws://remote/devtools/page/A"}, "ws://remote/devtools/page/A"},
		{"fallback", Target{ID: "B"}, "ws://localhost:9333/devtools/page/B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.SocketURL(tt.target); got != tt.want {
				t.Errorf("SocketURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindPageTarget_ReturnsFirstPage(t *testing.T) {
	t.Parallel()

	targets := []Target{
		{ID: "1", Type: "background_page"},
		{ID: "2", Type: "page", Title: "First Page"},
		{ID: "3", Type: "page", Title: "Second Page"},
	}

	target := FindPageTarget(targets)
	if target == nil {
		t.Fatal("expected to find a page target")
	}

	if target.ID != "2" {
		t.Errorf("expected ID 2, got %s", target.ID)
	}
}

func TestFindPageTarget_ReturnsNilWhenNoPage(t *testing.T) {
	t.Parallel()

	targets := []Target{
		{ID: "1", Type: "background_page"},
		{ID: "2", Type: "service_worker"},
	}

	target := FindPageTarget(targets)
	if target != nil {
		t.Error("expected nil for no page targets")
	}
}

func TestFindPageTarget_EmptyList(t *testing.T) {
	t.Parallel()

	target := FindPageTarget(nil)
	if target != nil {
		t.Error("expected nil for empty list")
	}
}
