package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNoTarget is returned when the browser lists no usable target.
var ErrNoTarget = errors.New("no target found")

// Target represents a CDP target (page, worker, etc).
type Target struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Title               string `json:"title"`
	URL                 string `json:"url"`
	Description         string `json:"description,omitempty"`
	DevtoolsFrontendURL string `json:"devtoolsFrontendUrl,omitempty"`
	FaviconURL          string `json:"faviconUrl,omitempty"`
	WebSocketURL        string `json:"webSocketDebuggerUrl"`
}

// VersionInfo contains browser version information from /json/version.
type VersionInfo struct {
	Browser       string `json:"Browser"`
	ProtocolVer   string `json:"Protocol-Version"`
	UserAgent     string `json:"User-Agent"`
	V8Version     string `json:"V8-Version"`
	WebKitVersion string `json:"WebKit-Version"`
	WebSocketURL  string `json:"webSocketDebuggerUrl"`
}

// Client talks to the browser's HTTP discovery endpoints.
type Client struct {
	Host string
	Port int
	// HTTP is the client used for requests. Nil uses http.DefaultClient;
	// callers must bound requests with a context in that case.
	HTTP *http.Client
}

func (c Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c Client) url(path string) string {
	return fmt.Sprintf("http://%s:%d%s", c.Host, c.Port, path)
}

// do issues a request and decodes the JSON response body into v.
func (c Client) do(ctx context.Context, method, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status: %d", method, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Targets retrieves the list of available targets.
func (c Client) Targets(ctx context.Context) ([]Target, error) {
	var targets []Target
	if err := c.do(ctx, http.MethodGet, "/json/list", &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// NewTarget opens a new page target. Current Chrome requires PUT here.
func (c Client) NewTarget(ctx context.Context) (*Target, error) {
	var target Target
	if err := c.do(ctx, http.MethodPut, "/json/new", &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// Version retrieves browser version info.
func (c Client) Version(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	if err := c.do(ctx, http.MethodGet, "/json/version", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SocketURL returns the websocket URL for t. Targets that do not advertise
// one (already attached elsewhere) get the conventional page path.
func (c Client) SocketURL(t Target) string {
	if t.WebSocketURL != "" {
		return t.WebSocketURL
	}
	return fmt.Sprintf("ws://%s:%d/devtools/page/%s", c.Host, c.Port, t.ID)
}

// FindPageTarget returns the first page-type target from the list.
func FindPageTarget(targets []Target) *Target {
	for i := range targets {
		if targets[i].Type == "page" {
			return &targets[i]
		}
	}
	return nil
}
