// Package client talks to a running culler server.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lazypower/culler/internal/engine"
	"github.com/lazypower/culler/internal/similarity"
	"github.com/lazypower/culler/internal/store"
)

// EnvURL overrides the server address.
const EnvURL = "CULLER_URL"

const (
	defaultServerURL = "http://127.0.0.1:37777"
	httpTimeout      = 30 * time.Second
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// Client talks to the culler server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for serverURL. An empty serverURL falls back to
// $CULLER_URL, then http://127.0.0.1:37777.
func New(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv(EnvURL)
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// URL returns the server address.
func (c *Client) URL() string {
	return c.serverURL
}

func (c *Client) do(method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(data))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: msg}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Session fetches the current snapshot.
func (c *Client) Session() (engine.Snapshot, error) {
	var s engine.Snapshot
	err := c.do(http.MethodGet, "/api/session", nil, &s)
	return s, err
}

// Groups fetches every clustered group.
func (c *Client) Groups() ([]engine.GroupView, error) {
	var groups []engine.GroupView
	err := c.do(http.MethodGet, "/api/groups", nil, &groups)
	return groups, err
}

// Advance finalizes the current group and moves on. A 429 response is
// reported as engine.ErrQuotaExceeded.
func (c *Client) Advance() (bool, error) {
	var out struct {
		Advanced bool `json:"advanced"`
	}
	err := c.do(http.MethodPost, "/api/advance", nil, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		return false, fmt.Errorf("%w: %s", engine.ErrQuotaExceeded, se.Message)
	}
	return out.Advanced, err
}

// Toggle flips the keep mark of an asset.
func (c *Client) Toggle(id string) error {
	return c.do(http.MethodPost, "/api/assets/"+url.PathEscape(id)+"/toggle", nil, nil)
}

// SetCheck sets the keep mark of an asset.
func (c *Client) SetCheck(id string, checked bool) error {
	return c.do(http.MethodPut, "/api/assets/"+url.PathEscape(id)+"/check", map[string]bool{"checked": checked}, nil)
}

// DeleteBucket deletes everything queued for deletion.
func (c *Client) DeleteBucket() (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := c.do(http.MethodPost, "/api/bucket/delete", nil, &out)
	return out.Deleted, err
}

// SetWindow changes the clustering window.
func (c *Client) SetWindow(minutes int) error {
	return c.do(http.MethodPut, "/api/settings/window", map[string]int{"minutes": minutes}, nil)
}

// SetTuning replaces the threshold overlay.
func (c *Client) SetTuning(t similarity.Tuning) error {
	return c.do(http.MethodPut, "/api/settings/tuning", t, nil)
}

// SetPreset applies a named preset.
func (c *Client) SetPreset(name string) error {
	return c.do(http.MethodPut, "/api/settings/preset", map[string]string{"preset": name}, nil)
}

// Retained lists kept assets.
func (c *Client) Retained() ([]store.RetentionRecord, error) {
	var recs []store.RetentionRecord
	err := c.do(http.MethodGet, "/api/retention", nil, &recs)
	return recs, err
}

// ResetRetention forgets every kept asset.
func (c *Client) ResetRetention() error {
	return c.do(http.MethodPost, "/api/retention/reset", nil, nil)
}
