package client

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lazypower/culler/internal/engine"
)

func TestNewURLResolution(t *testing.T) {
	t.Setenv(EnvURL, "")
	if got := New("").URL(); got != defaultServerURL {
		t.Errorf("URL() = %q, want %q", got, defaultServerURL)
	}

	t.Setenv(EnvURL, "http://example.test:9000/")
	if got := New("").URL(); got != "http://example.test:9000" {
		t.Errorf("URL() = %q, want env value without trailing slash", got)
	}
	if got := New("http://other:1").URL(); got != "http://other:1" {
		t.Errorf("explicit url ignored: %q", got)
	}
}

func TestSessionAndHealthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/api/session":
			json.NewEncoder(w).Encode(engine.Snapshot{Scanned: 5, Total: 9, DailyQuota: 20})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := New(ts.URL)
	if !c.Healthy() {
		t.Fatal("Healthy() = false")
	}
	snap, err := c.Session()
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if snap.Scanned != 5 || snap.Total != 9 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestAdvanceQuotaExceeded(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "daily review quota exceeded"})
	}))
	defer ts.Close()

	_, err := New(ts.URL).Advance()
	if !errors.Is(err, engine.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
}

func TestStatusErrorCarriesMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "nothing queued for deletion"})
	}))
	defer ts.Close()

	_, err := New(ts.URL).DeleteBucket()
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusConflict || se.Message != "nothing queued for deletion" {
		t.Errorf("status error = %+v", se)
	}
}

func TestSetCheckSendsBody(t *testing.T) {
	var got map[string]bool
	var method, path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.EscapedPath()
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer ts.Close()

	if err := New(ts.URL).SetCheck("a/b", true); err != nil {
		t.Fatalf("SetCheck: %v", err)
	}
	if method != http.MethodPut || path != "/api/assets/a%2Fb/check" {
		t.Errorf("request = %s %s", method, path)
	}
	if !got["checked"] {
		t.Errorf("body = %v", got)
	}
}

func TestUnreachableServer(t *testing.T) {
	c := New("http://127.0.0.1:1")
	if c.Healthy() {
		t.Error("Healthy() = true for closed port")
	}
	if _, err := c.Session(); err == nil {
		t.Error("expected error from unreachable server")
	}
}
