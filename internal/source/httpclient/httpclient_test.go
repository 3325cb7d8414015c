package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Fatalf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("limit") != "200" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results":[{"event":"Motor Data"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	var dest struct {
		Results []map[string]any `json:"results"`
	}
	q := url.Values{}
	q.Set("limit", "200")
	if err := c.GetJSON(context.Background(), "/api/events/", q, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dest.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(dest.Results))
	}
}

func TestGetJSONNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	var dest map[string]any
	err := c.GetJSON(context.Background(), "/x", nil, &dest)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", apiErr.StatusCode)
	}
}

func TestGetJSONRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	var dest map[string]any
	if err := c.GetJSON(context.Background(), "/x", nil, &dest); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestGetJSONURLAbsolute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page/2" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	// baseURL intentionally different from the absolute cursor URL.
	c := New("http://unused.invalid", "tok")
	var dest map[string]any
	if err := c.GetJSONURL(context.Background(), srv.URL+"/page/2", &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(srv.URL, "tok")
	var dest map[string]any
	err := c.GetJSON(ctx, "/x", nil, &dest)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}
