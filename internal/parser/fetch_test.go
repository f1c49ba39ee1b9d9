package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	return NewFetcher(zerolog.Nop(), WithRatePerHost(1000))
}

func TestFetcherGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testFetcher(t).Get(context.Background(), srv.URL+"/listing")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestFetcherGetClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testFetcher(t).Get(context.Background(), srv.URL+"/gone")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 4xx)", got)
	}
}

func TestFetcherHonoursRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := testFetcher(t)
	if _, err := f.Get(context.Background(), srv.URL+"/private/page"); err == nil {
		t.Fatal("expected robots.txt to block /private/page")
	}
	if _, err := f.Get(context.Background(), srv.URL+"/public"); err != nil {
		t.Fatalf("allowed path blocked: %v", err)
	}
}

func TestFetcherPostJSONSendsXHRHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("X-Requested-With"); got != "XMLHttpRequest" {
			t.Errorf("X-Requested-With = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		w.Write([]byte(`{"rows":[]}`))
	}))
	defer srv.Close()

	body, err := testFetcher(t).PostJSON(context.Background(), srv.URL+"/search", map[string]int{"page": 1})
	if err != nil {
		t.Fatalf("PostJSON returned error: %v", err)
	}
	if string(body) != `{"rows":[]}` {
		t.Errorf("body = %q", body)
	}
}

func TestFetcherRejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not-a-url", "/relative/only"} {
		if _, err := testFetcher(t).Get(context.Background(), raw); err == nil {
			t.Errorf("Get(%q) succeeded, want error", raw)
		}
	}
}
