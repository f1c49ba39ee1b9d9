package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

const (
	fetchUserAgent = "EquiScan/1.0 (+https://github.com/equiscan/server)"
	fetchTimeout   = 30 * time.Second
	maxBodyBytes   = 10 * 1024 * 1024 // 10 MiB

	maxFetchAttempts = 3
	retryBaseDelay   = 500 * time.Millisecond
)

// HTTPError is a non-retryable upstream response. A 4xx other than 429 is
// fatal to the scan that triggered the fetch.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %q", e.StatusCode, e.URL)
}

// Fetcher is the shared outbound HTTP helper for parsers and the geocoder.
// It rate-limits per upstream host with a token bucket, honours robots.txt,
// and retries 429/5xx with exponential backoff and jitter.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	ratePerHost rate.Limit
	burst       int
	logger      zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	robots   map[string]*robotstxt.RobotsData
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = client }
}

// WithRatePerHost sets the per-host token bucket refill rate.
func WithRatePerHost(rps float64) FetcherOption {
	return func(f *Fetcher) { f.ratePerHost = rate.Limit(rps) }
}

// NewFetcher constructs a Fetcher with a 30s request timeout and a default
// per-host rate of 4 requests per second.
func NewFetcher(logger zerolog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: fetchTimeout},
		userAgent:   fetchUserAgent,
		ratePerHost: rate.Limit(4.0),
		burst:       1,
		logger:      logger,
		limiters:    make(map[string]*rate.Limiter),
		robots:      make(map[string]*robotstxt.RobotsData),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches rawURL and returns up to 10 MiB of the response body.
// Exceeding the host's token bucket suspends the caller; 429 and 5xx are
// retried up to three times before surfacing the last error.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return f.fetch(ctx, http.MethodGet, rawURL, nil, nil)
}

// PostJSON sends payload as a JSON body to rawURL, with the same rate
// limiting, robots check, and retry behaviour as Get. Search-style APIs
// expect the XMLHttpRequest header to answer with JSON instead of HTML.
func (f *Fetcher) PostJSON(ctx context.Context, rawURL string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	headers := map[string]string{
		"Content-Type":     "application/json",
		"Accept":           "application/json",
		"X-Requested-With": "XMLHttpRequest",
	}
	return f.fetch(ctx, http.MethodPost, rawURL, body, headers)
}

func (f *Fetcher) fetch(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing scheme or host", rawURL)
	}

	if allowed := f.robotsAllowed(ctx, parsed); !allowed {
		return nil, fmt.Errorf("fetching disallowed by robots.txt for %q", rawURL)
	}

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			delay += time.Duration(rand.Int63n(int64(delay) / 2))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := f.limiter(parsed.Hostname()).Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		respBody, err := f.doOnce(ctx, method, rawURL, body, headers)
		if err == nil {
			return respBody, nil
		}

		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			// Non-retryable status.
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		f.logger.Debug().Err(err).Str("url", rawURL).Int("attempt", attempt+1).
			Msg("fetch: retryable failure")
	}
	return nil, fmt.Errorf("fetch %q: max retries exceeded: %w", rawURL, lastErr)
}

func (f *Fetcher) doOnce(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("retryable status %d", resp.StatusCode)
	default:
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return respBody, nil
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(f.ratePerHost, f.burst)
	f.limiters[host] = l
	return l
}

// robotsAllowed consults (and caches) the host's robots.txt. Unreachable or
// malformed robots files are treated as allow-all, matching crawler
// convention.
func (f *Fetcher) robotsAllowed(ctx context.Context, u *url.URL) bool {
	f.mu.Lock()
	data, ok := f.robots[u.Host]
	f.mu.Unlock()

	if !ok {
		robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return true
		}
		req.Header.Set("User-Agent", f.userAgent)
		resp, err := f.client.Do(req)
		if err != nil {
			return true
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return true
		}
		data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, body)
		if err != nil {
			return true
		}
		f.mu.Lock()
		f.robots[u.Host] = data
		f.mu.Unlock()
	}

	return data.TestAgent(u.Path, f.userAgent)
}
