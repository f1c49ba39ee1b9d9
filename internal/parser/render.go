package parser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

const renderSettle = 2 * time.Second

// Renderer drives a shared headless Chromium instance for sources that only
// publish listings through client-side JavaScript. The browser launches
// lazily on first use and is shared by all parsers in a scan run.
type Renderer struct {
	logger zerolog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// NewRenderer returns a Renderer. No browser process starts until HTML is
// first called.
func NewRenderer(logger zerolog.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// HTML navigates to rawURL in a fresh stealth page, waits for the page to
// load plus a short settle delay for late JS, and returns the rendered DOM.
// The page is always closed before returning.
func (r *Renderer) HTML(ctx context.Context, rawURL string) (string, error) {
	browser, err := r.connect()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return "", fmt.Errorf("creating page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("navigating to %q: %w", rawURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("waiting for load of %q: %w", rawURL, err)
	}

	// Listings on these sites often populate after the load event fires.
	select {
	case <-time.After(renderSettle):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("reading rendered HTML of %q: %w", rawURL, err)
	}
	return html, nil
}

func (r *Renderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}
	r.logger.Info().Msg("renderer: headless browser started")
	r.browser = browser
	return browser, nil
}

// Close shuts the shared browser down. Safe to call when no browser was ever
// launched.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
