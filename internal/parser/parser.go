// Package parser defines the contract between per-source parsers and the
// scan orchestrator: the ExtractedEvent wire schema, the key-to-parser
// registry with its generic LLM fallback, and the shared fetch helpers
// (rate-limited HTTP, headless rendering, JSON-LD extraction, date
// coercion).
//
// Parsers are purely extractive. They must not filter by date, must not
// decide whether an event is a competition, must not canonicalize venues or
// disciplines, and must not touch the database. All of that happens in the
// orchestrator.
package parser

import (
	"context"

	"github.com/rs/zerolog"
)

// Parser turns one source fetch into a list of ExtractedEvents. All
// discovered events are emitted, past or future. Implementations run under
// the per-scan context and must release network and browser resources on
// every exit path.
type Parser interface {
	FetchAndParse(ctx context.Context, sourceURL string) ([]ExtractedEvent, error)
}

// ExtractorSettings point the generic fallback parser at an
// OpenAI-compatible chat endpoint.
type ExtractorSettings struct {
	URL   string
	Model string
}

// Env carries the shared infrastructure handed to parser factories at
// dispatch time.
type Env struct {
	Fetcher   *Fetcher
	Renderer  *Renderer
	Extractor ExtractorSettings
	Logger    zerolog.Logger
}
