package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sashabaranov/go-openai"
)

const (
	// Listing pages are noisy; anything past this much visible text is
	// navigation and footer boilerplate.
	extractorMaxChars = 24000

	extractorSystemPrompt = `You extract equestrian event listings from web page text.
Return a JSON object with a single key "events", an array of objects with these keys:
  name (string, required), date_start (ISO 8601 date, required),
  date_end (ISO date or omit), venue_name (string, required),
  venue_postcode (UK postcode or omit), discipline (free text or omit),
  url (absolute URL or omit), description (short free text or omit),
  classes (array of class name strings or omit).
Extract every listed event, past or future. Do not invent events, dates, or
venues that are not in the text. Do not filter or interpret. If the page has
no event listings, return {"events": []}. Output only JSON.`
)

// GenericParser is the fallback for sources without a hand-written parser.
// It fetches the page, strips it to visible text, and asks an
// OpenAI-compatible chat model to extract the listings as JSON. Records the
// model returns without a name, start date, or venue name are dropped.
type GenericParser struct {
	env    Env
	client *openai.Client
}

// NewGenericParser builds the LLM fallback parser against the configured
// extraction endpoint.
func NewGenericParser(env Env) Parser {
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = env.Extractor.URL
	return &GenericParser{
		env:    env,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (p *GenericParser) FetchAndParse(ctx context.Context, sourceURL string) ([]ExtractedEvent, error) {
	body, err := p.env.Fetcher.Get(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	text, err := visibleText(body)
	if err != nil {
		return nil, err
	}
	if len(text) < 100 {
		return nil, fmt.Errorf("page %q has too little text to extract from", sourceURL)
	}
	if len(text) > extractorMaxChars {
		text = text[:extractorMaxChars]
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.env.Extractor.Model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Page URL: " + sourceURL + "\n\n" + text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction model request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction model returned no choices")
	}

	var payload struct {
		Events []ExtractedEvent `json:"events"`
	}
	cleaned := stripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parsing extraction model response: %w", err)
	}

	events := make([]ExtractedEvent, 0, len(payload.Events))
	for _, ev := range payload.Events {
		ev.DateStart = ISODate(ev.DateStart)
		ev.DateEnd = ISODate(ev.DateEnd)
		if err := ev.Validate(); err != nil {
			p.env.Logger.Debug().Err(err).Str("source_url", sourceURL).
				Msg("generic parser: dropping incomplete extraction")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// visibleText reduces an HTML document to its whitespace-collapsed visible
// text, with scripts and styles removed.
func visibleText(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// stripCodeFences removes a surrounding markdown code block, which smaller
// models emit even when asked for bare JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
