package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonldEvent mirrors the subset of a schema.org Event we extract. Location
// may be a Place object or a bare string; both occur in the wild.
type jsonldEvent struct {
	Name        string          `json:"name"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	URL         string          `json:"url"`
	Description string          `json:"description"`
	Location    json.RawMessage `json:"location"`
}

type jsonldPlace struct {
	Name    string `json:"name"`
	Address struct {
		PostalCode string `json:"postalCode"`
	} `json:"address"`
	Geo struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"geo"`
}

// ExtractJSONLDEvents parses the HTML document and returns an ExtractedEvent
// for every schema.org Event or EventSeries found in its JSON-LD script
// blocks. Malformed blocks are skipped; they must not discard the rest of
// the page.
func ExtractJSONLDEvents(html []byte) ([]ExtractedEvent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var raws []json.RawMessage
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		block := strings.TrimSpace(s.Text())
		if block == "" {
			return
		}
		extracted, err := extractEventObjects([]byte(block))
		if err != nil {
			return
		}
		raws = append(raws, extracted...)
	})

	events := make([]ExtractedEvent, 0, len(raws))
	for _, raw := range raws {
		ev, ok := decodeJSONLDEvent(raw)
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

// decodeJSONLDEvent maps one raw schema.org Event object onto the extraction
// schema. Dates are coerced to ISO; events whose start date cannot be read
// are dropped here rather than at validation time.
func decodeJSONLDEvent(raw json.RawMessage) (ExtractedEvent, bool) {
	var src jsonldEvent
	if err := json.Unmarshal(raw, &src); err != nil {
		return ExtractedEvent{}, false
	}

	ev := ExtractedEvent{
		Name:        strings.TrimSpace(src.Name),
		DateStart:   ISODate(src.StartDate),
		DateEnd:     ISODate(src.EndDate),
		URL:         strings.TrimSpace(src.URL),
		Description: strings.TrimSpace(src.Description),
	}
	if ev.Name == "" || ev.DateStart == "" {
		return ExtractedEvent{}, false
	}

	if len(src.Location) > 0 {
		var place jsonldPlace
		if err := json.Unmarshal(src.Location, &place); err == nil {
			ev.VenueName = strings.TrimSpace(place.Name)
			ev.VenuePostcode = strings.TrimSpace(place.Address.PostalCode)
			ev.Latitude = place.Geo.Latitude
			ev.Longitude = place.Geo.Longitude
		} else {
			var name string
			if err := json.Unmarshal(src.Location, &name); err == nil {
				ev.VenueName = strings.TrimSpace(name)
			}
		}
	}
	return ev, true
}

// extractEventObjects inspects a single JSON-LD block and returns all
// schema.org Event / EventSeries objects found within it, handling:
//
//   - Single top-level Event or EventSeries object
//   - Top-level JSON array of objects
//   - Object with an @graph array
//   - ItemList with itemListElement containing ListItem→item Events
func extractEventObjects(data []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		var events []json.RawMessage
		for _, item := range items {
			extracted, err := extractEventObjects(item)
			if err != nil {
				return nil, err
			}
			events = append(events, extracted...)
		}
		return events, nil
	}
	return extractFromObject(data)
}

func extractFromObject(data []byte) ([]json.RawMessage, error) {
	var envelope struct {
		Type            json.RawMessage   `json:"@type"`
		Graph           []json.RawMessage `json:"@graph"`
		ItemListElement []json.RawMessage `json:"itemListElement"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	if len(envelope.Graph) > 0 {
		var events []json.RawMessage
		for _, item := range envelope.Graph {
			extracted, err := extractFromObject(item)
			if err != nil {
				return nil, err
			}
			events = append(events, extracted...)
		}
		return events, nil
	}

	typStr := jsonTypeString(envelope.Type)

	if typStr == "ItemList" && len(envelope.ItemListElement) > 0 {
		var events []json.RawMessage
		for _, elem := range envelope.ItemListElement {
			var listItem struct {
				Item json.RawMessage `json:"item"`
			}
			if err := json.Unmarshal(elem, &listItem); err != nil {
				return nil, err
			}
			if len(listItem.Item) == 0 {
				continue
			}
			extracted, err := extractFromObject(listItem.Item)
			if err != nil {
				return nil, err
			}
			events = append(events, extracted...)
		}
		return events, nil
	}

	if typStr == "Event" || typStr == "EventSeries" {
		return []json.RawMessage{json.RawMessage(data)}, nil
	}
	return nil, nil
}

// jsonTypeString returns the string value of a @type field, handling both a
// plain string ("Event") and a single-element JSON array (["Event"]), with
// an optional schema.org URL prefix.
func jsonTypeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return stripSchemaPrefix(s)
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		return stripSchemaPrefix(arr[0])
	}
	return ""
}

func stripSchemaPrefix(s string) string {
	for _, prefix := range []string{"https://schema.org/", "http://schema.org/"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			return after
		}
	}
	return s
}
