package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/equiscan/server/internal/parser"
)

const (
	horseMonkeySearchURL = "https://horsemonkey.com/uk/search"
	horseMonkeyEventURL  = "https://horsemonkey.com/uk/equestrian_event/"
	horseMonkeyPerPage   = 100
)

func init() {
	parser.Register("horse_monkey", func(env parser.Env) parser.Parser {
		return &horseMonkeyParser{env: env}
	})
}

// horseMonkeyParser reads horsemonkey.com. The search page is a Vue SPA
// backed by a paginated POST JSON API; detail pages embed venue coordinates
// in an inline JSON blob.
type horseMonkeyParser struct {
	env parser.Env
}

type horseMonkeyRow struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Start       string `json:"start"`
	End         string `json:"end"`
	VenueName   string `json:"venue_name"`
	Disciplines string `json:"disciplines"`
	PublicURL   string `json:"publicUrl"`
}

type horseMonkeyPage struct {
	Rows      []horseMonkeyRow `json:"rows"`
	TotalRows int              `json:"totalRows"`
}

var horseMonkeyLatLongRe = regexp.MustCompile(`"latitude":"(-?[\d.]+)","longitude":"(-?[\d.]+)"`)

func (p *horseMonkeyParser) FetchAndParse(ctx context.Context, sourceURL string) ([]parser.ExtractedEvent, error) {
	rows, err := p.fetchAllRows(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]parser.ExtractedEvent, 0, len(rows))
	seen := make(map[int]bool)
	for _, row := range rows {
		if row.ID == 0 || seen[row.ID] {
			continue
		}
		seen[row.ID] = true

		ev, ok := p.rowToEvent(row)
		if ok {
			events = append(events, ev)
		}
	}

	p.enrichCoordinates(ctx, events)
	p.env.Logger.Info().Int("events", len(events)).Msg("horse_monkey: extraction complete")
	return events, nil
}

func (p *horseMonkeyParser) fetchAllRows(ctx context.Context) ([]horseMonkeyRow, error) {
	var all []horseMonkeyRow
	for page := 1; ; page++ {
		payload := map[string]any{
			"params": map[string]any{
				"filter": []map[string]any{
					{"field": "order_by", "value": "start_asc", "type": "dropdown"},
				},
				"currentPage": page,
				"perPage":     horseMonkeyPerPage,
				"sortBy":      "start",
				"sortDesc":    false,
			},
		}

		body, err := p.env.Fetcher.PostJSON(ctx, horseMonkeySearchURL, payload)
		if err != nil {
			return nil, fmt.Errorf("search page %d: %w", page, err)
		}
		var resp horseMonkeyPage
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding search page %d: %w", page, err)
		}

		all = append(all, resp.Rows...)
		if len(resp.Rows) == 0 || len(all) >= resp.TotalRows {
			return all, nil
		}
	}
}

func (p *horseMonkeyParser) rowToEvent(row horseMonkeyRow) (parser.ExtractedEvent, bool) {
	name := strings.TrimSpace(row.Name)
	dateStart := parser.ISODate(row.Start)
	if name == "" || dateStart == "" {
		return parser.ExtractedEvent{}, false
	}

	dateEnd := parser.ISODate(row.End)
	if dateEnd == dateStart {
		dateEnd = ""
	}

	eventURL := row.PublicURL
	if eventURL == "" {
		eventURL = horseMonkeyEventURL + strconv.Itoa(row.ID)
	}
	venueName := strings.TrimSpace(row.VenueName)
	if venueName == "" {
		venueName = "TBC"
	}

	return parser.ExtractedEvent{
		Name:       name,
		DateStart:  dateStart,
		DateEnd:    dateEnd,
		VenueName:  venueName,
		Discipline: strings.TrimSpace(row.Disciplines),
		URL:        eventURL,
	}, true
}

// enrichCoordinates fetches one detail page per unique venue and copies the
// embedded coordinates onto every event at that venue. Failures leave the
// coordinates unset; the geocoder fills them in later. Fetches run a few at
// a time; the per-host rate limiter paces the actual requests.
func (p *horseMonkeyParser) enrichCoordinates(ctx context.Context, events []parser.ExtractedEvent) {
	byVenue := make(map[string][]int)
	for i, ev := range events {
		if ev.Latitude == nil && ev.URL != "" {
			byVenue[ev.VenueName] = append(byVenue[ev.VenueName], i)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for venue, idxs := range byVenue {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			lat, lon, ok := p.fetchDetailCoords(ctx, events[idxs[0]].URL)
			if !ok {
				p.env.Logger.Debug().Str("venue", venue).Msg("horse_monkey: no coordinates on detail page")
				return nil
			}
			// Disjoint index sets, so the writes never overlap.
			for _, i := range idxs {
				latCopy, lonCopy := lat, lon
				events[i].Latitude = &latCopy
				events[i].Longitude = &lonCopy
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *horseMonkeyParser) fetchDetailCoords(ctx context.Context, detailURL string) (float64, float64, bool) {
	body, err := p.env.Fetcher.Get(ctx, detailURL)
	if err != nil {
		return 0, 0, false
	}
	m := horseMonkeyLatLongRe.FindSubmatch(body)
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(string(m[1]), 64)
	lon, err2 := strconv.ParseFloat(string(m[2]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
