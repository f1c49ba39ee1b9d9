package sites

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/equiscan/server/internal/parser"
)

const (
	equoBaseURL   = "https://www.equoevents.co.uk"
	equoSearchURL = equoBaseURL + "/SearchEvents?Sort=StartDate&Desc=False"
	equoVenueURL  = equoBaseURL + "/Venues/View/"
	equoUserAgent = "EquiScan/1.0 (+https://github.com/equiscan/server)"

	equoMaxPages = 50
)

func init() {
	parser.Register("equo_events", func(env parser.Env) parser.Parser {
		return &equoParser{env: env}
	})
}

// equoParser scrapes equoevents.co.uk, a server-rendered ASP.NET MVC site.
// The search listing paginates through div.tr rows; venue postcodes live on
// separate venue pages, fetched once per unique venue.
type equoParser struct {
	env parser.Env
}

type equoRow struct {
	name       string
	dateText   string
	discipline string
	venueName  string
	venueID    string
	url        string
}

var (
	equoEventHrefRe = regexp.MustCompile(`/ViewEvent/ViewEventDetails/\d+`)
	equoVenueHrefRe = regexp.MustCompile(`/Venues/View/(\d+)`)
)

func (p *equoParser) FetchAndParse(ctx context.Context, sourceURL string) ([]parser.ExtractedEvent, error) {
	rows, err := p.scrapeListing(ctx)
	if err != nil {
		return nil, err
	}

	postcodes := p.fetchVenuePostcodes(ctx, rows)

	events := make([]parser.ExtractedEvent, 0, len(rows))
	seen := make(map[string]bool)
	for _, row := range rows {
		dateStart := parser.ISODate(row.dateText)
		if row.name == "" || dateStart == "" {
			continue
		}
		key := row.name + "|" + dateStart
		if seen[key] {
			continue
		}
		seen[key] = true

		venueName := row.venueName
		if venueName == "" {
			venueName = "TBC"
		}
		events = append(events, parser.ExtractedEvent{
			Name:          row.name,
			DateStart:     dateStart,
			VenueName:     venueName,
			VenuePostcode: postcodes[row.venueID],
			Discipline:    row.discipline,
			URL:           row.url,
		})
	}

	p.env.Logger.Info().Int("events", len(events)).Msg("equo_events: extraction complete")
	return events, nil
}

func (p *equoParser) scrapeListing(ctx context.Context) ([]equoRow, error) {
	var (
		mu         sync.Mutex
		rows       []equoRow
		totalPages = 1
	)

	c := colly.NewCollector(
		colly.UserAgent(equoUserAgent),
		colly.AllowedDomains("www.equoevents.co.uk", "equoevents.co.uk"),
	)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: 250 * time.Millisecond}); err != nil {
		p.env.Logger.Warn().Err(err).Msg("equo_events: failed to set rate limit rule")
	}

	c.OnHTML(`input[type="hidden"]`, func(h *colly.HTMLElement) {
		if !strings.Contains(h.Attr("name")+h.Attr("id"), "TotalPages") {
			return
		}
		if n, err := strconv.Atoi(h.Attr("value")); err == nil && n > 0 {
			mu.Lock()
			totalPages = n
			mu.Unlock()
		}
	})

	c.OnHTML("div.tr", func(h *colly.HTMLElement) {
		if ctx.Err() != nil {
			return
		}
		class := h.Attr("class")
		if strings.Contains(class, "tr-head") || strings.Contains(class, "buttons-pseudo-row") {
			return
		}

		row := equoRow{
			name:       strings.TrimSpace(h.DOM.Find("a").FilterFunction(hrefMatches(equoEventHrefRe)).First().Text()),
			dateText:   strings.TrimSpace(h.DOM.Find("span.text-bold").First().Text()),
			discipline: strings.TrimSpace(h.DOM.Find(`span[data-title="Discipline"]`).First().Text()),
		}

		if href, ok := h.DOM.Find("a").FilterFunction(hrefMatches(equoEventHrefRe)).First().Attr("href"); ok {
			row.url = h.Request.AbsoluteURL(href)
		}

		venueLink := h.DOM.Find("a").FilterFunction(hrefMatches(equoVenueHrefRe)).First()
		row.venueName = strings.TrimSpace(venueLink.Text())
		if href, ok := venueLink.Attr("href"); ok {
			if m := equoVenueHrefRe.FindStringSubmatch(href); m != nil {
				row.venueID = m[1]
			}
		}

		if row.name != "" {
			mu.Lock()
			rows = append(rows, row)
			mu.Unlock()
		}
	})

	if err := c.Visit(equoSearchURL); err != nil {
		return nil, fmt.Errorf("fetching search page 1: %w", err)
	}

	pages := totalPages
	if pages > equoMaxPages {
		pages = equoMaxPages
	}
	for page := 2; page <= pages; page++ {
		if ctx.Err() != nil {
			return rows, ctx.Err()
		}
		pageURL := fmt.Sprintf("%s&Page=%d", equoSearchURL, page)
		if err := c.Visit(pageURL); err != nil {
			p.env.Logger.Warn().Err(err).Int("page", page).Msg("equo_events: page fetch failed")
			break
		}
	}
	return rows, nil
}

// fetchVenuePostcodes resolves each unique venue page once. A venue page
// that yields no postcode is left out; the geocoder falls back to the venue
// name downstream.
func (p *equoParser) fetchVenuePostcodes(ctx context.Context, rows []equoRow) map[string]string {
	postcodes := make(map[string]string)
	for _, row := range rows {
		if row.venueID == "" {
			continue
		}
		if _, done := postcodes[row.venueID]; done {
			continue
		}
		postcodes[row.venueID] = ""
		if ctx.Err() != nil {
			break
		}
		body, err := p.env.Fetcher.Get(ctx, equoVenueURL+row.venueID)
		if err != nil {
			p.env.Logger.Debug().Err(err).Str("venue_id", row.venueID).
				Msg("equo_events: venue page fetch failed")
			continue
		}
		postcodes[row.venueID] = extractPostcode(string(body))
	}
	return postcodes
}

func hrefMatches(re *regexp.Regexp) func(int, *goquery.Selection) bool {
	return func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		return ok && re.MatchString(href)
	}
}
