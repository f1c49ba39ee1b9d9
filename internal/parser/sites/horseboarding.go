package sites

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/equiscan/server/internal/parser"
)

const horseBoardingURL = "https://www.horseboardinguk.org/championshipdates"

func init() {
	parser.Register("horse_boarding_uk", func(env parser.Env) parser.Parser {
		return &horseBoardingParser{env: env, now: time.Now}
	})
}

// horseBoardingParser reads the Horse Boarding UK championship calendar, a
// Wix SPA with no server-side markup. The page is rendered headlessly, then
// rounds are read out of the Wix repeater widget. Dates on the page carry no
// year; the page heading ("2025 CHAMPIONSHIP DATES") supplies it.
type horseBoardingParser struct {
	env parser.Env
	now func() time.Time
}

var (
	hbDateRe = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*[-–]\s*(\d{1,2})(?:st|nd|rd|th)?)?`)
	hbYearRe = regexp.MustCompile(`(?i)(\d{4})\s*CHAMPIONSHIP`)

	monthsByName = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	}
)

func (p *horseBoardingParser) FetchAndParse(ctx context.Context, sourceURL string) ([]parser.ExtractedEvent, error) {
	html, err := p.env.Renderer.HTML(ctx, horseBoardingURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered page: %w", err)
	}

	year := p.now().Year()
	if m := hbYearRe.FindStringSubmatch(doc.Text()); m != nil {
		year, _ = strconv.Atoi(m[1])
	}

	var events []parser.ExtractedEvent
	seen := make(map[string]bool)
	doc.Find(`div[class*="wixui-repeater__item"]`).Each(func(_ int, item *goquery.Selection) {
		ev, ok := p.parseItem(item, year)
		if !ok {
			return
		}
		key := ev.Name + "|" + ev.DateStart
		if seen[key] {
			return
		}
		seen[key] = true
		events = append(events, ev)
	})

	p.env.Logger.Info().Int("events", len(events)).Msg("horse_boarding_uk: extraction complete")
	return events, nil
}

// parseItem reads one repeater item. The rich-text blocks appear in a fixed
// order: date, round label, host venue.
func (p *horseBoardingParser) parseItem(item *goquery.Selection, year int) (parser.ExtractedEvent, bool) {
	var texts []string
	item.Find(`div[class*="wixui-rich-text"]`).Each(func(_ int, rt *goquery.Selection) {
		if t := strings.TrimSpace(rt.Text()); t != "" {
			texts = append(texts, t)
		}
	})
	if len(texts) < 3 {
		return parser.ExtractedEvent{}, false
	}
	dateText, roundText, venueText := texts[0], texts[1], texts[2]

	dateStart, dateEnd, ok := parseMonthDayRange(dateText, year)
	if !ok {
		return parser.ExtractedEvent{}, false
	}

	eventURL := horseBoardingURL
	if href, found := item.Find("a[href]").First().Attr("href"); found {
		eventURL = href
	}

	return parser.ExtractedEvent{
		Name:       "Horse Boarding Championship " + roundText + " - " + venueText,
		DateStart:  dateStart,
		DateEnd:    dateEnd,
		VenueName:  venueText,
		Discipline: "Horse Boarding",
		URL:        eventURL,
	}, true
}

// parseMonthDayRange handles "April 20th - 21st" and "September 6th" shapes
// against the championship year.
func parseMonthDayRange(text string, year int) (string, string, bool) {
	m := hbDateRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	month, ok := monthsByName[strings.ToLower(m[1])]
	if !ok {
		return "", "", false
	}
	startDay, _ := strconv.Atoi(m[2])
	start := time.Date(year, month, startDay, 0, 0, 0, 0, time.UTC)
	dateStart := start.Format("2006-01-02")

	if m[3] == "" {
		return dateStart, "", true
	}
	endDay, _ := strconv.Atoi(m[3])
	end := time.Date(year, month, endDay, 0, 0, 0, 0, time.UTC)
	if !end.After(start) {
		return dateStart, "", true
	}
	return dateStart, end.Format("2006-01-02"), true
}
