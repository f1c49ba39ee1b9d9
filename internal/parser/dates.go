package parser

import (
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

var dateparserCfg = &dateparser.Configuration{
	DefaultTimezone: time.UTC,
	Languages:       []string{"en"},
}

// ISODate coerces a free-form date string to "2006-01-02". Listing sites
// publish anything from RFC 3339 timestamps to "Sat 14th June 2025"; the
// stored form is always the bare ISO date. Unparseable input returns "".
func ISODate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Fast path for the common machine formats.
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}

	dt, err := dateparser.Parse(dateparserCfg, s)
	if err != nil {
		return ""
	}
	return dt.Time.Format("2006-01-02")
}
