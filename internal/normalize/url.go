package normalize

import (
	"net/url"
	"strings"
)

// SanitizeURL returns the trimmed URL when its scheme is http or https, and
// "" otherwise. Events with rejected URLs are kept; only the URL is dropped.
func SanitizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return s
	default:
		return ""
	}
}
