// Package sanitize cleans scraped text before it is stored. Everything in
// the database is plain text; listing sites routinely embed markup, tracking
// pixels, and the occasional script tag in event descriptions.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Text strips all HTML and collapses runs of whitespace. Use for event
// names, venue names, and descriptions.
func Text(input string) string {
	return strings.Join(strings.Fields(strictPolicy.Sanitize(input)), " ")
}

// TextSlice sanitizes each entry, dropping any that sanitize to empty.
func TextSlice(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	out := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if clean := Text(input); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
