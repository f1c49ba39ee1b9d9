// Package sites holds the per-source parsers. Each file registers one
// parser under its source key at load time; importing this package for side
// effects makes the whole roster available through the registry.
//
// Parsers here extract, nothing more. Discipline text is passed through as
// a raw hint and venue names are left exactly as the site prints them.
package sites

import "regexp"

// ukPostcodeRe finds a UK postcode anywhere in page text. Loose on purpose;
// canonicalization happens downstream.
var ukPostcodeRe = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d[A-Z\d]?)\s*(\d[A-Z]{2})\b`)

func extractPostcode(text string) string {
	m := ukPostcodeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1] + " " + m[2]
}
