// Package normalize holds the pure normalization utilities applied at every
// ingest point: postcode and venue-name canonicalization, discipline mapping,
// pony-class detection, and URL sanitization. Everything here is deterministic
// and free of I/O.
package normalize

import (
	"regexp"
	"strings"
)

// outwardRe matches the recognized UK outward code shapes: A9, A99, A9A,
// AA9, AA99, AA9A.
var outwardRe = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?$`)

// inwardRe matches the inward code shape: digit letter letter.
var inwardRe = regexp.MustCompile(`^\d[A-Z]{2}$`)

// Postcode canonicalizes a raw UK postcode to "OUTWARD INWARD" form
// (uppercase, single space). It returns "" when the input is not shaped like
// a UK postcode. Canonical postcodes are fixed points: Postcode(p) == p for
// any canonical p.
func Postcode(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, ".,;:!")
	s = strings.ToUpper(s)
	s = strings.Join(strings.Fields(s), "")

	if len(s) < 5 || len(s) > 7 {
		return ""
	}

	outward := s[:len(s)-3]
	inward := s[len(s)-3:]

	if !inwardRe.MatchString(inward) {
		return ""
	}
	if !outwardRe.MatchString(outward) {
		return ""
	}
	return outward + " " + inward
}
