package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// TbcVenue is the sentinel canonical name for venue input that fails the
// junk guards (URLs, bare postcodes, plus-codes, oversized strings).
const TbcVenue = "Tbc"

// maxVenueNameLen is the junk-guard cutoff after trimming.
const maxVenueNameLen = 100

// embeddedPostcodeRe finds a UK-shaped postcode inside free text so it can be
// removed from venue names like "Eland Lodge DE13 8RQ".
var embeddedPostcodeRe = regexp.MustCompile(`(?i)\b[A-Z]{1,2}\d[A-Z\d]?\s*\d[A-Z]{2}\b`)

// plusCodeRe matches Open Location Codes ("9C3W+QP", "GCPV+8Q Derby").
var plusCodeRe = regexp.MustCompile(`(?i)^[23456789CFGHJMPQRVWX]{4,8}\+[23456789CFGHJMPQRVWX]{2,3}\b`)

// showNumberRe strips BS-style show numbering: "(1)", "(2) - SPONSORED BY...".
var showNumberRe = regexp.MustCompile(`\s*\(\d+\)(\s*-\s*.+)?$`)

// trailingEventParenRe strips trailing event-descriptor parentheticals such
// as "(Festival)" or "(Small Pony Premier)". Location qualifiers like
// "(Cumbria)" are preserved.
var trailingEventParenRe = regexp.MustCompile(
	`(?i)\s*\([^)]*(?:Premier|Festival|Championship|Finals|Qualifier|Scope|Senior|Junior|Pony|Winter|Summer|League)[^)]*\)\s*$`)

// trailingLimitedRe strips a trailing "Limited".
var trailingLimitedRe = regexp.MustCompile(`(?i)\s+Limited$`)

// trailingAbbrevRe strips trailing abbreviation codes like " - Chspc" or
// " - Vwh" (at most six letters, so location names survive).
var trailingAbbrevRe = regexp.MustCompile(`\s*-\s+[A-Z][A-Za-z]{1,5}$`)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// venueSuffixes is the suffix vocabulary stripped iteratively from canonical
// names, longest first. The list is a tuned contract; extend it only with
// accompanying tests.
var venueSuffixes = []string{
	"equestrian centre",
	"equine centre",
	"riding centre",
	"riding school",
	"riding club",
	"event centre",
	"equestrian",
	"showground",
	"equine",
	"stables",
	"farm",
	"ltd",
}

// orphanTrailers are dangling prepositions and conjunctions removed from the
// end of a name after suffix stripping.
var orphanTrailers = map[string]struct{}{
	"of": {}, "at": {}, "in": {}, "on": {}, "&": {}, "and": {},
}

// VenueName canonicalizes a raw venue name. Pathological input (empty, URL,
// bare postcode, plus-code, >100 chars) short-circuits to the "Tbc"
// sentinel; the event itself is kept by callers and groups against the Tbc
// venue. The function is idempotent: VenueName(VenueName(s)) == VenueName(s).
func VenueName(raw string) string {
	s := strings.TrimSpace(raw)

	if isJunkVenueName(s) {
		return TbcVenue
	}

	s = showNumberRe.ReplaceAllString(s, "")
	s = trailingEventParenRe.ReplaceAllString(s, "")

	s = titleCase(strings.TrimSpace(s))

	s = embeddedPostcodeRe.ReplaceAllString(s, "")
	s = trailingLimitedRe.ReplaceAllString(s, "")
	s = trailingAbbrevRe.ReplaceAllString(s, "")

	s = stripVenueSuffixes(s)

	s = multiSpaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	s = stripTrailers(s)

	// Truncation can expose a fresh suffix ("X Equestrian, <address>"), so
	// the suffix pass runs once more afterwards to keep the result a fixed
	// point.
	s = truncateAddress(s)
	s = stripVenueSuffixes(s)
	s = stripTrailers(strings.TrimSpace(s))

	if s == "" {
		return TbcVenue
	}
	return s
}

func isJunkVenueName(s string) bool {
	if s == "" || len(s) > maxVenueNameLen {
		return true
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "://") || strings.HasPrefix(lower, "www.") {
		return true
	}
	if Postcode(s) != "" {
		// The whole string canonicalizes as a postcode.
		return true
	}
	return plusCodeRe.MatchString(s)
}

// stripVenueSuffixes removes suffix-vocabulary endings until none match.
// Two passes cover every chained case seen in the wild ("X Equestrian Centre
// Ltd"), but the loop runs to a fixed point regardless.
func stripVenueSuffixes(s string) string {
	for {
		trimmed := strings.TrimSpace(s)
		lower := strings.ToLower(trimmed)
		matched := false
		for _, suffix := range venueSuffixes {
			if lower == suffix {
				// Never strip a name down to nothing.
				return trimmed
			}
			if strings.HasSuffix(lower, " "+suffix) {
				trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(suffix)-1])
				matched = true
				break
			}
		}
		s = trimmed
		if !matched {
			return s
		}
	}
}

func stripTrailers(s string) string {
	for {
		s = strings.TrimRight(strings.TrimSpace(s), "-–—:&,.")
		s = strings.TrimSpace(s)
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return s
		}
		last := strings.ToLower(fields[len(fields)-1])
		if _, ok := orphanTrailers[last]; !ok {
			return s
		}
		s = strings.Join(fields[:len(fields)-1], " ")
	}
}

// truncateAddress keeps the leading segment of comma-separated address-like
// names: always when two or more commas are present, and for single-comma
// names only when the whole string is long. Short qualified names such as
// "Higher Farm, Cheshire" are preserved.
func truncateAddress(s string) string {
	commas := strings.Count(s, ",")
	switch {
	case commas >= 2:
		return strings.TrimSpace(strings.SplitN(s, ",", 2)[0])
	case commas == 1 && len(s) > 50:
		return strings.TrimSpace(strings.SplitN(s, ",", 2)[0])
	default:
		return s
	}
}

// titleCase applies English title case, preserving short all-uppercase
// acronyms ("UK", "EC") unless the entire input is shouted, in which case
// everything is folded ("ELAND LODGE" -> "Eland Lodge").
func titleCase(s string) string {
	allUpper := s == strings.ToUpper(s)
	fields := strings.Fields(s)
	for i, w := range fields {
		if !allUpper && w == strings.ToUpper(w) && hasLetter(w) && letterCount(w) <= 3 {
			continue
		}
		fields[i] = capitalize(strings.ToLower(w))
	}
	return strings.Join(fields, " ")
}

func capitalize(w string) string {
	runes := []rune(w)
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}

func hasLetter(w string) bool {
	return strings.IndexFunc(w, unicode.IsLetter) >= 0
}

func letterCount(w string) int {
	n := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
