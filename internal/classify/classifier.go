// Package classify is the single place event classification lives. Parsers
// are purely extractive; the scan orchestrator calls Classify for every
// event, and nothing else may set the canonical discipline or the
// competition flag.
package classify

import (
	"strings"

	"github.com/equiscan/server/internal/normalize"
)

// Result is the classifier verdict for one event.
type Result struct {
	// Discipline is one of the canonical categories, or "" when unknown.
	Discipline string
	// IsCompetition is false only for Training and Venue Hire events.
	IsCompetition bool
}

// hireKeywords mark venue/arena hire listings.
var hireKeywords = []string{"venue hire", "arena hire"}

// trainingKeywords mark non-competition training events. Checked against
// name and description before any discipline resolution so that
// "Dressage Training Clinic" classifies as Training, not Dressage.
var trainingKeywords = []string{
	"training", "clinic", "lesson", "masterclass", "camp",
}

// Classify maps an event's name, the parser's raw discipline hint, and its
// description to a canonical discipline and competition flag.
//
// Rule order, first hit wins:
//  1. strong non-competition keywords in name or description
//  2. parser hint resolved through the discipline table
//  3. discipline inferred from name, then description
//  4. unknown events are presumed competitions
//
// The function is pure; identical input always yields identical output.
func Classify(name, disciplineHint, description string) Result {
	haystack := strings.ToLower(name + " " + description)
	// "Combined Training" names a competition discipline, not a session
	// type; mask it so the training keyword cannot fire on it.
	haystack = strings.ReplaceAll(haystack, "combined training", "")

	for _, kw := range hireKeywords {
		if containsWord(haystack, kw) {
			return Result{Discipline: normalize.VenueHire, IsCompetition: false}
		}
	}
	for _, kw := range trainingKeywords {
		if containsWord(haystack, kw) {
			return Result{Discipline: normalize.Training, IsCompetition: false}
		}
	}

	if canonical, isComp := normalize.Discipline(disciplineHint); canonical != "" {
		return Result{Discipline: canonical, IsCompetition: isComp}
	}

	if inferred := normalize.InferDiscipline(name); inferred != "" {
		return Result{Discipline: inferred, IsCompetition: true}
	}
	if inferred := normalize.InferDiscipline(description); inferred != "" {
		return Result{Discipline: inferred, IsCompetition: true}
	}

	return Result{Discipline: "", IsCompetition: true}
}

// containsWord reports whether text contains kw on word boundaries, so that
// "camp" does not fire on "Campden" or "campaign".
func containsWord(text, kw string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		startOK := start == 0 || !isWordChar(text[start-1])
		endOK := end == len(text) || !isWordChar(text[end])
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
