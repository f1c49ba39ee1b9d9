package normalize

import (
	"regexp"
	"strings"
)

// Canonical discipline categories. Twelve competition categories, two
// non-competition categories, and a catch-all.
const (
	ShowJumping      = "Show Jumping"
	Dressage         = "Dressage"
	Eventing         = "Eventing"
	CrossCountry     = "Cross Country"
	CombinedTraining = "Combined Training"
	Showing          = "Showing"
	HunterTrial      = "Hunter Trial"
	PonyClub         = "Pony Club"
	NSEA             = "NSEA"
	AgriculturalShow = "Agricultural Show"
	Endurance        = "Endurance"
	Gymkhana         = "Gymkhana"
	VenueHire        = "Venue Hire"
	Training         = "Training"
	Other            = "Other"
)

// CanonicalDisciplines is the complete closed vocabulary, used by the
// post-scan audit to spot drift.
var CanonicalDisciplines = map[string]struct{}{
	ShowJumping: {}, Dressage: {}, Eventing: {}, CrossCountry: {},
	CombinedTraining: {}, Showing: {}, HunterTrial: {}, PonyClub: {},
	NSEA: {}, AgriculturalShow: {}, Endurance: {}, Gymkhana: {},
	VenueHire: {}, Training: {}, Other: {},
}

var nonCompetitionDisciplines = map[string]struct{}{
	VenueHire: {},
	Training:  {},
}

// disciplineCanonical maps lowercase raw discipline spellings to canonical
// values. Canonical values map to themselves so the audit pass is a no-op on
// clean rows.
var disciplineCanonical = map[string]string{
	// Show Jumping
	"showjumping":               ShowJumping,
	"show jumping":              ShowJumping,
	"showjump":                  ShowJumping,
	"british showjumping":       ShowJumping,
	"unaffiliated showjumping":  ShowJumping,
	"unaffiliated show jumping": ShowJumping,
	"equitation jumping":        ShowJumping,
	"sj":                        ShowJumping,
	// Dressage
	"dressage":              Dressage,
	"british dressage":      Dressage,
	"unaffiliated dressage": Dressage,
	// Eventing
	"eventing":           Eventing,
	"one day event":      Eventing,
	"eventer trial":      Eventing,
	"express eventing":   Eventing,
	"eventers challenge": Eventing,
	"horse trial":        Eventing,
	"horse trials":       Eventing,
	// Cross Country
	"cross country": CrossCountry,
	"xc":            CrossCountry,
	"show cross":    CrossCountry,
	"showcross":     CrossCountry,
	// Combined Training
	"combined training": CombinedTraining,
	"ct":                CombinedTraining,
	// Showing
	"showing":        Showing,
	"shows":          Showing,
	"bsps":           Showing,
	"working hunter": Showing,
	// Hunter Trial
	"hunter trial":  HunterTrial,
	"hunter trials": HunterTrial,
	// Pony Club
	"pony club": PonyClub,
	// NSEA
	"nsea": NSEA,
	// Agricultural Show
	"agricultural show": AgriculturalShow,
	// Endurance
	"endurance":     Endurance,
	"pleasure ride": Endurance,
	"fun ride":      Endurance,
	// Gymkhana
	"gymkhana":      Gymkhana,
	"mounted games": Gymkhana,
	// Other
	"polo":               Other,
	"polocrosse":         Other,
	"driving":            Other,
	"carriage driving":   Other,
	"working equitation": Other,
	"hobby horse":        Other,
	"demonstration":      Other,
	"demonstrations":     Other,
	"social":             Other,
	"vip event":          Other,
	"riding club":        Other,
	"mixed events":       Other,
	"other":              Other,
	// Venue Hire
	"venue hire":         VenueHire,
	"arena hire":         VenueHire,
	"arena/course hire":  VenueHire,
	"arena/coursehire":   VenueHire,
	"xc course hire":     VenueHire,
	"arena/school hire":  VenueHire,
	"arena booking":      VenueHire,
	"arena eventing":     VenueHire,
	"course hire":        VenueHire,
	"school hire":        VenueHire,
	// Training
	"tuition/lessons":  Training,
	"tuition":          Training,
	"lessons":          Training,
	"training clinics": Training,
	"training clinic":  Training,
	"schooling":        Training,
	"clinic":           Training,
	"clinics":          Training,
	"camps":            Training,
	"camp":             Training,
	"training":         Training,
}

// Discipline maps a raw discipline string to its canonical value and the
// competition flag the category implies. Unknown or empty input yields
// ("", true): unrecognized hints are ignored and events presumed
// competitions.
func Discipline(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", true
	}
	canonical, ok := disciplineCanonical[key]
	if !ok {
		return "", true
	}
	_, nonComp := nonCompetitionDisciplines[canonical]
	return canonical, !nonComp
}

// disciplinePatterns infer a discipline from free text. Ordered: the first
// match wins, and more specific patterns come before looser ones.
var disciplinePatterns = []struct {
	discipline string
	re         *regexp.Regexp
}{
	{ShowJumping, regexp.MustCompile(`(?i)show\s*jump|\bSJ\b|\bBS\s`)},
	{Dressage, regexp.MustCompile(`(?i)dressage|\bBD\b`)},
	{Eventing, regexp.MustCompile(`(?i)eventing|one.day.event|\bODE\b|horse\s*trial|\bBE\b`)},
	{CrossCountry, regexp.MustCompile(`(?i)cross\s*country|\bXC\b|show.?cross`)},
	{CombinedTraining, regexp.MustCompile(`(?i)combined\s*training|\bCT\b`)},
	{HunterTrial, regexp.MustCompile(`(?i)hunter\s*trial`)},
	{NSEA, regexp.MustCompile(`(?i)\bNSEA\b|schools.equestrian`)},
	{PonyClub, regexp.MustCompile(`(?i)pony\s*club`)},
	{AgriculturalShow, regexp.MustCompile(`(?i)agricultural\s*show|county\s*show`)},
	{Showing, regexp.MustCompile(`(?i)\bshowing\b|working\s*hunter`)},
	{Endurance, regexp.MustCompile(`(?i)endurance|pleasure\s*ride`)},
	{Gymkhana, regexp.MustCompile(`(?i)gymkhana|mounted\s*games`)},
}

// InferDiscipline guesses a competition discipline from event name or
// description text. Returns "" when nothing matches. Used only as a hint
// inside the classifier.
func InferDiscipline(text string) string {
	for _, p := range disciplinePatterns {
		if p.re.MatchString(text) {
			return p.discipline
		}
	}
	return ""
}

// ponyKeywords indicate pony or junior classes.
var ponyKeywords = []string{
	"pony", "ponies", "junior", "u18", "under 18",
	"u16", "under 16", "u14", "under 14",
	"trailblazer", "nsea",
}

// DetectPonyClasses reports whether text mentions pony or junior classes.
func DetectPonyClasses(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range ponyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsCompetitionDiscipline reports whether a canonical discipline is one of
// the competition categories.
func IsCompetitionDiscipline(canonical string) bool {
	if _, ok := nonCompetitionDisciplines[canonical]; ok {
		return false
	}
	_, ok := CanonicalDisciplines[canonical]
	return ok
}
