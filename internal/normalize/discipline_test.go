package normalize

import "testing"

func TestDiscipline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		want     string
		wantComp bool
	}{
		{"showjump", ShowJumping, true},
		{"Show Jumping", ShowJumping, true},
		{"BRITISH SHOWJUMPING", ShowJumping, true},
		{"sj", ShowJumping, true},
		{"dressage", Dressage, true},
		{"horse trials", Eventing, true},
		{"xc", CrossCountry, true},
		{"ct", CombinedTraining, true},
		{"working hunter", Showing, true},
		{"hunter trial", HunterTrial, true},
		{"pony club", PonyClub, true},
		{"nsea", NSEA, true},
		{"agricultural show", AgriculturalShow, true},
		{"fun ride", Endurance, true},
		{"mounted games", Gymkhana, true},
		{"polo", Other, true},
		{"carriage driving", Other, true},
		{"arena hire", VenueHire, false},
		{"venue hire", VenueHire, false},
		{"school hire", VenueHire, false},
		{"clinic", Training, false},
		{"camps", Training, false},
		{"tuition/lessons", Training, false},
		{"", "", true},
		{"   ", "", true},
		{"underwater basket weaving", "", true},
	}

	for _, tt := range tests {
		got, gotComp := Discipline(tt.raw)
		if got != tt.want || gotComp != tt.wantComp {
			t.Errorf("Discipline(%q) = (%q, %v), want (%q, %v)",
				tt.raw, got, gotComp, tt.want, tt.wantComp)
		}
	}
}

// Every canonical value must map to itself so the audit pass leaves clean
// rows untouched.
func TestDisciplineCanonicalSelfMapping(t *testing.T) {
	t.Parallel()

	for canonical := range CanonicalDisciplines {
		got, _ := Discipline(canonical)
		if got != canonical {
			t.Errorf("Discipline(%q) = %q, canonical values must be stable", canonical, got)
		}
	}
}

func TestInferDiscipline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"Evening Showjumping League", ShowJumping},
		{"Intro SJ Clear Round", ShowJumping},
		{"Unaffiliated Dressage", Dressage},
		{"Spring One Day Event", Eventing},
		{"XC Schooling Day", CrossCountry},
		{"Combined Training Show", CombinedTraining},
		{"Hunter Trial Pairs", HunterTrial},
		{"NSEA Qualifier", NSEA},
		{"Pony Club Rally", PonyClub},
		{"Royal County Show", AgriculturalShow},
		{"Working Hunter Classes", Showing},
		{"20 Mile Pleasure Ride", Endurance},
		{"Mounted Games Evening", Gymkhana},
		{"Committee Meeting", ""},
	}

	for _, tt := range tests {
		if got := InferDiscipline(tt.text); got != tt.want {
			t.Errorf("InferDiscipline(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectPonyClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"Small Pony Premier", true},
		{"Junior Showjumping 70cm", true},
		{"U18 Dressage", true},
		{"Trailblazers Second Round", true},
		{"Senior British Novice", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := DetectPonyClasses(tt.text); got != tt.want {
			t.Errorf("DetectPonyClasses(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.com/schedule", "https://example.com/schedule"},
		{"http://example.com", "http://example.com"},
		{"  https://example.com  ", "https://example.com"},
		{"javascript:alert(1)", ""},
		{"ftp://example.com/file", ""},
		{"not a url", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeURL(tt.raw); got != tt.want {
			t.Errorf("SanitizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
