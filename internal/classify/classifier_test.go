package classify

import (
	"testing"

	"github.com/equiscan/server/internal/normalize"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		eventName   string
		hint        string
		description string
		want        Result
	}{
		{
			name:      "training keyword overrides discipline hint",
			eventName: "Maddy Moffet Jump Polework Training Clinic",
			hint:      "Show Jumping",
			want:      Result{Discipline: normalize.Training, IsCompetition: false},
		},
		{
			name:      "discipline hint trusted",
			eventName: "Spring Show",
			hint:      "showjump",
			want:      Result{Discipline: normalize.ShowJumping, IsCompetition: true},
		},
		{
			name:      "arena hire",
			eventName: "Arena Hire Tuesday Evening",
			want:      Result{Discipline: normalize.VenueHire, IsCompetition: false},
		},
		{
			name:        "venue hire in description",
			eventName:   "Tuesday Evening Slot",
			description: "Private venue hire, book online",
			want:        Result{Discipline: normalize.VenueHire, IsCompetition: false},
		},
		{
			name:      "lesson keyword",
			eventName: "Flatwork Lesson with Visiting Trainer",
			want:      Result{Discipline: normalize.Training, IsCompetition: false},
		},
		{
			name:      "camp word-bounded",
			eventName: "Pony Club Camp",
			want:      Result{Discipline: normalize.Training, IsCompetition: false},
		},
		{
			name:      "camp not fired inside longer word",
			eventName: "Chipping Campden Showjumping",
			want:      Result{Discipline: normalize.ShowJumping, IsCompetition: true},
		},
		{
			name:      "combined training stays a competition",
			eventName: "Combined Training Show",
			want:      Result{Discipline: normalize.CombinedTraining, IsCompetition: true},
		},
		{
			name:      "inferred from name",
			eventName: "Evening Dressage",
			want:      Result{Discipline: normalize.Dressage, IsCompetition: true},
		},
		{
			name:        "inferred from description when name is opaque",
			eventName:   "Spring Spectacular",
			description: "Two days of unaffiliated showjumping",
			want:        Result{Discipline: normalize.ShowJumping, IsCompetition: true},
		},
		{
			name:      "unknown hint ignored, name wins",
			eventName: "Hunter Trial Pairs",
			hint:      "miscellaneous",
			want:      Result{Discipline: normalize.HunterTrial, IsCompetition: true},
		},
		{
			name:      "unknown presumed competition",
			eventName: "Summer Extravaganza",
			want:      Result{Discipline: "", IsCompetition: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.eventName, tt.hint, tt.description)
			if got != tt.want {
				t.Errorf("Classify(%q, %q, %q) = %+v, want %+v",
					tt.eventName, tt.hint, tt.description, got, tt.want)
			}
		})
	}
}

// Classify must be pure: repeated calls yield identical results.
func TestClassifyPure(t *testing.T) {
	t.Parallel()

	first := Classify("Spring Show", "showjump", "with pony classes")
	for i := 0; i < 100; i++ {
		if got := Classify("Spring Show", "showjump", "with pony classes"); got != first {
			t.Fatalf("Classify not pure: call %d returned %+v, first call %+v", i, got, first)
		}
	}
}
