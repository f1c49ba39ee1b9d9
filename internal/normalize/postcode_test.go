package normalize

import "testing"

func TestPostcode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already canonical", "CV12 9JA", "CV12 9JA"},
		{"lowercase no space", "cv129ja", "CV12 9JA"},
		{"single letter outward", "M1 1AA", "M1 1AA"},
		{"outward with letter", "SW1A 1AA", "SW1A 1AA"},
		{"extra whitespace", "  B33  8TH ", "B33 8TH"},
		{"trailing punctuation", "DE13 8RQ.", "DE13 8RQ"},
		{"too short", "M1 1A", ""},
		{"too long", "SW1AA 1AAX", ""},
		{"inward not digit-letter-letter", "CV12 JJA", ""},
		{"not a postcode", "Kelsall", ""},
		{"empty", "", ""},
		{"digits only", "1234567", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Postcode(tt.raw); got != tt.want {
				t.Errorf("Postcode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// Canonical postcodes must be fixed points.
func TestPostcodeFixedPoint(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"cv129ja", "sw1a1aa", "b338th", "ld2 3ab", "GY1 1AA"} {
		canonical := Postcode(raw)
		if canonical == "" {
			t.Fatalf("Postcode(%q) unexpectedly rejected", raw)
		}
		if again := Postcode(canonical); again != canonical {
			t.Errorf("Postcode(%q) = %q, not a fixed point of %q", canonical, again, canonical)
		}
	}
}
