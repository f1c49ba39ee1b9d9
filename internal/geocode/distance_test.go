package geocode

import (
	"math"
	"testing"
)

func TestMiles(t *testing.T) {
	t.Parallel()

	// London (51.5074, -0.1278) to Birmingham (52.4862, -1.8904) is about
	// 101 miles great-circle.
	london := Point{Lat: 51.5074, Lng: -0.1278}
	birmingham := Point{Lat: 52.4862, Lng: -1.8904}

	got := Miles(london, birmingham)
	if math.Abs(got-101) > 2 {
		t.Errorf("Miles(london, birmingham) = %.2f, want ~101", got)
	}

	if d := Miles(london, london); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}

	if a, b := Miles(london, birmingham), Miles(birmingham, london); math.Abs(a-b) > 1e-9 {
		t.Errorf("asymmetric: %f vs %f", a, b)
	}
}

func TestInUK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"central London", Point{51.5, -0.1}, true},
		{"Shetland", Point{60.5, -1.3}, true},
		{"Paris", Point{48.85, 2.35}, false},
		{"New York", Point{40.7, -74.0}, false},
		{"null island", Point{0, 0}, false},
		{"south-west corner", Point{49.0, -11.0}, true},
	}
	for _, tt := range tests {
		if got := InUK(tt.p); got != tt.want {
			t.Errorf("InUK(%s %v) = %v, want %v", tt.name, tt.p, got, tt.want)
		}
	}
}
