package geo

import (
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestDistance(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Point
		wantKm float64
		tol    float64
	}{
		{
			name:   "same point",
			a:      Point{40.0, -73.0},
			b:      Point{40.0, -73.0},
			wantKm: 0,
			tol:    1e-9,
		},
		{
			name:   "one degree of latitude",
			a:      Point{40.0, -73.0},
			b:      Point{41.0, -73.0},
			wantKm: 111.19,
			tol:    0.5,
		},
		{
			name:   "paris to london",
			a:      Point{48.8566, 2.3522},
			b:      Point{51.5074, -0.1278},
			wantKm: 343.5,
			tol:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tol {
				t.Errorf("Distance = %v km, want %v ± %v", got, tt.wantKm, tt.tol)
			}
		})
	}
}

func TestMatchExactLocation(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Latitude: fp(40.0), Longitude: fp(-73.0)},
	}

	got := Match(Point{40.0, -73.0}, candidates, DefaultRadiusKm)
	if got == nil || *got != 1 {
		t.Fatalf("Match = %v, want 1", got)
	}
}

func TestMatchOutsideRadius(t *testing.T) {
	// Roughly 1 km north of the candidate.
	candidates := []Candidate{
		{ID: 1, Latitude: fp(40.0), Longitude: fp(-73.0)},
	}

	got := Match(Point{40.009, -73.0}, candidates, DefaultRadiusKm)
	if got != nil {
		t.Fatalf("Match = %d, want nil for a point ~1km away with 0.1km radius", *got)
	}
}

func TestMatchPicksNearest(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Latitude: fp(40.0008), Longitude: fp(-73.0)}, // ~90m
		{ID: 2, Latitude: fp(40.0002), Longitude: fp(-73.0)}, // ~22m
		{ID: 3, Latitude: fp(40.0005), Longitude: fp(-73.0)}, // ~55m
	}

	got := Match(Point{40.0, -73.0}, candidates, DefaultRadiusKm)
	if got == nil || *got != 2 {
		t.Fatalf("Match = %v, want 2 (nearest)", got)
	}
}

func TestMatchSkipsUngeolocated(t *testing.T) {
	candidates := []Candidate{
		{ID: 1},                                       // no coordinates
		{ID: 2, Latitude: fp(40.0)},                   // missing longitude
		{ID: 3, Longitude: fp(-73.0)},                 // missing latitude
		{ID: 4, Latitude: fp(40.0), Longitude: fp(-73.0)},
	}

	got := Match(Point{40.0, -73.0}, candidates, DefaultRadiusKm)
	if got == nil || *got != 4 {
		t.Fatalf("Match = %v, want 4", got)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	if got := Match(Point{40.0, -73.0}, nil, DefaultRadiusKm); got != nil {
		t.Fatalf("Match = %d, want nil for empty candidates", *got)
	}
}

func TestMatchTieBreaksFirst(t *testing.T) {
	// Two candidates at the identical spot: first one wins.
	candidates := []Candidate{
		{ID: 7, Latitude: fp(40.0), Longitude: fp(-73.0)},
		{ID: 8, Latitude: fp(40.0), Longitude: fp(-73.0)},
	}

	got := Match(Point{40.0, -73.0}, candidates, DefaultRadiusKm)
	if got == nil || *got != 7 {
		t.Fatalf("Match = %v, want 7 (first in order)", got)
	}
}
