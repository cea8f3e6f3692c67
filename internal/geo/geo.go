// Package geo decides whether a GPS fix is at a known client location.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// DefaultRadiusKm is the match threshold: 100 meters.
const DefaultRadiusKm = 0.1

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Candidate is a location that a point can be matched against.
// Latitude/Longitude are pointers because client records may be ungeocoded;
// candidates missing either coordinate are skipped.
type Candidate struct {
	ID        int64
	Latitude  *float64
	Longitude *float64
}

// Distance returns the great-circle distance between two points in km.
func Distance(a, b Point) float64 {
	dLat := deg2rad(b.Latitude - a.Latitude)
	dLon := deg2rad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(a.Latitude))*math.Cos(deg2rad(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Match returns the ID of the nearest candidate within radiusKm of point,
// or nil if none qualifies. Equidistant candidates resolve to the first in
// slice order.
func Match(point Point, candidates []Candidate, radiusKm float64) *int64 {
	var best *int64
	bestDist := math.Inf(1)

	for i := range candidates {
		c := candidates[i]
		if c.Latitude == nil || c.Longitude == nil {
			continue
		}
		d := Distance(point, Point{Latitude: *c.Latitude, Longitude: *c.Longitude})
		if d < bestDist {
			bestDist = d
			best = &candidates[i].ID
		}
	}

	if best == nil || bestDist > radiusKm {
		return nil
	}
	return best
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}
