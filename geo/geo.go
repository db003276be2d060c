// Package geo provides the minimal geographic primitives Handoff needs:
// a lat/lng point and great-circle distance.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used for haversine distance.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm returns the great-circle distance between two points in
// kilometers, computed with the haversine formula.
func DistanceKm(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
