// Package geo holds the planar and spherical helpers shared by the planner.
package geo

import (
	"math"

	"last-mile-planner/internal/domain"
)

// EarthRadiusKm is the WGS84 mean radius used for every distance in the planner.
const EarthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points.
func HaversineKm(a, b domain.Coordinates) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// HaversineMeters is HaversineKm scaled to meters.
func HaversineMeters(a, b domain.Coordinates) float64 {
	return HaversineKm(a, b) * 1000
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}

// Centroid is the arithmetic mean of the coordinates. The planar
// approximation holds within a metropolitan area.
func Centroid(points []domain.Coordinates) domain.Coordinates {
	if len(points) == 0 {
		return domain.Coordinates{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return domain.Coordinates{Lat: lat / n, Lng: lng / n}
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
