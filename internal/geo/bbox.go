package geo

import "last-mile-planner/internal/domain"

// BoundingBox is the lat/lng envelope of a point set.
type BoundingBox struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// Bounds returns the envelope of points; the zero box for no points.
func Bounds(points []domain.Coordinates) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLng: points[0].Lng, MaxLng: points[0].Lng,
	}
	for _, p := range points[1:] {
		b.MinLat = min(b.MinLat, p.Lat)
		b.MaxLat = max(b.MaxLat, p.Lat)
		b.MinLng = min(b.MinLng, p.Lng)
		b.MaxLng = max(b.MaxLng, p.Lng)
	}
	return b
}

// WidthKm is the east-west extent measured along the box's middle latitude.
func (b BoundingBox) WidthKm() float64 {
	mid := (b.MinLat + b.MaxLat) / 2
	return HaversineKm(
		domain.Coordinates{Lat: mid, Lng: b.MinLng},
		domain.Coordinates{Lat: mid, Lng: b.MaxLng},
	)
}

// HeightKm is the north-south extent.
func (b BoundingBox) HeightKm() float64 {
	return HaversineKm(
		domain.Coordinates{Lat: b.MinLat, Lng: b.MinLng},
		domain.Coordinates{Lat: b.MaxLat, Lng: b.MinLng},
	)
}

// AreaKm2 is width times height.
func (b BoundingBox) AreaKm2() float64 {
	return b.WidthKm() * b.HeightKm()
}
