package domain

// Immutable geographic coordinates in decimal degrees (WGS84).
type Coordinates struct {
	Lat float64
	Lng float64
}

// NewCoordinates validates the latitude and longitude ranges.
func NewCoordinates(lat, lng float64) (Coordinates, error) {
	if lat < -90 || lat > 90 {
		return Coordinates{}, Errorf(CodeCoordOutOfRange, "latitude %f outside [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return Coordinates{}, Errorf(CodeCoordOutOfRange, "longitude %f outside [-180, 180]", lng)
	}
	return Coordinates{Lat: lat, Lng: lng}, nil
}
