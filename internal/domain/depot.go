package domain

import "strings"

// Depot is the fixed start and end of every route in a session.
type Depot struct {
	Address string
	Coords  Coordinates
}

func NewDepot(address string, lat, lng float64) (Depot, error) {
	c, err := NewCoordinates(lat, lng)
	if err != nil {
		return Depot{}, err
	}
	return Depot{Address: strings.TrimSpace(address), Coords: c}, nil
}
