package ports

import (
	"context"
	"last-mile-planner/internal/domain"
)

// Contract for resolving an address to coordinates.
//
// Implementations return an error matching domain.ErrNotFound when the
// address is unresolvable and domain.ErrProviderDown on transient failures.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
