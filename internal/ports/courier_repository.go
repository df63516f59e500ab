package ports

import (
	"context"
	"last-mile-planner/internal/domain"
)

// Port: a boundary for loading the courier roster from a data source.
type CourierRepository interface {
	// Retrieve every courier known to the depot.
	ListCouriers(ctx context.Context) ([]domain.Courier, error)
}
