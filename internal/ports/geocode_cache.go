package ports

import (
	"context"
	"last-mile-planner/internal/domain"
)

// Port: a content-addressed store of geocoding results.
// Keys are normalized address keys; expired entries are reported as misses.
type GeocodeCache interface {
	// Fetch cached coordinates for the given keys. Missing keys are absent from the map.
	GetMany(ctx context.Context, keys []string) (map[string]domain.Coordinates, error)
	// Store key -> coordinate mappings. Writes for an existing key overwrite it.
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
