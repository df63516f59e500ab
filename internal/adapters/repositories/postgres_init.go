package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"last-mile-planner/internal/domain"
)

// Initialize the Postgres database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		key TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createCouriersQuery := `
	CREATE TABLE IF NOT EXISTS couriers (
		courier_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		is_partner BOOLEAN NOT NULL DEFAULT FALSE,
		max_capacity INTEGER NOT NULL DEFAULT 0 CHECK (max_capacity >= 0),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`

	createPlansQuery := `
	CREATE TABLE IF NOT EXISTS plans (
		session_id TEXT PRIMARY KEY,
		snapshot JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at
	ON geocode_cache(cached_at);
	`

	statements := []string{
		createGeocodeCacheQuery,
		createCouriersQuery,
		createPlansQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type CourierSeed struct {
	CourierID   string `json:"courier_id"`
	Name        string `json:"name"`
	IsPartner   bool   `json:"is_partner"`
	MaxCapacity int    `json:"max_capacity"`
	IsActive    *bool  `json:"is_active"`
}

// ReadCourierSeed parses and validates a courier roster JSON file.
func ReadCourierSeed(jsonPath string) ([]domain.Courier, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed couriers: read %q: %w", jsonPath, err)
	}
	return parseCourierSeed(bytes)
}

func parseCourierSeed(b []byte) ([]domain.Courier, error) {
	var data []CourierSeed
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("seed couriers: parse json: %w", err)
	}

	seen := make(map[string]struct{}, len(data))
	out := make([]domain.Courier, 0, len(data))
	for i, item := range data {
		c, err := domain.NewCourier(item.CourierID, item.Name, item.IsPartner, item.MaxCapacity)
		if err != nil {
			return nil, fmt.Errorf("seed couriers: item at index %d: %w", i+1, err)
		}
		if _, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("seed couriers: item at index %d: duplicate courier_id %q", i+1, c.ID)
		}
		seen[c.ID] = struct{}{}
		if item.IsActive != nil {
			c.IsActive = *item.IsActive
		}
		out = append(out, c)
	}
	return out, nil
}

// Populate the couriers table from a JSON roster. Existing rows are updated.
func SeedCouriersFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	couriers, err := ReadCourierSeed(jsonPath)
	if err != nil {
		return 0, err
	}
	if err := NewPostgresCourierRepository(db).Upsert(ctx, couriers); err != nil {
		return 0, fmt.Errorf("seed couriers: %w", err)
	}
	return len(couriers), nil
}
