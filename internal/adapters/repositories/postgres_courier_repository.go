package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/platform/obs"
)

// Postgres-backed implementation of the CourierRepository port.
type PostgresCourierRepository struct{ DB *sql.DB }

func NewPostgresCourierRepository(db *sql.DB) *PostgresCourierRepository {
	return &PostgresCourierRepository{DB: db}
}

// Return every courier, ordered by id. Running counters are not stored.
func (r *PostgresCourierRepository) ListCouriers(ctx context.Context) (_ []domain.Courier, err error) {
	defer obs.Time(ctx, "couriers.List")(&err)

	if r.DB == nil {
		return nil, errors.New("postgres courier repository: DB is nil")
	}

	query := `
	SELECT
		courier_id,
		name,
		is_partner,
		max_capacity,
		is_active
	FROM couriers
	ORDER BY courier_id;
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list couriers: query couriers table: %w", err)
	}
	defer rows.Close()

	couriers := make([]domain.Courier, 0, 16)
	for rows.Next() {
		var c domain.Courier
		if err := rows.Scan(&c.ID, &c.Name, &c.IsPartner, &c.MaxCapacity, &c.IsActive); err != nil {
			return nil, fmt.Errorf("list couriers: scan row: %w", err)
		}
		couriers = append(couriers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list couriers: row iteration: %w", err)
	}

	return couriers, nil
}

// Upsert inserts or updates the given couriers in one transaction.
func (r *PostgresCourierRepository) Upsert(ctx context.Context, couriers []domain.Courier) error {
	if r.DB == nil {
		return errors.New("postgres courier repository: DB is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert couriers: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO couriers (courier_id, name, is_partner, max_capacity, is_active)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (courier_id) DO UPDATE
	SET name = EXCLUDED.name,
		is_partner = EXCLUDED.is_partner,
		max_capacity = EXCLUDED.max_capacity,
		is_active = EXCLUDED.is_active;
	`)
	if err != nil {
		return fmt.Errorf("upsert couriers: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range couriers {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.IsPartner, c.MaxCapacity, c.IsActive); err != nil {
			return fmt.Errorf("upsert couriers: insert courier_id=%q: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert couriers: commit tx: %w", err)
	}
	return nil
}
