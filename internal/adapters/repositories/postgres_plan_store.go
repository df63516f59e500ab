package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/platform/obs"
)

// PostgresPlanStore keeps the latest snapshot of each session as JSONB.
type PostgresPlanStore struct{ DB *sql.DB }

func NewPostgresPlanStore(db *sql.DB) *PostgresPlanStore {
	return &PostgresPlanStore{DB: db}
}

func (s *PostgresPlanStore) SavePlan(ctx context.Context, sessionID string, snapshot []byte) (err error) {
	defer obs.Time(ctx, "plans.Save")(&err)

	if s.DB == nil {
		return errors.New("postgres plan store: DB is nil")
	}
	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO plans (session_id, snapshot, updated_at)
	VALUES ($1, $2::jsonb, now())
	ON CONFLICT (session_id) DO UPDATE
	SET snapshot = EXCLUDED.snapshot,
		updated_at = EXCLUDED.updated_at;
	`, sessionID, string(snapshot))
	if err != nil {
		return fmt.Errorf("save plan %q: %w", sessionID, err)
	}
	return nil
}

// LoadPlan returns the stored snapshot, or a NotFound error.
func (s *PostgresPlanStore) LoadPlan(ctx context.Context, sessionID string) (_ []byte, err error) {
	defer obs.Time(ctx, "plans.Load")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres plan store: DB is nil")
	}
	var snapshot string
	err = s.DB.QueryRowContext(ctx, `SELECT snapshot::text FROM plans WHERE session_id = $1;`, sessionID).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Errorf(domain.CodeNotFound, "plan %q is not stored", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %q: %w", sessionID, err)
	}
	return []byte(snapshot), nil
}
