package ports

import "context"

// Port: durable snapshots of planned sessions, stored as serialized JSON.
type PlanStore interface {
	SavePlan(ctx context.Context, sessionID string, snapshot []byte) error
	LoadPlan(ctx context.Context, sessionID string) ([]byte, error)
}
