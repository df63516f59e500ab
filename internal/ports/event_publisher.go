package ports

import (
	"context"
	"last-mile-planner/internal/domain"
)

// Port: the sink of a session's progress event stream.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.ProgressEvent) error
}
