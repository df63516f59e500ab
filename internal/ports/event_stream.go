package ports

import (
	"context"

	"last-mile-planner/internal/domain"
)

// Port: live subscriptions to a session's progress events.
type EventStream interface {
	// Subscribe returns a channel of events published after the call.
	Subscribe(ctx context.Context, sessionID string) (<-chan domain.ProgressEvent, error)
	// Unsubscribe ends the subscription; the channel is closed.
	Unsubscribe(sessionID string, ch <-chan domain.ProgressEvent)
}
