package domain

import "time"

// EventKind names a progress event.
type EventKind string

const (
	EventAssigned     EventKind = "assigned"
	EventDelivered    EventKind = "delivered"
	EventFailed       EventKind = "failed"
	EventCompleted    EventKind = "completed"
	EventStateChanged EventKind = "state_changed"
)

// ProgressEvent is the observable record of a session transition or delivery mark.
// SequenceNo is session-local and strictly increasing.
type ProgressEvent struct {
	SessionID  string       `json:"session_id"`
	RouteID    int          `json:"route_id,omitempty"`
	Event      EventKind    `json:"event"`
	PackageID  string       `json:"package_id,omitempty"`
	CourierID  string       `json:"courier_id,omitempty"`
	State      SessionState `json:"state,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	SequenceNo uint64       `json:"sequence_no"`
	Timestamp  time.Time    `json:"timestamp"`
}
