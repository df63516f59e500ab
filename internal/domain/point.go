package domain

import (
	"fmt"
	"strings"
)

// Priority is the delivery urgency carried with a package.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority accepts the four priority names case-insensitively; empty means normal.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return p, nil
	default:
		return "", Errorf(CodeInvalidArgument, "unknown priority %q", s)
	}
}

// DeliveryPoint is a single package destined for one address.
// Coords is nil until the point is geocoded.
type DeliveryPoint struct {
	PackageID string
	Address   string
	Coords    *Coordinates
	Priority  Priority
	StopID    *int
	BatchID   string
}

// HasCoords reports whether the point can take part in planning.
func (p DeliveryPoint) HasCoords() bool { return p.Coords != nil }

// Coordinates returns the point location. It must only be called when HasCoords is true.
func (p DeliveryPoint) Coordinates() Coordinates { return *p.Coords }

// PointInput is the format-agnostic intake record of an imported batch.
type PointInput struct {
	PackageID string
	Address   string
	Lat       *float64
	Lng       *float64
	Priority  string
	StopID    *int
}

// NewDeliveryPoint validates one intake record for the given batch.
func NewDeliveryPoint(batchID string, in PointInput) (DeliveryPoint, error) {
	id := strings.TrimSpace(in.PackageID)
	if id == "" {
		return DeliveryPoint{}, Errorf(CodeInvalidArgument, "package id must not be empty")
	}

	prio, err := ParsePriority(in.Priority)
	if err != nil {
		return DeliveryPoint{}, fmt.Errorf("package %q: %w", id, err)
	}

	p := DeliveryPoint{
		PackageID: id,
		Address:   strings.TrimSpace(in.Address),
		Priority:  prio,
		BatchID:   batchID,
	}
	if in.StopID != nil {
		s := *in.StopID
		p.StopID = &s
	}

	switch {
	case in.Lat != nil && in.Lng != nil:
		c, err := NewCoordinates(*in.Lat, *in.Lng)
		if err != nil {
			return DeliveryPoint{}, fmt.Errorf("package %q: %w", id, err)
		}
		p.Coords = &c
	case in.Lat != nil || in.Lng != nil:
		return DeliveryPoint{}, Errorf(CodeInvalidArgument, "package %q: lat and lng must be given together", id)
	case p.Address == "":
		return DeliveryPoint{}, Errorf(CodeInvalidArgument, "package %q: needs coordinates or an address", id)
	}

	return p, nil
}
