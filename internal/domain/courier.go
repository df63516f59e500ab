package domain

import (
	"strings"
	"time"
)

// Courier is a long-lived delivery rider shared across sessions.
// Partners carry zero per-package cost downstream; routing ignores the flag.
type Courier struct {
	ID          string
	Name        string
	IsPartner   bool
	MaxCapacity int
	IsActive    bool
	Stats       CourierStats
}

// CourierStats are running counters updated as packages are delivered or fail.
type CourierStats struct {
	TotalDeliveries    int
	FailedDeliveries   int
	SuccessRate        float64
	AvgDeliveryMinutes float64
	TimedDeliveries    int
}

// NewCourier validates intake fields. New couriers start active.
func NewCourier(id, name string, isPartner bool, maxCapacity int) (Courier, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Courier{}, Errorf(CodeInvalidArgument, "courier id must not be empty")
	}
	if maxCapacity < 0 {
		return Courier{}, Errorf(CodeInvalidArgument, "courier %q: max capacity must be >= 0", id)
	}
	return Courier{
		ID:          id,
		Name:        strings.TrimSpace(name),
		IsPartner:   isPartner,
		MaxCapacity: maxCapacity,
		IsActive:    true,
	}, nil
}

// CanCarry reports whether n packages fit. Zero capacity means unlimited.
func (c Courier) CanCarry(n int) bool {
	return c.MaxCapacity == 0 || n <= c.MaxCapacity
}

// Record folds one delivery attempt into the running counters.
// elapsed is the time since the courier's previous attempt; zero skips the average.
func (s *CourierStats) Record(success bool, elapsed time.Duration) {
	attempts := s.TotalDeliveries + s.FailedDeliveries
	if success {
		if elapsed > 0 {
			mins := elapsed.Minutes()
			s.AvgDeliveryMinutes = (s.AvgDeliveryMinutes*float64(s.TimedDeliveries) + mins) / float64(s.TimedDeliveries+1)
			s.TimedDeliveries++
		}
		s.TotalDeliveries++
	} else {
		s.FailedDeliveries++
	}
	s.SuccessRate = float64(s.TotalDeliveries) / float64(attempts+1)
}
