package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/ports"
)

// CourierRegistry is the process-wide courier roster shared by all sessions.
// Readers proceed concurrently; writes and counter updates take the exclusive lock.
type CourierRegistry struct {
	mu       sync.RWMutex
	couriers map[string]*domain.Courier
}

func NewCourierRegistry() *CourierRegistry {
	return &CourierRegistry{couriers: make(map[string]*domain.Courier)}
}

// Add registers a new courier. Ids are unique.
func (r *CourierRegistry) Add(c domain.Courier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.couriers[c.ID]; ok {
		return domain.Errorf(domain.CodeDuplicateCourier, "courier %q already registered", c.ID)
	}
	r.couriers[c.ID] = &c
	return nil
}

// Load merges the repository roster into the registry. Couriers already known
// keep their running counters.
func (r *CourierRegistry) Load(ctx context.Context, repo ports.CourierRepository) (int, error) {
	list, err := repo.ListCouriers(ctx)
	if err != nil {
		return 0, fmt.Errorf("courier registry: load: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range list {
		if cur, ok := r.couriers[c.ID]; ok {
			c.Stats = cur.Stats
		}
		r.couriers[c.ID] = &c
	}
	return len(list), nil
}

func (r *CourierRegistry) Get(id string) (domain.Courier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.couriers[strings.TrimSpace(id)]
	if !ok {
		return domain.Courier{}, domain.Errorf(domain.CodeUnknownCourier, "courier %q is not registered", id)
	}
	return *c, nil
}

// List returns a copy of every courier ordered by id.
func (r *CourierRegistry) List() []domain.Courier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Courier, 0, len(r.couriers))
	for _, c := range r.couriers {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b domain.Courier) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (r *CourierRegistry) SetActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.couriers[id]
	if !ok {
		return domain.Errorf(domain.CodeUnknownCourier, "courier %q is not registered", id)
	}
	c.IsActive = active
	return nil
}

// RecordAttempt folds one delivery attempt into the courier's counters.
func (r *CourierRegistry) RecordAttempt(id string, success bool, elapsed time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.couriers[id]
	if !ok {
		return domain.Errorf(domain.CodeUnknownCourier, "courier %q is not registered", id)
	}
	c.Stats.Record(success, elapsed)
	return nil
}
