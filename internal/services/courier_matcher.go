package services

import (
	"cmp"
	"slices"

	"last-mile-planner/internal/domain"
)

type Assignment struct {
	RouteID   int
	CourierID string
}

// MatchCouriers pairs unassigned routes with free, active couriers.
//
// The heaviest route takes the roomiest courier that can carry it, so large
// territories are not stranded behind small-capacity couriers. Unlimited
// capacity (zero) counts as the roomiest. Ties fall back to route id and
// courier id for a deterministic result. This is a greedy shortcut, not an
// optimal matching; if a route fits no remaining courier the match fails fast.
func MatchCouriers(routes []*domain.Route, couriers []domain.Courier, busy map[string]bool) ([]Assignment, error) {
	open := make([]*domain.Route, 0, len(routes))
	for _, r := range routes {
		if !r.IsAssigned() {
			open = append(open, r)
		}
	}

	free := make([]domain.Courier, 0, len(couriers))
	for _, c := range couriers {
		if c.IsActive && !busy[c.ID] {
			free = append(free, c)
		}
	}

	if len(open) > len(free) {
		return nil, domain.Errorf(domain.CodeCapacityExceeded,
			"match couriers: %d routes need a courier but only %d are free", len(open), len(free))
	}

	slices.SortFunc(open, func(a, b *domain.Route) int {
		if c := cmp.Compare(b.PackageCount(), a.PackageCount()); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	slices.SortFunc(free, func(a, b domain.Courier) int {
		if c := cmp.Compare(capacityRank(b), capacityRank(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	taken := make([]bool, len(free))
	out := make([]Assignment, 0, len(open))
	for _, r := range open {
		pick := -1
		for ci, c := range free {
			if !taken[ci] && c.CanCarry(r.PackageCount()) {
				pick = ci
				break
			}
		}
		if pick < 0 {
			return nil, domain.Errorf(domain.CodeCapacityExceeded,
				"match couriers: no free courier can carry route %d (%d packages)", r.ID, r.PackageCount())
		}
		taken[pick] = true
		out = append(out, Assignment{RouteID: r.ID, CourierID: free[pick].ID})
	}

	slices.SortFunc(out, func(a, b Assignment) int { return cmp.Compare(a.RouteID, b.RouteID) })
	return out, nil
}

func capacityRank(c domain.Courier) int {
	if c.MaxCapacity == 0 {
		return int(^uint(0) >> 1)
	}
	return c.MaxCapacity
}
