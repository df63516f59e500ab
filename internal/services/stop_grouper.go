package services

import (
	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/geo"
)

// StopGroupRadiusMeters is the distance under which two points without a
// stop id are treated as the same physical arrival.
const StopGroupRadiusMeters = 20.0

type stopKey struct {
	batchID string
	stopID  int
}

// StopGrouper collapses co-located packages into StopGroups.
//
// Groups are numbered densely in first-appearance order. A grouper keeps its
// counter across calls so ids stay unique when grouping runs once per cluster.
type StopGrouper struct {
	next int
}

func NewStopGrouper() *StopGrouper {
	return &StopGrouper{next: 1}
}

// Group merges points sharing (batch_id, stop_id); points without a stop id join the
// first earlier group whose anchor lies within StopGroupRadiusMeters. Every point
// must carry coordinates.
func (g *StopGrouper) Group(points []domain.DeliveryPoint) []domain.StopGroup {
	groups := make([]domain.StopGroup, 0, len(points))
	byKey := make(map[stopKey]int)

	for _, p := range points {
		if p.StopID != nil {
			k := stopKey{batchID: p.BatchID, stopID: *p.StopID}
			if gi, ok := byKey[k]; ok {
				groups[gi].Packages = append(groups[gi].Packages, p)
				continue
			}
			byKey[k] = len(groups)
			groups = append(groups, g.open(p))
			continue
		}

		joined := false
		for gi := range groups {
			if geo.HaversineMeters(groups[gi].Coords, p.Coordinates()) <= StopGroupRadiusMeters {
				groups[gi].Packages = append(groups[gi].Packages, p)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, g.open(p))
		}
	}
	return groups
}

func (g *StopGrouper) open(anchor domain.DeliveryPoint) domain.StopGroup {
	s := domain.StopGroup{
		StopID:   g.next,
		Coords:   anchor.Coordinates(),
		Packages: []domain.DeliveryPoint{anchor},
	}
	g.next++
	return s
}

// Singletons wraps each point in its own StopGroup, numbered like Group would.
func (g *StopGrouper) Singletons(points []domain.DeliveryPoint) []domain.StopGroup {
	out := make([]domain.StopGroup, 0, len(points))
	for _, p := range points {
		out = append(out, g.open(p))
	}
	return out
}
