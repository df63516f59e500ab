package services

import (
	"context"
	"fmt"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/geo"
)

// TravelModel holds the two-wheel travel constants behind time estimates.
type TravelModel struct {
	SpeedKmh              float64 `yaml:"speed_kmh"`
	TrafficFactor         float64 `yaml:"traffic_factor"`
	MaxShortcutBonus      float64 `yaml:"max_shortcut_bonus"`
	ShortcutKm            float64 `yaml:"shortcut_km"`
	ServiceMinutesPerStop float64 `yaml:"service_minutes_per_stop"`
	ImprovementEpsilonKm  float64 `yaml:"improvement_epsilon_km"`
	ExactLimit            int     `yaml:"exact_limit"`
}

func DefaultTravelModel() TravelModel {
	return TravelModel{
		SpeedKmh:              25,
		TrafficFactor:         0.85,
		MaxShortcutBonus:      0.15,
		ShortcutKm:            0.5,
		ServiceMinutesPerStop: 3,
		ImprovementEpsilonKm:  0.01,
		ExactLimit:            8,
	}
}

func (m TravelModel) Validate() error {
	switch {
	case m.SpeedKmh <= 0:
		return fmt.Errorf("travel model: speed_kmh must be > 0")
	case m.TrafficFactor <= 0:
		return fmt.Errorf("travel model: traffic_factor must be > 0")
	case m.MaxShortcutBonus < 0 || m.MaxShortcutBonus >= 1:
		return fmt.Errorf("travel model: max_shortcut_bonus must be in [0, 1)")
	case m.ShortcutKm < 0:
		return fmt.Errorf("travel model: shortcut_km must be >= 0")
	case m.ServiceMinutesPerStop < 0:
		return fmt.Errorf("travel model: service_minutes_per_stop must be >= 0")
	case m.ImprovementEpsilonKm < 0:
		return fmt.Errorf("travel model: improvement_epsilon_km must be >= 0")
	case m.ExactLimit < 0 || m.ExactLimit > 10:
		return fmt.Errorf("travel model: exact_limit must be in [0, 10]")
	}
	return nil
}

type OptimizedRoute struct {
	Stops            []domain.StopGroup
	DistanceKm       float64
	EstimatedMinutes float64
	Shortcuts        int
}

// Order a cluster's stops into a closed tour depot -> stops -> depot.
//
// Up to model.ExactLimit stops every permutation is tried; beyond that a greedy
// nearest-neighbor tour is improved with 2-opt. Ties resolve to the lowest input index.
func OptimizeRoute(
	ctx context.Context,
	stops []domain.StopGroup,
	depot domain.Coordinates,
	model TravelModel,
) (OptimizedRoute, error) {
	if len(stops) == 0 {
		return OptimizedRoute{}, domain.Errorf(domain.CodeEmptyCluster, "optimize route: cluster has no stops")
	}
	if err := ctx.Err(); err != nil {
		return OptimizedRoute{}, fmt.Errorf("optimize route: %w", err)
	}

	dm := newDistanceMatrix(stops, depot)

	var order []int
	if len(stops) <= model.ExactLimit {
		order = dm.exactOrder()
	} else {
		order = dm.nearestNeighborOrder()
		order = dm.improveTwoOpt(order, model.ImprovementEpsilonKm)
	}

	ordered := make([]domain.StopGroup, len(order))
	for pos, idx := range order {
		ordered[pos] = stops[idx]
	}

	dist := dm.tourKm(order)
	shortcuts := dm.shortcuts(order, model.ShortcutKm)
	return OptimizedRoute{
		Stops:            ordered,
		DistanceKm:       dist,
		EstimatedMinutes: model.EstimateMinutes(dist, shortcuts, len(order)+1, len(order)),
		Shortcuts:        shortcuts,
	}, nil
}

// EstimateMinutes applies the two-wheel time model to a tour.
//
// The shortcut bonus scales with the share of legs that are shortcuts and never
// exceeds MaxShortcutBonus of the travel time.
func (m TravelModel) EstimateMinutes(distanceKm float64, shortcuts, legs, stops int) float64 {
	travel := distanceKm / m.SpeedKmh * 60 * m.TrafficFactor
	bonus := 0.0
	if legs > 0 && shortcuts > 0 {
		bonus = travel * m.MaxShortcutBonus * float64(shortcuts) / float64(legs)
	}
	return travel - bonus + m.ServiceMinutesPerStop*float64(stops)
}

// TourKm is the closed-tour distance of stops visited in the given order.
func TourKm(stops []domain.StopGroup, depot domain.Coordinates) float64 {
	if len(stops) == 0 {
		return 0
	}
	total := geo.HaversineKm(depot, stops[0].Coords)
	for i := 1; i < len(stops); i++ {
		total += geo.HaversineKm(stops[i-1].Coords, stops[i].Coords)
	}
	return total + geo.HaversineKm(stops[len(stops)-1].Coords, depot)
}

// distanceMatrix holds pairwise haversine km; index 0 is the depot, stop i is i+1.
type distanceMatrix struct {
	n int
	d [][]float64
}

func newDistanceMatrix(stops []domain.StopGroup, depot domain.Coordinates) distanceMatrix {
	nodes := make([]domain.Coordinates, 0, len(stops)+1)
	nodes = append(nodes, depot)
	for _, s := range stops {
		nodes = append(nodes, s.Coords)
	}
	d := make([][]float64, len(nodes))
	for i := range nodes {
		d[i] = make([]float64, len(nodes))
		for j := 0; j < i; j++ {
			d[i][j] = geo.HaversineKm(nodes[i], nodes[j])
			d[j][i] = d[i][j]
		}
	}
	return distanceMatrix{n: len(stops), d: d}
}

// Distance from stop a to stop b; -1 denotes the depot.
func (m distanceMatrix) at(a, b int) float64 { return m.d[a+1][b+1] }

func (m distanceMatrix) tourKm(order []int) float64 {
	if len(order) == 0 {
		return 0
	}
	total := m.at(-1, order[0])
	for i := 1; i < len(order); i++ {
		total += m.at(order[i-1], order[i])
	}
	return total + m.at(order[len(order)-1], -1)
}

func (m distanceMatrix) shortcuts(order []int, thresholdKm float64) int {
	n := 0
	prev := -1
	for _, idx := range append(append([]int(nil), order...), -1) {
		if m.at(prev, idx) < thresholdKm {
			n++
		}
		prev = idx
	}
	return n
}

// Greedy construction from the depot: always visit the nearest unvisited stop.
func (m distanceMatrix) nearestNeighborOrder() []int {
	visited := make([]bool, m.n)
	order := make([]int, 0, m.n)
	cur := -1
	for len(order) < m.n {
		next := -1
		for i := 0; i < m.n; i++ {
			if visited[i] {
				continue
			}
			// Tie-breaker: the lowest input index wins.
			if next == -1 || m.at(cur, i) < m.at(cur, next) {
				next = i
			}
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}
	return order
}

// Reverse order[i..j] whenever it shortens the closed tour by more than eps,
// first improvement first, until a full scan finds nothing.
func (m distanceMatrix) improveTwoOpt(order []int, eps float64) []int {
	best := append([]int(nil), order...)
	n := len(best)
	for improved := true; improved; {
		improved = false
		for i := 0; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				prev, next := -1, -1
				if i > 0 {
					prev = best[i-1]
				}
				if j < n-1 {
					next = best[j+1]
				}
				delta := m.at(prev, best[j]) + m.at(best[i], next) -
					m.at(prev, best[i]) - m.at(best[j], next)
				if delta < -eps {
					reverse(best, i, j)
					improved = true
				}
			}
		}
	}
	return best
}

func reverse(order []int, i, j int) {
	for ; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
}

// Exhaustive search over permutations in lexicographic order. Only a strictly
// shorter tour replaces the incumbent, so ties keep the earliest permutation.
func (m distanceMatrix) exactOrder() []int {
	perm := make([]int, m.n)
	for i := range perm {
		perm[i] = i
	}
	best := append([]int(nil), perm...)
	bestDist := m.tourKm(perm)
	for nextPermutation(perm) {
		if d := m.tourKm(perm); d < bestDist-1e-12 {
			bestDist = d
			copy(best, perm)
		}
	}
	return best
}

func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	reverse(p, i+1, len(p)-1)
	return true
}

// NearestNeighborOrder returns the greedy visiting order of stops from depot.
func NearestNeighborOrder(stops []domain.StopGroup, depot domain.Coordinates) []int {
	return newDistanceMatrix(stops, depot).nearestNeighborOrder()
}

// ImproveTwoOpt applies 2-opt to order; the result is never longer than the input.
func ImproveTwoOpt(stops []domain.StopGroup, depot domain.Coordinates, order []int, epsKm float64) []int {
	return newDistanceMatrix(stops, depot).improveTwoOpt(order, epsKm)
}

// OrderedTourKm is the closed-tour distance of stops visited in order.
func OrderedTourKm(stops []domain.StopGroup, depot domain.Coordinates, order []int) float64 {
	return newDistanceMatrix(stops, depot).tourKm(order)
}
