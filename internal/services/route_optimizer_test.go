package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/geo"
)

func randomStops(rng *rand.Rand, n int) []domain.StopGroup {
	stops := make([]domain.StopGroup, n)
	for i := range stops {
		c := domain.Coordinates{Lat: -23.60 + rng.Float64()*0.1, Lng: -46.70 + rng.Float64()*0.1}
		stops[i] = domain.StopGroup{
			StopID:   i + 1,
			Coords:   c,
			Packages: []domain.DeliveryPoint{{PackageID: "P", Coords: &c}},
		}
	}
	return stops
}

// bruteForceKm tries every permutation recursively.
func bruteForceKm(stops []domain.StopGroup, depot domain.Coordinates) float64 {
	best := math.Inf(1)
	used := make([]bool, len(stops))
	var walk func(prev domain.Coordinates, depth int, acc float64)
	walk = func(prev domain.Coordinates, depth int, acc float64) {
		if depth == len(stops) {
			best = math.Min(best, acc+geo.HaversineKm(prev, depot))
			return
		}
		for i, s := range stops {
			if used[i] {
				continue
			}
			used[i] = true
			walk(s.Coords, depth+1, acc+geo.HaversineKm(prev, s.Coords))
			used[i] = false
		}
	}
	walk(depot, 0, 0)
	return best
}

func TestOptimizeRouteSmallRoutesAreOptimal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	model := DefaultTravelModel()

	for n := 1; n <= 8; n++ {
		for trial := 0; trial < 3; trial++ {
			stops := randomStops(rng, n)

			got, err := OptimizeRoute(context.Background(), stops, s1Depot, model)
			if err != nil {
				t.Fatalf("n=%d: unexpected error: %v", n, err)
			}
			want := bruteForceKm(stops, s1Depot)
			if math.Abs(got.DistanceKm-want) > 1e-9 {
				t.Fatalf("n=%d trial=%d: distance %.6f, optimum %.6f", n, trial, got.DistanceKm, want)
			}
			if len(got.Stops) != n {
				t.Fatalf("n=%d: got %d stops back", n, len(got.Stops))
			}
		}
	}
}

func TestOptimizeRouteBalancedSplitToursAreOptimal(t *testing.T) {
	routes, err := PlanDeliveries(context.Background(), PlanDeliveriesRequest{
		Depot:              s1Depot,
		K:                  2,
		EnableStopGrouping: true,
		Model:              DefaultTravelModel(),
	}, s1Points())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wants := []float64{13.357, 20.331}
	for i, r := range routes {
		if math.Abs(r.DistanceKm-wants[i]) > 0.05 {
			t.Fatalf("route %d distance = %.3f, want %.3f", r.ID, r.DistanceKm, wants[i])
		}
		if opt := bruteForceKm(r.Stops, s1Depot); math.Abs(r.DistanceKm-opt) > 1e-9 {
			t.Fatalf("route %d distance %.6f is not the optimum %.6f", r.ID, r.DistanceKm, opt)
		}
	}
}

func TestTwoOptNeverWorseThanNearestNeighbor(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 20; trial++ {
		stops := randomStops(rng, 12+rng.Intn(30))

		nn := NearestNeighborOrder(stops, s1Depot)
		improved := ImproveTwoOpt(stops, s1Depot, nn, 0.01)

		nnKm := OrderedTourKm(stops, s1Depot, nn)
		optKm := OrderedTourKm(stops, s1Depot, improved)
		if optKm > nnKm+1e-9 {
			t.Fatalf("trial %d: 2-opt %.4f km worse than nearest neighbor %.4f km", trial, optKm, nnKm)
		}
		if len(improved) != len(nn) {
			t.Fatalf("trial %d: 2-opt dropped stops", trial)
		}
	}
}

func TestNearestNeighborPrefersLowestIndexOnTies(t *testing.T) {
	c := domain.Coordinates{Lat: -23.56, Lng: -46.65}
	stops := []domain.StopGroup{
		{StopID: 1, Coords: c},
		{StopID: 2, Coords: c},
		{StopID: 3, Coords: c},
	}
	if got := NearestNeighborOrder(stops, s1Depot); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("order = %v, want [0 1 2]", got)
	}
}

func TestOptimizeRouteIsPure(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	stops := randomStops(rng, 25)
	clone := append([]domain.StopGroup(nil), stops...)

	a, err := OptimizeRoute(context.Background(), stops, s1Depot, DefaultTravelModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := OptimizeRoute(context.Background(), clone, s1Depot, DefaultTravelModel())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two runs on identical input differ")
	}
	if !reflect.DeepEqual(stops, clone) {
		t.Fatalf("input stops were mutated")
	}
}

func TestOptimizeRouteEmptyCluster(t *testing.T) {
	_, err := OptimizeRoute(context.Background(), nil, s1Depot, DefaultTravelModel())
	if !errors.Is(err, domain.ErrEmptyCluster) {
		t.Fatalf("expected ErrEmptyCluster, got %v", err)
	}
}

func TestOptimizeRouteGroupedStopsServiceTime(t *testing.T) {
	base := []domain.Coordinates{
		{Lat: -23.5550, Lng: -46.6400},
		{Lat: -23.5580, Lng: -46.6450},
		{Lat: -23.5610, Lng: -46.6500},
		{Lat: -23.5640, Lng: -46.6550},
		{Lat: -23.5670, Lng: -46.6600},
	}
	var points []domain.DeliveryPoint
	for i, c := range base {
		points = append(points,
			point(string(rune('A'+i))+"1", c.Lat, c.Lng),
			point(string(rune('A'+i))+"2", c.Lat, c.Lng),
		)
	}
	stops := NewStopGrouper().Group(points)
	if len(stops) != 5 {
		t.Fatalf("expected 5 stop groups, got %d", len(stops))
	}

	with := DefaultTravelModel()
	without := with
	without.ServiceMinutesPerStop = 0

	a, err := OptimizeRoute(context.Background(), stops, s1Depot, with)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := OptimizeRoute(context.Background(), stops, s1Depot, without)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := a.EstimatedMinutes - b.EstimatedMinutes; math.Abs(diff-15) > 1e-9 {
		t.Fatalf("service time = %.3f minutes, want 15", diff)
	}
}

func TestEstimateMinutes(t *testing.T) {
	m := DefaultTravelModel()

	// 10 km at 25 km/h is 24 minutes, times 0.85 traffic.
	if got := m.EstimateMinutes(10, 0, 4, 0); math.Abs(got-20.4) > 1e-9 {
		t.Fatalf("no shortcuts: got %.4f, want 20.4", got)
	}
	// Every leg a shortcut takes the full 15% off travel time.
	if got := m.EstimateMinutes(10, 4, 4, 0); math.Abs(got-20.4*0.85) > 1e-9 {
		t.Fatalf("all shortcuts: got %.4f, want %.4f", got, 20.4*0.85)
	}
	if got := m.EstimateMinutes(10, 2, 4, 3); math.Abs(got-(20.4-20.4*0.075+9)) > 1e-9 {
		t.Fatalf("half shortcuts: got %.4f", got)
	}
}

func TestTravelModelValidate(t *testing.T) {
	if err := DefaultTravelModel().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := DefaultTravelModel()
	bad.SpeedKmh = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for zero speed")
	}
	bad = DefaultTravelModel()
	bad.MaxShortcutBonus = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for bonus above 1")
	}
}
