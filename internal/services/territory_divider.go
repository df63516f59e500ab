package services

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/geo"
)

// DefaultMaxIterations bounds Lloyd iteration.
const DefaultMaxIterations = 50

type DivideOptions struct {
	K             int
	MaxIterations int

	// RandomizedSeeding switches from farthest-point seeding to D²-weighted
	// sampling driven by Seed. The same seed always yields the same clusters.
	RandomizedSeeding bool
	Seed              int64
}

// Divide stops into at most K territories around the depot.
//
// Output clusters are sorted by centroid distance from the depot and numbered
// 0..K'-1, so cluster 0 is the closest. Members keep their input order.
// The result depends only on (stops, depot, opts).
func DivideTerritories(
	ctx context.Context,
	stops []domain.StopGroup,
	depot domain.Coordinates,
	opts DivideOptions,
) ([]domain.Cluster, error) {
	if opts.K <= 0 {
		return nil, domain.Errorf(domain.CodeInvalidK, "divide territories: k must be >= 1, got %d", opts.K)
	}
	if len(stops) == 0 {
		return nil, domain.Errorf(domain.CodeEmptyInput, "divide territories: no stops to divide")
	}

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	// Fewer stops than territories: every stop is its own cluster.
	if len(stops) <= opts.K {
		clusters := make([]domain.Cluster, 0, len(stops))
		for _, s := range stops {
			clusters = append(clusters, domain.Cluster{
				Center: s.Coords,
				Stops:  []domain.StopGroup{s},
			})
		}
		return sortClusters(clusters, depot), nil
	}

	var centroids []domain.Coordinates
	if opts.RandomizedSeeding {
		centroids = seedRandomized(stops, opts.K, rand.New(rand.NewSource(opts.Seed)))
	} else {
		centroids = seedFarthest(stops, depot, opts.K)
	}

	assign := make([]int, len(stops))
	for it := 0; it < maxIter; it++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("divide territories: %w", err)
		}

		for i, s := range stops {
			assign[i] = nearestCentroid(s.Coords, centroids)
		}

		next := updateCentroids(stops, assign, centroids)
		if slices.Equal(next, centroids) {
			break
		}
		centroids = next
	}

	// Final assignment against the settled centroids.
	for i, s := range stops {
		assign[i] = nearestCentroid(s.Coords, centroids)
	}

	members := make([][]domain.StopGroup, len(centroids))
	for i, s := range stops {
		members[assign[i]] = append(members[assign[i]], s)
	}

	clusters := make([]domain.Cluster, 0, len(centroids))
	for ci, m := range members {
		if len(m) == 0 {
			continue
		}
		clusters = append(clusters, domain.Cluster{Center: centroids[ci], Stops: m})
	}
	return sortClusters(clusters, depot), nil
}

// First centroid is the stop farthest from the depot; each next one maximizes
// the minimum distance to the centroids chosen so far. Ties keep the lowest index.
func seedFarthest(stops []domain.StopGroup, depot domain.Coordinates, k int) []domain.Coordinates {
	chosen := make([]bool, len(stops))
	minDist := make([]float64, len(stops))

	first := 0
	best := -1.0
	for i, s := range stops {
		if d := geo.HaversineKm(depot, s.Coords); d > best {
			best = d
			first = i
		}
	}
	chosen[first] = true
	centroids := []domain.Coordinates{stops[first].Coords}
	for i, s := range stops {
		minDist[i] = geo.HaversineKm(s.Coords, stops[first].Coords)
	}

	for len(centroids) < k {
		pick := -1
		best = -1.0
		for i := range stops {
			if !chosen[i] && minDist[i] > best {
				best = minDist[i]
				pick = i
			}
		}
		chosen[pick] = true
		c := stops[pick].Coords
		centroids = append(centroids, c)
		for i, s := range stops {
			minDist[i] = math.Min(minDist[i], geo.HaversineKm(s.Coords, c))
		}
	}
	return centroids
}

// K-means++ seeding: sample the next centroid with probability proportional to
// the squared distance to the nearest chosen centroid.
func seedRandomized(stops []domain.StopGroup, k int, rng *rand.Rand) []domain.Coordinates {
	chosen := make([]bool, len(stops))
	first := rng.Intn(len(stops))
	chosen[first] = true
	centroids := []domain.Coordinates{stops[first].Coords}

	weights := make([]float64, len(stops))
	for len(centroids) < k {
		total := 0.0
		for i, s := range stops {
			if chosen[i] {
				weights[i] = 0
				continue
			}
			d := geo.HaversineKm(s.Coords, centroids[nearestCentroid(s.Coords, centroids)])
			weights[i] = d * d
			total += weights[i]
		}

		pick := -1
		if total > 0 {
			r := rng.Float64() * total
			for i, w := range weights {
				if w == 0 {
					continue
				}
				pick = i
				if r < w {
					break
				}
				r -= w
			}
		} else {
			// Every remaining stop sits on a centroid.
			for i := range stops {
				if !chosen[i] {
					pick = i
					break
				}
			}
		}
		chosen[pick] = true
		centroids = append(centroids, stops[pick].Coords)
	}
	return centroids
}

func nearestCentroid(p domain.Coordinates, centroids []domain.Coordinates) int {
	best := 0
	bestDist := math.Inf(1)
	for ci, c := range centroids {
		// Strict comparison keeps the lower index on ties.
		if d := geo.HaversineKm(p, c); d < bestDist {
			bestDist = d
			best = ci
		}
	}
	return best
}

// Empty clusters retain their prior centroid.
func updateCentroids(stops []domain.StopGroup, assign []int, prev []domain.Coordinates) []domain.Coordinates {
	sumLat := make([]float64, len(prev))
	sumLng := make([]float64, len(prev))
	counts := make([]int, len(prev))
	for i, s := range stops {
		ci := assign[i]
		sumLat[ci] += s.Coords.Lat
		sumLng[ci] += s.Coords.Lng
		counts[ci]++
	}

	next := make([]domain.Coordinates, len(prev))
	for ci := range prev {
		if counts[ci] == 0 {
			next[ci] = prev[ci]
			continue
		}
		next[ci] = domain.Coordinates{
			Lat: sumLat[ci] / float64(counts[ci]),
			Lng: sumLng[ci] / float64(counts[ci]),
		}
	}
	return next
}

func sortClusters(clusters []domain.Cluster, depot domain.Coordinates) []domain.Cluster {
	slices.SortStableFunc(clusters, func(a, b domain.Cluster) int {
		da := geo.HaversineKm(depot, a.Center)
		db := geo.HaversineKm(depot, b.Center)
		if da < db {
			return -1
		}
		if da > db {
			return 1
		}
		return 0
	})
	for i := range clusters {
		clusters[i].ID = i
	}
	return clusters
}
