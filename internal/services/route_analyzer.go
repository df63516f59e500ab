package services

import (
	"fmt"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/geo"
)

// MinCoverageAreaKm2 floors the bounding-box area so density stays finite.
const MinCoverageAreaKm2 = 0.1

// EarningsOptions enables earnings metrics when either rate is positive.
type EarningsOptions struct {
	RatePerPackage float64 `json:"rate_per_package" yaml:"rate_per_package"`
	RatePerKm      float64 `json:"rate_per_km" yaml:"rate_per_km"`
}

func (o EarningsOptions) enabled() bool { return o.RatePerPackage > 0 || o.RatePerKm > 0 }

// Grade a route. The result depends only on the route's stops, its time
// estimate, the depot and the earnings rates.
func AnalyzeRoute(route *domain.Route, depot domain.Coordinates, earnings EarningsOptions) domain.RouteAnalysis {
	coords := make([]domain.Coordinates, 0, len(route.Stops))
	neighborhoods := make(map[string]struct{})
	packages := 0
	for _, s := range route.Stops {
		coords = append(coords, s.Coords)
		packages += s.Count()
		for _, p := range s.Packages {
			if n := geo.Neighborhood(p.Address); n != "" {
				neighborhoods[n] = struct{}{}
			}
		}
	}

	area := max(geo.Bounds(coords).AreaKm2(), MinCoverageAreaKm2)
	distance := TourKm(route.Stops, depot)
	density := float64(packages) / area

	meanSpread := 0.0
	if len(coords) > 0 {
		c := geo.Centroid(coords)
		for _, p := range coords {
			meanSpread += geo.HaversineKm(p, c)
		}
		meanSpread /= float64(len(coords))
	}

	kmPerPackage := 0.0
	if packages > 0 {
		kmPerPackage = distance / float64(packages)
	}

	a := domain.RouteAnalysis{
		PackageCount:        packages,
		UniqueStops:         len(route.Stops),
		UniqueNeighborhoods: len(neighborhoods),
		TotalDistanceKm:     distance,
		CoverageAreaKm2:     area,
		Density:             density,
		ConcentrationScore:  concentrationScore(meanSpread),
		DensityScore:        densityScore(density),
		DistanceScore:       distanceScore(kmPerPackage),
	}
	a.OverallScore = 0.4*a.ConcentrationScore + 0.3*a.DensityScore + 0.3*a.DistanceScore
	a.Recommendation = recommendation(a.OverallScore)

	if earnings.enabled() {
		a.Earnings = earningsMetrics(packages, distance, route.EstimatedMinutes, earnings)
	}
	a.Pros, a.Cons = prosAndCons(a, meanSpread, kmPerPackage)
	return a
}

func concentrationScore(meanKm float64) float64 {
	switch {
	case meanKm <= 2:
		return 10
	case meanKm <= 5:
		return lerp(meanKm, 2, 5, 10, 7)
	case meanKm <= 10:
		return lerp(meanKm, 5, 10, 7, 4)
	case meanKm <= 20:
		return lerp(meanKm, 10, 20, 4, 0)
	default:
		return 0
	}
}

func densityScore(perKm2 float64) float64 {
	switch {
	case perKm2 >= 50:
		return 10
	case perKm2 >= 20:
		return lerp(perKm2, 20, 50, 7, 10)
	case perKm2 >= 10:
		return lerp(perKm2, 10, 20, 4, 7)
	default:
		return lerp(perKm2, 0, 10, 0, 4)
	}
}

func distanceScore(kmPerPackage float64) float64 {
	switch {
	case kmPerPackage <= 0.5:
		return 10
	case kmPerPackage <= 1:
		return lerp(kmPerPackage, 0.5, 1, 10, 7)
	case kmPerPackage <= 2:
		return lerp(kmPerPackage, 1, 2, 7, 4)
	case kmPerPackage <= 4:
		return lerp(kmPerPackage, 2, 4, 4, 0)
	default:
		return 0
	}
}

// lerp maps x from [x0, x1] onto [y0, y1].
func lerp(x, x0, x1, y0, y1 float64) float64 {
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

func recommendation(score float64) string {
	switch {
	case score >= 8:
		return "EXCELLENT"
	case score >= 6:
		return "GOOD"
	case score >= 4:
		return "FAIR"
	default:
		return "POOR"
	}
}

func earningsMetrics(packages int, distanceKm, minutes float64, o EarningsOptions) *domain.EarningsMetrics {
	gross := float64(packages)*o.RatePerPackage + distanceKm*o.RatePerKm
	m := &domain.EarningsMetrics{Gross: gross}
	if minutes > 0 {
		m.PerHour = gross / (minutes / 60)
	}
	if distanceKm > 0 {
		m.PerKm = gross / distanceKm
	}
	if packages > 0 {
		m.PerPackage = gross / float64(packages)
	}
	return m
}

// Predicates are evaluated in a fixed order so the lists are stable.
func prosAndCons(a domain.RouteAnalysis, meanSpreadKm, kmPerPackage float64) (pros, cons []string) {
	pros, cons = []string{}, []string{}

	switch {
	case meanSpreadKm <= 2:
		pros = append(pros, "stops are tightly concentrated")
	case meanSpreadKm > 5:
		cons = append(cons, fmt.Sprintf("stops are spread out (%.1f km from center on average)", meanSpreadKm))
	}

	switch {
	case a.Density >= 20:
		pros = append(pros, fmt.Sprintf("high density (%.1f packages/km2)", a.Density))
	case a.Density < 10:
		cons = append(cons, fmt.Sprintf("low density (%.1f packages/km2)", a.Density))
	}

	switch {
	case kmPerPackage > 0 && kmPerPackage <= 1:
		pros = append(pros, fmt.Sprintf("short distance per package (%.2f km)", kmPerPackage))
	case kmPerPackage > 2:
		cons = append(cons, fmt.Sprintf("long distance per package (%.2f km)", kmPerPackage))
	}

	if a.PackageCount > a.UniqueStops {
		pros = append(pros, fmt.Sprintf("%d packages share stops", a.PackageCount-a.UniqueStops))
	}

	switch {
	case a.UniqueNeighborhoods == 1:
		pros = append(pros, "single neighborhood")
	case a.UniqueNeighborhoods > 3:
		cons = append(cons, fmt.Sprintf("covers %d neighborhoods", a.UniqueNeighborhoods))
	}

	if a.TotalDistanceKm > 50 {
		cons = append(cons, fmt.Sprintf("long route (%.1f km)", a.TotalDistanceKm))
	}

	if e := a.Earnings; e != nil && e.PerHour > 0 {
		switch {
		case e.PerHour >= 40:
			pros = append(pros, fmt.Sprintf("good earnings per hour (%.2f)", e.PerHour))
		case e.PerHour < 20:
			cons = append(cons, fmt.Sprintf("low earnings per hour (%.2f)", e.PerHour))
		}
	}
	return pros, cons
}
