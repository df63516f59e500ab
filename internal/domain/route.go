package domain

import "time"

// Route is a courier's ordered tour of stops, depot to depot.
// Stops are frozen once a courier is assigned; Delivered only grows.
type Route struct {
	ID               int
	ClusterID        int
	Center           Coordinates
	CourierID        string
	CourierName      string
	Color            Color
	Stops            []StopGroup
	DistanceKm       float64
	EstimatedMinutes float64
	Shortcuts        int
	Analysis         RouteAnalysis
	AssignedAt       *time.Time
	Delivered        map[string]time.Time
	Failed           map[string]string
}

// IsAssigned reports whether a courier holds the route.
func (r *Route) IsAssigned() bool { return r.CourierID != "" }

// PackageCount sums the packages over all stops.
func (r *Route) PackageCount() int {
	n := 0
	for _, s := range r.Stops {
		n += s.Count()
	}
	return n
}

// HasPackage reports whether id is dropped at one of the route's stops.
func (r *Route) HasPackage(id string) bool {
	for _, s := range r.Stops {
		for _, p := range s.Packages {
			if p.PackageID == id {
				return true
			}
		}
	}
	return false
}

// DeliveredCount is the number of distinct delivered packages.
func (r *Route) DeliveredCount() int { return len(r.Delivered) }

// PendingCount is the number of packages still to deliver.
func (r *Route) PendingCount() int { return r.PackageCount() - len(r.Delivered) }

// CompletionRate is delivered/total, zero for an empty route.
func (r *Route) CompletionRate() float64 {
	total := r.PackageCount()
	if total == 0 {
		return 0
	}
	return float64(len(r.Delivered)) / float64(total)
}

// IsComplete reports whether every package on the route has been delivered.
func (r *Route) IsComplete() bool {
	return r.PackageCount() > 0 && len(r.Delivered) == r.PackageCount()
}

// RouteAnalysis is the derived quality report of a route.
type RouteAnalysis struct {
	PackageCount        int
	UniqueStops         int
	UniqueNeighborhoods int
	TotalDistanceKm     float64
	CoverageAreaKm2     float64
	Density             float64
	ConcentrationScore  float64
	DensityScore        float64
	DistanceScore       float64
	OverallScore        float64
	Recommendation      string
	Pros                []string
	Cons                []string
	Earnings            *EarningsMetrics
}

// EarningsMetrics is reported when per-package or per-km rates are known.
type EarningsMetrics struct {
	Gross      float64
	PerHour    float64
	PerKm      float64
	PerPackage float64
}
