package session

import (
	"time"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/geo"
)

// PlannedSession is the wire view of a session. Coordinates carry six decimals,
// distances two, minutes and scores one, so equal plans serialize identically.
type PlannedSession struct {
	SessionID   string              `json:"session_id"`
	Date        string              `json:"date"`
	State       domain.SessionState `json:"state"`
	Depot       *DepotView          `json:"depot"`
	Routes      []RouteView         `json:"routes"`
	Ungeocoded  []string            `json:"ungeocoded"`
	IsFinalized bool                `json:"is_finalized"`
	FinalizedAt *time.Time          `json:"finalized_at,omitempty"`
}

type DepotView struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type RouteView struct {
	RouteID          int          `json:"route_id"`
	Color            string       `json:"color"`
	ColorHex         string       `json:"color_hex"`
	CourierID        string       `json:"courier_id,omitempty"`
	CourierName      string       `json:"courier_name,omitempty"`
	Stops            []StopView   `json:"stops"`
	DistanceKm       float64      `json:"distance_km"`
	EstimatedMinutes float64      `json:"estimated_minutes"`
	Shortcuts        int          `json:"shortcuts"`
	Analysis         AnalysisView `json:"analysis"`
}

type StopView struct {
	StopID   int      `json:"stop_id"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Packages []string `json:"packages"`
}

type AnalysisView struct {
	Score               float64       `json:"score"`
	Recommendation      string        `json:"recommendation"`
	Density             float64       `json:"density"`
	Concentration       float64       `json:"concentration"`
	PackageCount        int           `json:"package_count"`
	UniqueStops         int           `json:"unique_stops"`
	UniqueNeighborhoods int           `json:"unique_neighborhoods"`
	CoverageAreaKm2     float64       `json:"coverage_area_km2"`
	Pros                []string      `json:"pros"`
	Cons                []string      `json:"cons"`
	Earnings            *EarningsView `json:"earnings,omitempty"`
}

type EarningsView struct {
	Gross      float64 `json:"gross"`
	PerHour    float64 `json:"per_hour"`
	PerKm      float64 `json:"per_km"`
	PerPackage float64 `json:"per_package"`
}

func coord(v float64) float64 { return geo.Round(v, 6) }

func newRouteView(r *domain.Route) RouteView {
	stops := make([]StopView, 0, len(r.Stops))
	for _, s := range r.Stops {
		stops = append(stops, StopView{
			StopID:   s.StopID,
			Lat:      coord(s.Coords.Lat),
			Lng:      coord(s.Coords.Lng),
			Packages: s.PackageIDs(),
		})
	}

	a := r.Analysis
	av := AnalysisView{
		Score:               geo.Round(a.OverallScore, 1),
		Recommendation:      a.Recommendation,
		Density:             geo.Round(a.Density, 1),
		Concentration:       geo.Round(a.ConcentrationScore, 1),
		PackageCount:        a.PackageCount,
		UniqueStops:         a.UniqueStops,
		UniqueNeighborhoods: a.UniqueNeighborhoods,
		CoverageAreaKm2:     geo.Round(a.CoverageAreaKm2, 2),
		Pros:                a.Pros,
		Cons:                a.Cons,
	}
	if e := a.Earnings; e != nil {
		av.Earnings = &EarningsView{
			Gross:      geo.Round(e.Gross, 2),
			PerHour:    geo.Round(e.PerHour, 2),
			PerKm:      geo.Round(e.PerKm, 2),
			PerPackage: geo.Round(e.PerPackage, 2),
		}
	}

	return RouteView{
		RouteID:          r.ID,
		Color:            r.Color.Label(),
		ColorHex:         r.Color.Hex,
		CourierID:        r.CourierID,
		CourierName:      r.CourierName,
		Stops:            stops,
		DistanceKm:       geo.Round(r.DistanceKm, 2),
		EstimatedMinutes: geo.Round(r.EstimatedMinutes, 1),
		Shortcuts:        r.Shortcuts,
		Analysis:         av,
	}
}

// ScanResult answers a separator lookup.
type ScanResult struct {
	PackageID    string `json:"package_id"`
	CourierID    string `json:"courier_id"`
	CourierName  string `json:"courier_name,omitempty"`
	RouteID      int    `json:"route_id"`
	ColorName    string `json:"color_name"`
	ColorHex     string `json:"color_hex"`
	Position     int    `json:"position"`
	TotalInRoute int    `json:"total_in_route"`
	Duplicate    bool   `json:"duplicate"`
}

// DeliveryResult reports the outcome of a delivery or failure mark. Warning is
// set, and nothing changed, when the mark repeated an earlier delivery.
type DeliveryResult struct {
	RouteID        int                 `json:"route_id"`
	PackageID      string              `json:"package_id"`
	Warning        domain.Code         `json:"warning,omitempty"`
	Delivered      int                 `json:"delivered"`
	Pending        int                 `json:"pending"`
	CompletionRate float64             `json:"completion_rate"`
	RouteComplete  bool                `json:"route_complete"`
	State          domain.SessionState `json:"state"`
}

type RouteProgress struct {
	RouteID        int     `json:"route_id"`
	Color          string  `json:"color"`
	CourierID      string  `json:"courier_id,omitempty"`
	Total          int     `json:"total"`
	Delivered      int     `json:"delivered"`
	Failed         int     `json:"failed"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}

type Progress struct {
	SessionID      string              `json:"session_id"`
	State          domain.SessionState `json:"state"`
	Total          int                 `json:"total"`
	Delivered      int                 `json:"delivered"`
	CompletionRate float64             `json:"completion_rate"`
	Routes         []RouteProgress     `json:"routes"`
}

// GeocodeReport summarizes an enrichment pass.
type GeocodeReport struct {
	Resolved   int      `json:"resolved"`
	Ungeocoded []string `json:"ungeocoded"`
	StopSplits []string `json:"stop_splits"`
}
