package services

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/platform/obs"
)

type PlanDeliveriesRequest struct {
	Depot domain.Coordinates
	K     int

	// EnableStopGrouping groups co-located packages before clustering, so a
	// stop never splits across territories. Otherwise points are clustered
	// one by one and grouped inside each territory.
	EnableStopGrouping bool
	RandomizedSeeding  bool
	Seed               int64
	MaxIterations      int

	Model    TravelModel
	Earnings EarningsOptions
}

// PlanDeliveries runs divider, grouper, optimizer and analyzer over geocoded
// points and returns one unassigned route per non-empty territory.
//
// Route ids are 1-based in territory order; colors follow the palette in the
// same order. The output is a pure function of (points, req).
func PlanDeliveries(
	ctx context.Context,
	req PlanDeliveriesRequest,
	points []domain.DeliveryPoint,
) (_ []*domain.Route, err error) {
	defer obs.Time(ctx, "services.PlanDeliveries")(&err)

	for _, p := range points {
		if !p.HasCoords() {
			return nil, domain.Errorf(domain.CodeUngeocoded, "plan deliveries: package %q has no coordinates", p.PackageID)
		}
	}

	grouper := NewStopGrouper()
	var nodes []domain.StopGroup
	if req.EnableStopGrouping {
		nodes = grouper.Group(points)
	} else {
		nodes = grouper.Singletons(points)
	}

	clusters, err := DivideTerritories(ctx, nodes, req.Depot, DivideOptions{
		K:                 req.K,
		MaxIterations:     req.MaxIterations,
		RandomizedSeeding: req.RandomizedSeeding,
		Seed:              req.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("plan deliveries: %w", err)
	}

	if !req.EnableStopGrouping {
		regroup := NewStopGrouper()
		for i := range clusters {
			var members []domain.DeliveryPoint
			for _, s := range clusters[i].Stops {
				members = append(members, s.Packages...)
			}
			clusters[i].Stops = regroup.Group(members)
		}
	}

	// Territories are independent; each result lands at its cluster index.
	routes := make([]*domain.Route, len(clusters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range clusters {
		g.Go(func() error {
			opt, err := OptimizeRoute(gctx, c.Stops, req.Depot, req.Model)
			if err != nil {
				return fmt.Errorf("territory %d: %w", c.ID, err)
			}
			r := &domain.Route{
				ID:               c.ID + 1,
				ClusterID:        c.ID,
				Center:           c.Center,
				Color:            domain.ColorFor(c.ID),
				Stops:            opt.Stops,
				DistanceKm:       opt.DistanceKm,
				EstimatedMinutes: opt.EstimatedMinutes,
				Shortcuts:        opt.Shortcuts,
				Delivered:        map[string]time.Time{},
				Failed:           map[string]string{},
			}
			r.Analysis = AnalyzeRoute(r, req.Depot, req.Earnings)
			routes[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("plan deliveries: %w", err)
	}
	return routes, nil
}
