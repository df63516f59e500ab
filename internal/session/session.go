package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/geo"
	"last-mile-planner/internal/platform/metrics"
	"last-mile-planner/internal/ports"
	"last-mile-planner/internal/services"
)

// AddressResolver fills coordinates for addresses; results are keyed by
// services.AddressKey. *services.GeocodeResolver satisfies it.
type AddressResolver interface {
	Resolve(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
}

// PlanOptions configures one planning call.
type PlanOptions struct {
	K                  int
	EnableStopGrouping bool
	RandomizedSeeding  bool
	Seed               int64
}

// DefaultPlanOptions plans k territories with stop grouping on.
func DefaultPlanOptions(k int) PlanOptions {
	return PlanOptions{K: k, EnableStopGrouping: true}
}

type Options struct {
	Registry  *CourierRegistry
	Resolver  AddressResolver
	Publisher ports.EventPublisher

	Model         services.TravelModel
	Earnings      services.EarningsOptions
	MaxIterations int

	Clock func() time.Time
	// OnPublishError observes events the publisher rejected. Events are
	// recorded in the session log either way.
	OnPublishError func(domain.ProgressEvent, error)
}

// Session is one day's planning and dispatch run.
//
// A Session is not safe for concurrent mutation; Manager serializes calls per
// session. Every operation validates before it mutates, so a failed call
// leaves the session as it was.
type Session struct {
	id   string
	date time.Time
	opts Options

	state       domain.SessionState
	depot       *domain.Depot
	batches     []domain.Batch
	packages    map[string]struct{}
	ungeocoded  []string
	routes      []*domain.Route
	finalizedAt *time.Time
	separator   *Separator

	lastMark map[string]time.Time
	seq      uint64
	events   []domain.ProgressEvent
}

func New(id string, date time.Time, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Registry == nil {
		opts.Registry = NewCourierRegistry()
	}
	if opts.Model == (services.TravelModel{}) {
		opts.Model = services.DefaultTravelModel()
	}
	return &Session{
		id:       id,
		date:     date,
		opts:     opts,
		state:    domain.StateDraft,
		packages: make(map[string]struct{}),
		lastMark: make(map[string]time.Time),
	}
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) State() domain.SessionState { return s.state }
func (s *Session) IsFinalized() bool          { return s.finalizedAt != nil }

// Routes returns the planned routes. Callers must not modify them.
func (s *Session) Routes() []*domain.Route { return s.routes }

func (s *Session) requireState(op string, allowed ...domain.SessionState) error {
	for _, a := range allowed {
		if s.state == a {
			return nil
		}
	}
	return domain.Errorf(domain.CodeIllegalState, "%s: not allowed in state %s", op, s.state)
}

// SetDepot fixes the start and end of every route.
func (s *Session) SetDepot(ctx context.Context, address string, lat, lng float64) error {
	if err := s.requireState("set depot", domain.StateDraft); err != nil {
		return err
	}
	d, err := domain.NewDepot(address, lat, lng)
	if err != nil {
		return fmt.Errorf("set depot: %w", err)
	}
	s.depot = &d
	return nil
}

// AddBatch validates and appends an imported batch. The whole batch is
// rejected on the first bad record.
func (s *Session) AddBatch(ctx context.Context, in domain.ImportedBatch) (domain.Batch, error) {
	if err := s.requireState("add batch", domain.StateDraft); err != nil {
		return domain.Batch{}, err
	}

	b, err := domain.NewBatch(in, s.opts.Clock())
	if err != nil {
		return domain.Batch{}, fmt.Errorf("add batch: %w", err)
	}
	for _, existing := range s.batches {
		if existing.ID == b.ID {
			return domain.Batch{}, domain.Errorf(domain.CodeDuplicateBatchID, "add batch: batch %q already imported", b.ID)
		}
	}

	incoming := make(map[string]struct{}, len(b.Points))
	anchors := make(map[int]domain.Coordinates)
	for _, p := range b.Points {
		key := NormalizeBarcode(p.PackageID)
		if _, ok := s.packages[key]; ok {
			return domain.Batch{}, domain.Errorf(domain.CodeDuplicatePackage, "add batch: package %q already in session", p.PackageID)
		}
		if _, ok := incoming[key]; ok {
			return domain.Batch{}, domain.Errorf(domain.CodeDuplicatePackage, "add batch: package %q appears twice", p.PackageID)
		}
		incoming[key] = struct{}{}

		if p.StopID == nil || !p.HasCoords() {
			continue
		}
		if a, ok := anchors[*p.StopID]; ok {
			if geo.HaversineMeters(a, p.Coordinates()) > services.StopGroupRadiusMeters {
				return domain.Batch{}, domain.Errorf(domain.CodeStopMismatch,
					"add batch: package %q is more than %.0f m from stop %d", p.PackageID, services.StopGroupRadiusMeters, *p.StopID)
			}
			continue
		}
		anchors[*p.StopID] = p.Coordinates()
	}

	for k := range incoming {
		s.packages[k] = struct{}{}
	}
	s.batches = append(s.batches, b)
	return b, nil
}

// Geocode fills coordinates for points imported with an address only.
// Unresolved points are reported, never fatal; only cancellation fails.
// A newly geocoded point too far from its stop's anchor loses its stop id
// and is reported in StopSplits.
func (s *Session) Geocode(ctx context.Context) (GeocodeReport, error) {
	if err := s.requireState("geocode", domain.StateDraft); err != nil {
		return GeocodeReport{}, err
	}
	if s.opts.Resolver == nil {
		return GeocodeReport{}, domain.Errorf(domain.CodeIllegalState, "geocode: no geocoder configured")
	}

	var addresses []string
	for _, b := range s.batches {
		for _, p := range b.Points {
			if !p.HasCoords() {
				addresses = append(addresses, p.Address)
			}
		}
	}

	report := GeocodeReport{Ungeocoded: []string{}, StopSplits: []string{}}
	if len(addresses) == 0 {
		return report, nil
	}

	found, err := s.opts.Resolver.Resolve(ctx, addresses)
	if err != nil {
		return GeocodeReport{}, fmt.Errorf("geocode: %w", err)
	}

	for bi := range s.batches {
		points := s.batches[bi].Points
		var fresh []int
		for pi := range points {
			if points[pi].HasCoords() {
				continue
			}
			c, ok := found[services.AddressKey(points[pi].Address)]
			if ok {
				if _, err := domain.NewCoordinates(c.Lat, c.Lng); err != nil {
					ok = false
				}
			}
			if !ok {
				report.Ungeocoded = append(report.Ungeocoded, points[pi].PackageID)
				continue
			}
			points[pi].Coords = &c
			report.Resolved++
			fresh = append(fresh, pi)
		}
		report.StopSplits = append(report.StopSplits, splitStops(points, fresh)...)
	}
	s.ungeocoded = report.Ungeocoded
	return report, nil
}

// splitStops clears the stop id of each fresh point lying more than
// StopGroupRadiusMeters from its stop's anchor and returns their package ids.
// Points located before this pass anchor their stops first.
func splitStops(points []domain.DeliveryPoint, fresh []int) []string {
	isFresh := make(map[int]bool, len(fresh))
	for _, pi := range fresh {
		isFresh[pi] = true
	}
	anchors := make(map[int]domain.Coordinates)
	for pi, p := range points {
		if isFresh[pi] || p.StopID == nil || !p.HasCoords() {
			continue
		}
		if _, ok := anchors[*p.StopID]; !ok {
			anchors[*p.StopID] = p.Coordinates()
		}
	}

	var split []string
	for _, pi := range fresh {
		p := &points[pi]
		if p.StopID == nil {
			continue
		}
		a, ok := anchors[*p.StopID]
		if !ok {
			anchors[*p.StopID] = p.Coordinates()
			continue
		}
		if geo.HaversineMeters(a, p.Coordinates()) > services.StopGroupRadiusMeters {
			p.StopID = nil
			split = append(split, p.PackageID)
		}
	}
	return split
}

// Plan divides the geocoded points into territories and builds one route per
// territory. It is legal in DRAFT, and again in PLANNED while no route has a
// courier. A failed or cancelled plan leaves the session untouched.
func (s *Session) Plan(ctx context.Context, opts PlanOptions) (err error) {
	start := time.Now()
	defer func() {
		metrics.PlanDuration.Observe(time.Since(start).Seconds())
		switch {
		case err == nil:
			metrics.Plans.WithLabelValues("ok").Inc()
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			metrics.Plans.WithLabelValues("cancelled").Inc()
		default:
			metrics.Plans.WithLabelValues("error").Inc()
		}
	}()

	if !s.state.CanTransition(domain.StatePlanned) {
		return domain.Errorf(domain.CodeIllegalState, "plan: not allowed in state %s", s.state)
	}
	for _, r := range s.routes {
		if r.IsAssigned() {
			return domain.Errorf(domain.CodeIllegalState, "plan: route %d already has a courier", r.ID)
		}
	}
	if s.depot == nil {
		return domain.Errorf(domain.CodeIllegalState, "plan: depot is not set")
	}

	var points []domain.DeliveryPoint
	ungeocoded := []string{}
	for _, b := range s.batches {
		for _, p := range b.Points {
			if p.HasCoords() {
				points = append(points, p)
			} else {
				ungeocoded = append(ungeocoded, p.PackageID)
			}
		}
	}
	if len(points) == 0 {
		return domain.Errorf(domain.CodeEmptyInput, "plan: no geocoded points")
	}

	routes, err := services.PlanDeliveries(ctx, services.PlanDeliveriesRequest{
		Depot:              s.depot.Coords,
		K:                  opts.K,
		EnableStopGrouping: opts.EnableStopGrouping,
		RandomizedSeeding:  opts.RandomizedSeeding,
		Seed:               opts.Seed,
		MaxIterations:      s.opts.MaxIterations,
		Model:              s.opts.Model,
		Earnings:           s.opts.Earnings,
	}, points)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	s.routes = routes
	s.ungeocoded = ungeocoded
	if s.state != domain.StatePlanned {
		s.transition(ctx, domain.StatePlanned)
	}
	return nil
}

// CloseIntake geocodes what it can, when a resolver is configured, then plans.
func (s *Session) CloseIntake(ctx context.Context, opts PlanOptions) error {
	if err := s.requireState("close intake", domain.StateDraft); err != nil {
		return err
	}
	if s.opts.Resolver != nil {
		if _, err := s.Geocode(ctx); err != nil {
			return fmt.Errorf("close intake: %w", err)
		}
	}
	if err := s.Plan(ctx, opts); err != nil {
		return fmt.Errorf("close intake: %w", err)
	}
	return nil
}

func (s *Session) route(id int) (*domain.Route, error) {
	for _, r := range s.routes {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.Errorf(domain.CodeUnknownRoute, "route %d does not exist", id)
}

func (s *Session) routeOf(courierID string) *domain.Route {
	for _, r := range s.routes {
		if r.CourierID == courierID {
			return r
		}
	}
	return nil
}

// Assign gives a route to a courier. Once every route has a distinct courier
// the session becomes ASSIGNED and the separator index is built.
func (s *Session) Assign(ctx context.Context, routeID int, courierID string) error {
	if err := s.requireState("assign", domain.StatePlanned, domain.StateAssigned); err != nil {
		return err
	}
	r, err := s.route(routeID)
	if err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	if r.IsAssigned() {
		return domain.Errorf(domain.CodeIllegalState, "assign: route %d is already held by courier %q", r.ID, r.CourierID)
	}

	c, err := s.opts.Registry.Get(courierID)
	if err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	if err := s.checkAssign(r, c); err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	s.commitAssign(ctx, r, c)
	return nil
}

// checkAssign reports why c cannot take the open route r.
func (s *Session) checkAssign(r *domain.Route, c domain.Courier) error {
	switch {
	case !c.IsActive:
		return domain.Errorf(domain.CodeCourierInactive, "courier %q is inactive", c.ID)
	case s.routeOf(c.ID) != nil:
		return domain.Errorf(domain.CodeCourierBusy, "courier %q already holds route %d", c.ID, s.routeOf(c.ID).ID)
	case !c.CanCarry(r.PackageCount()):
		return domain.Errorf(domain.CodeCapacityExceeded,
			"route %d has %d packages, courier %q carries %d", r.ID, r.PackageCount(), c.ID, c.MaxCapacity)
	}
	return nil
}

func (s *Session) commitAssign(ctx context.Context, r *domain.Route, c domain.Courier) {
	now := s.opts.Clock()
	r.CourierID = c.ID
	r.CourierName = c.Name
	r.AssignedAt = &now
	s.lastMark[c.ID] = now
	s.emit(ctx, domain.ProgressEvent{Event: domain.EventAssigned, RouteID: r.ID, CourierID: c.ID})

	for _, other := range s.routes {
		if !other.IsAssigned() {
			return
		}
	}
	s.finalizedAt = &now
	s.separator = NewSeparator(s.routes)
	s.transition(ctx, domain.StateAssigned)
}

// AutoAssign matches every open route with a free courier from the registry.
// Nothing is assigned unless every open route finds a courier.
func (s *Session) AutoAssign(ctx context.Context) ([]services.Assignment, error) {
	if err := s.requireState("auto assign", domain.StatePlanned); err != nil {
		return nil, err
	}
	busy := make(map[string]bool)
	for _, r := range s.routes {
		if r.IsAssigned() {
			busy[r.CourierID] = true
		}
	}

	roster := s.opts.Registry.List()
	plan, err := services.MatchCouriers(s.routes, roster, busy)
	if err != nil {
		return nil, fmt.Errorf("auto assign: %w", err)
	}

	// Check every pair against the same roster before committing any.
	byID := make(map[string]domain.Courier, len(roster))
	for _, c := range roster {
		byID[c.ID] = c
	}
	routes := make([]*domain.Route, len(plan))
	taken := make(map[string]bool, len(plan))
	for i, a := range plan {
		r, err := s.route(a.RouteID)
		if err != nil {
			return nil, fmt.Errorf("auto assign: %w", err)
		}
		c, ok := byID[a.CourierID]
		switch {
		case r.IsAssigned():
			return nil, domain.Errorf(domain.CodeIllegalState, "auto assign: route %d is already held", r.ID)
		case !ok:
			return nil, domain.Errorf(domain.CodeUnknownCourier, "auto assign: courier %q is not registered", a.CourierID)
		case taken[c.ID]:
			return nil, domain.Errorf(domain.CodeCourierBusy, "auto assign: courier %q matched twice", c.ID)
		}
		if err := s.checkAssign(r, c); err != nil {
			return nil, fmt.Errorf("auto assign: %w", err)
		}
		taken[c.ID] = true
		routes[i] = r
	}
	for i, a := range plan {
		s.commitAssign(ctx, routes[i], byID[a.CourierID])
	}
	return plan, nil
}

// locate finds the route carrying a package and checks it belongs to courierID.
func (s *Session) locate(courierID, packageID string) (*domain.Route, string, error) {
	key := NormalizeBarcode(packageID)
	for _, r := range s.routes {
		for _, st := range r.Stops {
			for _, p := range st.Packages {
				if NormalizeBarcode(p.PackageID) != key {
					continue
				}
				if r.CourierID != courierID {
					return nil, "", domain.Errorf(domain.CodeWrongCourier,
						"package %q belongs to route %d, not courier %q", p.PackageID, r.ID, courierID)
				}
				return r, p.PackageID, nil
			}
		}
	}
	return nil, "", domain.Errorf(domain.CodeUnknownPackage, "package %q is not in any route", packageID)
}

// MarkDelivered records a delivery. A repeated mark returns a result carrying
// the ALREADY_DELIVERED warning and changes nothing.
func (s *Session) MarkDelivered(ctx context.Context, courierID, packageID string) (res DeliveryResult, err error) {
	defer func() { countDelivery(res, err, "delivered") }()

	if res, ok := s.repeatAfterCompletion(courierID, packageID); ok {
		return res, nil
	}
	if err := s.requireState("mark delivered", domain.StateAssigned, domain.StateInProgress); err != nil {
		return DeliveryResult{}, err
	}
	r, id, err := s.locate(courierID, packageID)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("mark delivered: %w", err)
	}
	if _, done := r.Delivered[id]; done {
		res = s.result(r, id)
		res.Warning = domain.CodeAlreadyDelivered
		return res, nil
	}

	now := s.opts.Clock()
	var elapsed time.Duration
	if last, ok := s.lastMark[courierID]; ok && now.After(last) {
		elapsed = now.Sub(last)
	}
	if err := s.opts.Registry.RecordAttempt(courierID, true, elapsed); err != nil {
		return DeliveryResult{}, fmt.Errorf("mark delivered: %w", err)
	}

	r.Delivered[id] = now
	delete(r.Failed, id)
	s.lastMark[courierID] = now

	if s.state == domain.StateAssigned {
		s.transition(ctx, domain.StateInProgress)
	}
	s.emit(ctx, domain.ProgressEvent{Event: domain.EventDelivered, RouteID: r.ID, PackageID: id, CourierID: courierID})

	if r.IsComplete() {
		s.emit(ctx, domain.ProgressEvent{Event: domain.EventCompleted, RouteID: r.ID, CourierID: courierID})
		if s.allDelivered() {
			s.transition(ctx, domain.StateCompleted)
		}
	}
	return s.result(r, id), nil
}

// MarkFailed records an unsuccessful attempt. The package stays pending.
func (s *Session) MarkFailed(ctx context.Context, courierID, packageID, reason string) (res DeliveryResult, err error) {
	defer func() { countDelivery(res, err, "failed") }()

	if res, ok := s.repeatAfterCompletion(courierID, packageID); ok {
		return res, nil
	}
	if err := s.requireState("mark failed", domain.StateAssigned, domain.StateInProgress); err != nil {
		return DeliveryResult{}, err
	}
	r, id, err := s.locate(courierID, packageID)
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("mark failed: %w", err)
	}
	if _, done := r.Delivered[id]; done {
		res = s.result(r, id)
		res.Warning = domain.CodeAlreadyDelivered
		return res, nil
	}
	if err := s.opts.Registry.RecordAttempt(courierID, false, 0); err != nil {
		return DeliveryResult{}, fmt.Errorf("mark failed: %w", err)
	}

	r.Failed[id] = reason
	s.lastMark[courierID] = s.opts.Clock()
	s.emit(ctx, domain.ProgressEvent{Event: domain.EventFailed, RouteID: r.ID, PackageID: id, CourierID: courierID, Reason: reason})
	return s.result(r, id), nil
}

// repeatAfterCompletion answers a mark for a package delivered before the
// session completed. Other marks on a completed session stay illegal.
func (s *Session) repeatAfterCompletion(courierID, packageID string) (DeliveryResult, bool) {
	if s.state != domain.StateCompleted {
		return DeliveryResult{}, false
	}
	r, id, err := s.locate(courierID, packageID)
	if err != nil {
		return DeliveryResult{}, false
	}
	if _, done := r.Delivered[id]; !done {
		return DeliveryResult{}, false
	}
	res := s.result(r, id)
	res.Warning = domain.CodeAlreadyDelivered
	return res, true
}

func countDelivery(res DeliveryResult, err error, ok string) {
	switch {
	case err != nil:
		metrics.Deliveries.WithLabelValues("rejected").Inc()
	case res.Warning != "":
		metrics.Deliveries.WithLabelValues("already_delivered").Inc()
	default:
		metrics.Deliveries.WithLabelValues(ok).Inc()
	}
}

// Close ends an in-progress session early.
func (s *Session) Close(ctx context.Context) error {
	if !s.state.CanTransition(domain.StateCompleted) {
		return domain.Errorf(domain.CodeIllegalState, "close session: not allowed in state %s", s.state)
	}
	s.transition(ctx, domain.StateCompleted)
	return nil
}

func (s *Session) allDelivered() bool {
	for _, r := range s.routes {
		if !r.IsComplete() {
			return false
		}
	}
	return true
}

func (s *Session) result(r *domain.Route, packageID string) DeliveryResult {
	return DeliveryResult{
		RouteID:        r.ID,
		PackageID:      packageID,
		Delivered:      r.DeliveredCount(),
		Pending:        r.PendingCount(),
		CompletionRate: r.CompletionRate(),
		RouteComplete:  r.IsComplete(),
		State:          s.state,
	}
}

// Scan resolves a barcode through the separator index.
func (s *Session) Scan(barcode string) (res ScanResult, err error) {
	defer func() {
		switch {
		case errors.Is(err, domain.ErrInactiveSeparator):
			metrics.Scans.WithLabelValues("inactive").Inc()
		case err != nil:
			metrics.Scans.WithLabelValues("not_found").Inc()
		case res.Duplicate:
			metrics.Scans.WithLabelValues("duplicate").Inc()
		default:
			metrics.Scans.WithLabelValues("hit").Inc()
		}
	}()

	if s.separator == nil {
		return ScanResult{}, domain.Errorf(domain.CodeInactiveSeparator, "scan: routes are not fully assigned (state %s)", s.state)
	}
	return s.separator.Scan(barcode)
}

func (s *Session) SeparationProgress() (SeparationProgress, error) {
	if s.separator == nil {
		return SeparationProgress{}, domain.Errorf(domain.CodeInactiveSeparator, "separation progress: routes are not fully assigned")
	}
	return s.separator.Progress(), nil
}

// Progress reports per-route delivery counters.
func (s *Session) Progress() Progress {
	p := Progress{SessionID: s.id, State: s.state, Routes: []RouteProgress{}}
	for _, r := range s.routes {
		total := r.PackageCount()
		p.Total += total
		p.Delivered += r.DeliveredCount()
		p.Routes = append(p.Routes, RouteProgress{
			RouteID:        r.ID,
			Color:          r.Color.Label(),
			CourierID:      r.CourierID,
			Total:          total,
			Delivered:      r.DeliveredCount(),
			Failed:         len(r.Failed),
			Pending:        r.PendingCount(),
			CompletionRate: geo.Round(r.CompletionRate(), 4),
		})
	}
	if p.Total > 0 {
		p.CompletionRate = geo.Round(float64(p.Delivered)/float64(p.Total), 4)
	}
	return p
}

// Snapshot renders the wire view of the session.
func (s *Session) Snapshot() PlannedSession {
	ps := PlannedSession{
		SessionID:   s.id,
		Date:        s.date.Format(time.DateOnly),
		State:       s.state,
		Routes:      make([]RouteView, 0, len(s.routes)),
		Ungeocoded:  append([]string{}, s.ungeocoded...),
		IsFinalized: s.IsFinalized(),
		FinalizedAt: s.finalizedAt,
	}
	if s.depot != nil {
		ps.Depot = &DepotView{Address: s.depot.Address, Lat: coord(s.depot.Coords.Lat), Lng: coord(s.depot.Coords.Lng)}
	}
	for _, r := range s.routes {
		ps.Routes = append(ps.Routes, newRouteView(r))
	}
	return ps
}

// Events returns the progress log, ordered by sequence number.
func (s *Session) Events() []domain.ProgressEvent {
	return append([]domain.ProgressEvent(nil), s.events...)
}

// EventsSince returns the events with a sequence number above seq.
func (s *Session) EventsSince(seq uint64) []domain.ProgressEvent {
	var out []domain.ProgressEvent
	for _, e := range s.events {
		if e.SequenceNo > seq {
			out = append(out, e)
		}
	}
	return out
}

func (s *Session) transition(ctx context.Context, to domain.SessionState) {
	s.state = to
	s.emit(ctx, domain.ProgressEvent{Event: domain.EventStateChanged, State: to})
}

func (s *Session) emit(ctx context.Context, evt domain.ProgressEvent) {
	s.seq++
	evt.SessionID = s.id
	evt.SequenceNo = s.seq
	evt.Timestamp = s.opts.Clock()
	s.events = append(s.events, evt)

	if s.opts.Publisher == nil {
		return
	}
	if err := s.opts.Publisher.Publish(ctx, evt); err != nil && s.opts.OnPublishError != nil {
		s.opts.OnPublishError(evt, err)
	}
}
