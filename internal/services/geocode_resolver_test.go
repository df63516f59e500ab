package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/ports"
)

type scriptedGeocoder struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string][]error
	coords  map[string]domain.Coordinates
	block   map[string]bool
}

func newScriptedGeocoder() *scriptedGeocoder {
	return &scriptedGeocoder{
		calls:   map[string]int{},
		results: map[string][]error{},
		coords:  map[string]domain.Coordinates{},
		block:   map[string]bool{},
	}
}

func (g *scriptedGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	g.mu.Lock()
	n := g.calls[address]
	g.calls[address]++
	script := g.results[address]
	block := g.block[address]
	c, known := g.coords[address]
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.Coordinates{}, ctx.Err()
	}
	if n < len(script) && script[n] != nil {
		return domain.Coordinates{}, script[n]
	}
	if !known {
		return domain.Coordinates{}, domain.Errorf(domain.CodeNotFound, "no match for %q", address)
	}
	return c, nil
}

func (g *scriptedGeocoder) callCount(address string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[address]
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.Coordinates
	puts    int
}

func (m *mapCache) GetMany(_ context.Context, keys []string) (map[string]domain.Coordinates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]domain.Coordinates{}
	for _, k := range keys {
		if c, ok := m.entries[k]; ok {
			out[k] = c
		}
	}
	return out, nil
}

func (m *mapCache) PutMany(_ context.Context, results map[string]domain.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range results {
		m.entries[k] = c
	}
	m.puts++
	return nil
}

func newTestResolver(g *scriptedGeocoder, c *mapCache, opts ...ResolverOption) *GeocodeResolver {
	var cache ports.GeocodeCache
	if c != nil {
		cache = c
	}
	r := NewGeocodeResolver(g, cache, opts...)
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return r
}

func TestResolveRetriesTransientFailures(t *testing.T) {
	g := newScriptedGeocoder()
	g.coords["Rua A, 1"] = domain.Coordinates{Lat: -23.55, Lng: -46.63}
	g.results["Rua A, 1"] = []error{domain.ErrProviderDown, domain.ErrProviderDown}

	got, err := newTestResolver(g, nil).Resolve(context.Background(), []string{"Rua A, 1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got[AddressKey("Rua A, 1")]; !ok {
		t.Fatalf("expected address to resolve after retries")
	}
	if n := g.callCount("Rua A, 1"); n != 3 {
		t.Fatalf("expected 3 provider calls, got %d", n)
	}
}

func TestResolveGivesUpAfterBackoffSchedule(t *testing.T) {
	g := newScriptedGeocoder()
	g.coords["Rua B, 2"] = domain.Coordinates{Lat: -23.55, Lng: -46.63}
	g.results["Rua B, 2"] = []error{domain.ErrProviderDown, domain.ErrProviderDown, domain.ErrProviderDown, domain.ErrProviderDown}

	got, err := newTestResolver(g, nil).Resolve(context.Background(), []string{"Rua B, 2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no result after exhausting retries, got %v", got)
	}
	if n := g.callCount("Rua B, 2"); n != 1+len(DefaultGeocodeBackoff) {
		t.Fatalf("expected %d provider calls, got %d", 1+len(DefaultGeocodeBackoff), n)
	}
}

func TestResolveSkipsNotFoundWithoutRetry(t *testing.T) {
	g := newScriptedGeocoder()

	got, err := newTestResolver(g, nil).Resolve(context.Background(), []string{"Nowhere"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected nothing resolved, got %v", got)
	}
	if n := g.callCount("Nowhere"); n != 1 {
		t.Fatalf("not found should not retry, got %d calls", n)
	}
}

func TestResolveTimesOutSlowCalls(t *testing.T) {
	g := newScriptedGeocoder()
	g.block["Slow St"] = true
	g.coords["Fast St"] = domain.Coordinates{Lat: 1, Lng: 2}

	r := newTestResolver(g, nil, WithGeocodeTimeout(20*time.Millisecond))
	got, err := r.Resolve(context.Background(), []string{"Slow St", "Fast St"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got[AddressKey("Slow St")]; ok {
		t.Fatalf("timed out address should be unresolved")
	}
	if _, ok := got[AddressKey("Fast St")]; !ok {
		t.Fatalf("fast address should resolve")
	}
	if n := g.callCount("Slow St"); n != 1 {
		t.Fatalf("timeouts should not retry, got %d calls", n)
	}
}

func TestResolveUsesCacheAndWritesBack(t *testing.T) {
	g := newScriptedGeocoder()
	g.coords["Rua C, 3"] = domain.Coordinates{Lat: -23.56, Lng: -46.64}
	cache := &mapCache{entries: map[string]domain.Coordinates{
		AddressKey("rua   d, 4"): {Lat: -23.57, Lng: -46.65},
	}}

	r := newTestResolver(g, cache)
	got, err := r.Resolve(context.Background(), []string{"Rua D, 4", "Rua C, 3", "rua c,  3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 resolved keys, got %d", len(got))
	}
	if g.callCount("Rua D, 4") != 0 {
		t.Fatalf("cached address hit the provider")
	}
	if g.callCount("Rua C, 3")+g.callCount("rua c,  3") != 1 {
		t.Fatalf("normalized duplicates should share one provider call")
	}
	if _, ok := cache.entries[AddressKey("Rua C, 3")]; !ok || cache.puts != 1 {
		t.Fatalf("fresh result was not written to the cache")
	}

	if _, err := r.Resolve(context.Background(), []string{"Rua C, 3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.callCount("Rua C, 3")+g.callCount("rua c,  3") != 1 {
		t.Fatalf("second resolve should be served from cache")
	}
}

func TestResolveStopsOnCancellation(t *testing.T) {
	g := newScriptedGeocoder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestResolver(g, nil).Resolve(ctx, []string{"Rua E, 5"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAddressKeyNormalizes(t *testing.T) {
	if AddressKey("  Rua   Augusta, 100 ") != AddressKey("rua augusta, 100") {
		t.Fatalf("keys of equivalent addresses differ")
	}
	if AddressKey("Rua Augusta, 100") == AddressKey("Rua Augusta, 101") {
		t.Fatalf("keys of different addresses collide")
	}
}
