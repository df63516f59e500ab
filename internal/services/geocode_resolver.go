package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/platform/metrics"
	"last-mile-planner/internal/platform/obs"
	"last-mile-planner/internal/ports"
)

const (
	DefaultGeocodeTimeout = 10 * time.Second
	DefaultGeocodeWorkers = 4
)

// DefaultGeocodeBackoff is the wait before each retry of a transient provider failure.
var DefaultGeocodeBackoff = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}

// NormalizeAddress collapses whitespace and lowercases s.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// AddressKey is the content address of a geocode cache entry.
func AddressKey(address string) string {
	sum := sha256.Sum256([]byte(NormalizeAddress(address)))
	return hex.EncodeToString(sum[:])
}

// GeocodeResolver resolves addresses through a cache in front of a Geocoder.
//
// Transient provider failures are retried with backoff; every call carries its
// own deadline. An address that stays unresolved is reported missing, never
// as an error. The resolver is safe for concurrent use.
type GeocodeResolver struct {
	geocoder ports.Geocoder
	cache    ports.GeocodeCache

	timeout time.Duration
	backoff []time.Duration
	workers int
	sleep   func(ctx context.Context, d time.Duration) error
}

type ResolverOption func(*GeocodeResolver)

func WithGeocodeTimeout(d time.Duration) ResolverOption {
	return func(r *GeocodeResolver) { r.timeout = d }
}

func WithGeocodeWorkers(n int) ResolverOption {
	return func(r *GeocodeResolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// cache may be nil.
func NewGeocodeResolver(geocoder ports.Geocoder, cache ports.GeocodeCache, opts ...ResolverOption) *GeocodeResolver {
	r := &GeocodeResolver{
		geocoder: geocoder,
		cache:    cache,
		timeout:  DefaultGeocodeTimeout,
		backoff:  DefaultGeocodeBackoff,
		workers:  DefaultGeocodeWorkers,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns coordinates keyed by AddressKey for every address that could
// be resolved. The only error is cancellation of ctx.
func (r *GeocodeResolver) Resolve(ctx context.Context, addresses []string) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.Resolve")(&err)

	byKey := make(map[string]string, len(addresses))
	keys := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if strings.TrimSpace(a) == "" {
			continue
		}
		k := AddressKey(a)
		if _, ok := byKey[k]; ok {
			continue
		}
		byKey[k] = a
		keys = append(keys, k)
	}

	out := make(map[string]domain.Coordinates, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	// A failing cache degrades to provider lookups.
	if r.cache != nil {
		hits, err := r.cache.GetMany(ctx, keys)
		if err != nil {
			metrics.GeocodeLookups.WithLabelValues("cache", "error").Add(float64(len(keys)))
		}
		for k, c := range hits {
			if _, ok := byKey[k]; ok {
				out[k] = c
			}
		}
		metrics.GeocodeLookups.WithLabelValues("cache", "hit").Add(float64(len(out)))
	}

	misses := make([]string, 0, len(keys)-len(out))
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			misses = append(misses, k)
		}
	}

	var mu sync.Mutex
	fresh := make(map[string]domain.Coordinates, len(misses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, k := range misses {
		addr := byKey[k]
		g.Go(func() error {
			c, ok, err := r.lookup(gctx, addr)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				fresh[k] = c
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("geocode resolve: %w", err)
	}

	for k, c := range fresh {
		out[k] = c
	}
	if r.cache != nil && len(fresh) > 0 {
		if err := r.cache.PutMany(ctx, fresh); err != nil {
			metrics.GeocodeLookups.WithLabelValues("cache", "write_error").Inc()
		}
	}
	return out, nil
}

// lookup asks the provider for one address. ok is false when the address is
// unresolvable, times out, or keeps failing after every retry.
func (r *GeocodeResolver) lookup(ctx context.Context, address string) (domain.Coordinates, bool, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Coordinates{}, false, err
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		c, err := r.geocoder.Geocode(callCtx, address)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()

		switch {
		case err == nil:
			metrics.GeocodeLookups.WithLabelValues("provider", "ok").Inc()
			return c, true, nil
		case ctx.Err() != nil:
			return domain.Coordinates{}, false, ctx.Err()
		case timedOut:
			metrics.GeocodeLookups.WithLabelValues("provider", "timeout").Inc()
			return domain.Coordinates{}, false, nil
		case errors.Is(err, domain.ErrNotFound):
			metrics.GeocodeLookups.WithLabelValues("provider", "not_found").Inc()
			return domain.Coordinates{}, false, nil
		case !domain.IsRetryable(err) || attempt >= len(r.backoff):
			metrics.GeocodeLookups.WithLabelValues("provider", "error").Inc()
			return domain.Coordinates{}, false, nil
		}

		if err := r.sleep(ctx, r.backoff[attempt]); err != nil {
			return domain.Coordinates{}, false, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
