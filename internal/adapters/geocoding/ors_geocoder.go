package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/platform/obs"
)

const (
	DefaultBaseURL    = "https://api.openrouteservice.org"
	DefaultCountry    = "BR"
	DefaultRatePerSec = 10.0
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder implements ports.Geocoder using OpenRouteService (/geocode/search).
// Requests are throttled by a shared token bucket; the geocoder is safe for
// concurrent use.
type ORSGeocoder struct {
	client  *http.Client
	apiKey  string
	baseURL string
	country string
	limiter *rate.Limiter
}

type ORSOption func(*ORSGeocoder)

func WithBaseURL(u string) ORSOption {
	return func(g *ORSGeocoder) { g.baseURL = strings.TrimRight(u, "/") }
}

func WithCountry(c string) ORSOption { return func(g *ORSGeocoder) { g.country = c } }

// WithRate caps outgoing requests per second. Zero or less disables throttling.
func WithRate(perSec float64) ORSOption {
	return func(g *ORSGeocoder) {
		if perSec <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

func NewORSGeocoder(apiKey string, opts ...ORSOption) (*ORSGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	g := &ORSGeocoder{
		client:  &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		country: DefaultCountry,
		limiter: rate.NewLimiter(rate.Limit(DefaultRatePerSec), 1),
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Geocode resolves one address to its best match.
func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	text := strings.Join(strings.Fields(address), " ")
	if text == "" {
		return domain.Coordinates{}, domain.Errorf(domain.CodeNotFound, "geocode: empty address")
	}

	req, err := g.newRequest(ctx, http.MethodGet, g.baseURL+"/geocode/search", nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("get geocode request: %w", err)
	}
	q := req.URL.Query()
	q.Set("text", text)
	if g.country != "" {
		q.Set("boundary.country", g.country)
	}
	q.Set("size", "1")
	req.URL.RawQuery = q.Encode()

	resp, err := g.do(req)
	if err != nil {
		return domain.Coordinates{}, classify(address, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, domain.Wrap(domain.CodeProviderDown, err, "geocode %q: decode response", address)
	}
	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, domain.Errorf(domain.CodeNotFound, "no geocode results for %q", address)
	}

	// GeoJSON order is lon, lat.
	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, domain.Errorf(domain.CodeNotFound, "invalid coordinate format for %q", address)
	}
	c, err := domain.NewCoordinates(coords[1], coords[0])
	if err != nil {
		return domain.Coordinates{}, domain.Wrap(domain.CodeNotFound, err, "geocode %q", address)
	}
	return c, nil
}
