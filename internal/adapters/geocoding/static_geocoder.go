package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"last-mile-planner/internal/domain"
)

type StaticEntry struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// StaticGeocoder answers from a fixed address table. It backs local runs
// without an ORS key. Lookups ignore case and repeated whitespace.
type StaticGeocoder struct {
	m map[string]domain.Coordinates
}

func NewStaticGeocoder(entries []StaticEntry) *StaticGeocoder {
	m := make(map[string]domain.Coordinates, len(entries))
	for _, e := range entries {
		m[staticKey(e.Address)] = domain.Coordinates{Lat: e.Lat, Lng: e.Lng}
	}
	return &StaticGeocoder{m: m}
}

// LoadStaticGeocoder reads a JSON array of StaticEntry from path.
func LoadStaticGeocoder(path string) (*StaticGeocoder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("address book: read %q: %w", path, err)
	}
	var entries []StaticEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("address book: parse %q: %w", path, err)
	}
	for i, e := range entries {
		if _, err := domain.NewCoordinates(e.Lat, e.Lng); err != nil {
			return nil, fmt.Errorf("address book: entry %d (%q): %w", i+1, e.Address, err)
		}
	}
	return NewStaticGeocoder(entries), nil
}

func staticKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (g *StaticGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	c, ok := g.m[staticKey(address)]
	if !ok {
		return domain.Coordinates{}, domain.Errorf(domain.CodeNotFound, "missing address %q", address)
	}
	return c, nil
}
