package session

import (
	"strings"
	"unicode"

	"last-mile-planner/internal/domain"
)

// NormalizeBarcode uppercases a scanned code and strips every whitespace rune.
func NormalizeBarcode(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// Separator maps scanned package codes to their route, color and visit position.
// It never modifies the routes it indexes; the scanned set only feeds progress.
type Separator struct {
	index      map[string]ScanResult
	scanned    map[string]struct{}
	routeTotal map[int]int
	routeSeen  map[int]int
	order      []int
}

// NewSeparator indexes every package of the given assigned routes. Position is
// the 1-based position of the package's stop; packages sharing a stop share it.
func NewSeparator(routes []*domain.Route) *Separator {
	s := &Separator{
		index:      make(map[string]ScanResult),
		scanned:    make(map[string]struct{}),
		routeTotal: make(map[int]int),
		routeSeen:  make(map[int]int),
	}
	for _, r := range routes {
		s.order = append(s.order, r.ID)
		for pos, stop := range r.Stops {
			for _, p := range stop.Packages {
				s.index[NormalizeBarcode(p.PackageID)] = ScanResult{
					PackageID:    p.PackageID,
					CourierID:    r.CourierID,
					CourierName:  r.CourierName,
					RouteID:      r.ID,
					ColorName:    r.Color.Label(),
					ColorHex:     r.Color.Hex,
					Position:     pos + 1,
					TotalInRoute: len(r.Stops),
				}
				s.routeTotal[r.ID]++
			}
		}
	}
	return s
}

// Scan looks a code up and records it. Repeated scans are flagged Duplicate.
func (s *Separator) Scan(barcode string) (ScanResult, error) {
	key := NormalizeBarcode(barcode)
	res, ok := s.index[key]
	if !ok {
		return ScanResult{}, domain.Errorf(domain.CodeNotFound, "barcode %q is not in any route", barcode)
	}
	if _, seen := s.scanned[key]; seen {
		res.Duplicate = true
		return res, nil
	}
	s.scanned[key] = struct{}{}
	s.routeSeen[res.RouteID]++
	return res, nil
}

type RouteSeparation struct {
	RouteID int `json:"route_id"`
	Scanned int `json:"scanned"`
	Total   int `json:"total"`
}

type SeparationProgress struct {
	Scanned  int               `json:"scanned"`
	Total    int               `json:"total"`
	PerRoute []RouteSeparation `json:"per_route"`
}

func (s *Separator) Progress() SeparationProgress {
	p := SeparationProgress{Scanned: len(s.scanned), Total: len(s.index)}
	for _, id := range s.order {
		p.PerRoute = append(p.PerRoute, RouteSeparation{
			RouteID: id,
			Scanned: s.routeSeen[id],
			Total:   s.routeTotal[id],
		})
	}
	return p
}
