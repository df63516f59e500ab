package geo

import (
	"math"
	"testing"

	"last-mile-planner/internal/domain"
)

func TestHaversineKm(t *testing.T) {
	// São Paulo Sé to Paulista avenue, roughly 2.6 km apart.
	a := domain.Coordinates{Lat: -23.5505, Lng: -46.6333}
	b := domain.Coordinates{Lat: -23.5614, Lng: -46.6559}

	got := HaversineKm(a, b)
	if got < 2.4 || got > 2.8 {
		t.Fatalf("distance = %.3f km, want about 2.6", got)
	}
	if d := HaversineKm(a, a); d != 0 {
		t.Fatalf("self distance = %v, want 0", d)
	}
	if math.Abs(HaversineKm(a, b)-HaversineKm(b, a)) > 1e-12 {
		t.Fatalf("distance is not symmetric")
	}
	if math.Abs(HaversineMeters(a, b)-got*1000) > 1e-9 {
		t.Fatalf("meters and km disagree")
	}
}

func TestBoundsAndArea(t *testing.T) {
	pts := []domain.Coordinates{
		{Lat: -23.55, Lng: -46.64},
		{Lat: -23.56, Lng: -46.63},
		{Lat: -23.54, Lng: -46.65},
	}
	b := Bounds(pts)
	if b.MinLat != -23.56 || b.MaxLat != -23.54 || b.MinLng != -46.65 || b.MaxLng != -46.63 {
		t.Fatalf("unexpected bounds %+v", b)
	}
	if b.AreaKm2() <= 0 {
		t.Fatalf("area should be positive, got %v", b.AreaKm2())
	}

	same := Bounds([]domain.Coordinates{pts[0], pts[0]})
	if same.AreaKm2() != 0 {
		t.Fatalf("degenerate box area = %v, want 0", same.AreaKm2())
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid([]domain.Coordinates{{Lat: 0, Lng: 0}, {Lat: 2, Lng: 4}})
	if c.Lat != 1 || c.Lng != 2 {
		t.Fatalf("centroid = %+v", c)
	}
}

func TestNeighborhood(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Rua Augusta, 1500 - Consolação, São Paulo - SP", "CONSOLAÇÃO"},
		{"Av. Paulista, 900 - Bela  Vista", "BELA VISTA"},
		{"Rua Harmonia 20, Vila Madalena, São Paulo", "VILA MADALENA"},
		{"Somewhere", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Neighborhood(tt.in); got != tt.want {
			t.Errorf("Neighborhood(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	if got := Round(3.14159, 2); got != 3.14 {
		t.Errorf("Round = %v", got)
	}
	if got := Round(2.25, 1); got != 2.3 {
		t.Errorf("Round = %v", got)
	}
}
