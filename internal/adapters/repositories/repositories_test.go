package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"last-mile-planner/internal/ports"
)

var (
	_ ports.CourierRepository = (*PostgresCourierRepository)(nil)
	_ ports.PlanStore         = (*PostgresPlanStore)(nil)
)

func TestParseCourierSeed(t *testing.T) {
	couriers, err := parseCourierSeed([]byte(`[
		{"courier_id": " X ", "name": "Xavier", "max_capacity": 40},
		{"courier_id": "Y", "name": "Yara", "is_partner": true, "is_active": false}
	]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(couriers) != 2 {
		t.Fatalf("got %d couriers", len(couriers))
	}
	if couriers[0].ID != "X" || couriers[0].MaxCapacity != 40 || !couriers[0].IsActive {
		t.Fatalf("courier 0 = %+v", couriers[0])
	}
	if !couriers[1].IsPartner || couriers[1].IsActive {
		t.Fatalf("courier 1 = %+v", couriers[1])
	}
}

func TestParseCourierSeedRejectsBadRows(t *testing.T) {
	tests := map[string]string{
		"not json":     `{`,
		"empty id":     `[{"courier_id": ""}]`,
		"negative cap": `[{"courier_id": "A", "max_capacity": -1}]`,
		"duplicate":    `[{"courier_id": "A"}, {"courier_id": "A"}]`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseCourierSeed([]byte(in)); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestReadCourierSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "couriers.json")
	if err := os.WriteFile(path, []byte(`[{"courier_id": "A"}]`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	couriers, err := ReadCourierSeed(path)
	if err != nil || len(couriers) != 1 {
		t.Fatalf("read = %+v, %v", couriers, err)
	}
	if _, err := ReadCourierSeed(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestNilDB(t *testing.T) {
	ctx := context.Background()
	if err := InitSchema(ctx, nil); err == nil {
		t.Fatal("InitSchema: expected error")
	}
	if _, err := NewPostgresCourierRepository(nil).ListCouriers(ctx); err == nil {
		t.Fatal("ListCouriers: expected error")
	}
	if _, err := NewPostgresPlanStore(nil).LoadPlan(ctx, "s"); err == nil {
		t.Fatal("LoadPlan: expected error")
	}
}
