package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"last-mile-planner/internal/adapters/cache"
	"last-mile-planner/internal/config"
	"last-mile-planner/internal/services"
)

func TestNewResolverWithoutGeocoder(t *testing.T) {
	r, err := newResolver(config.Config{}, cache.NewMemoryGeocodeCache(time.Hour))
	if err != nil || r != nil {
		t.Fatalf("newResolver = %v, %v; want nil, nil", r, err)
	}
}

func TestNewResolverFromAddressBook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.json")
	book := `[{"address": "Rua Augusta, 100", "lat": -23.554, "lng": -46.658}]`
	if err := os.WriteFile(path, []byte(book), 0o600); err != nil {
		t.Fatalf("write address book: %v", err)
	}

	r, err := newResolver(config.Config{AddressBook: path}, cache.NewMemoryGeocodeCache(time.Hour))
	if err != nil || r == nil {
		t.Fatalf("newResolver = %v, %v", r, err)
	}
	found, err := r.Resolve(context.Background(), []string{"Rua Augusta, 100"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c, ok := found[services.AddressKey("Rua Augusta, 100")]; !ok || c.Lat != -23.554 {
		t.Fatalf("resolved = %v", found)
	}

	if _, err := newResolver(config.Config{AddressBook: filepath.Join(t.TempDir(), "missing.json")}, nil); err == nil {
		t.Fatal("expected an error for a missing address book")
	}
}
