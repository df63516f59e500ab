package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"last-mile-planner/internal/services"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DATABASE_URL", "REDIS_URL", "ORS_API_KEY", "ORS_RATE_PER_SEC", "ORS_COUNTRY",
		"LOG_LEVEL", "PLANNER_CONFIG", "SEED_PATH", "ADDRESS_BOOK", "GEOCODE_CACHE_TTL", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.ListenAddr() != ":8080" {
		t.Fatalf("port = %d", cfg.Port)
	}
	if cfg.LogLevel != "info" || cfg.ORSRatePerSec != 10 || cfg.GeocodeCacheTTL != 90*24*time.Hour {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Planner.Travel != services.DefaultTravelModel() || cfg.Planner.MaxIterations != 50 {
		t.Fatalf("planner = %+v", cfg.Planner)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ORS_RATE_PER_SEC", "2.5")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("GEOCODE_CACHE_TTL", "24h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 || cfg.ORSRatePerSec != 2.5 || cfg.LogLevel != "debug" || cfg.GeocodeCacheTTL != 24*time.Hour {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("redis = %q", cfg.RedisURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string][2]string{
		"port":     {"PORT", "eighty"},
		"range":    {"PORT", "70000"},
		"rate":     {"ORS_RATE_PER_SEC", "-1"},
		"ttl":      {"GEOCODE_CACHE_TTL", "forever"},
		"level":    {"LOG_LEVEL", "loud"},
		"shutdown": {"SHUTDOWN_TIMEOUT", "0s"},
		"planner":  {"PLANNER_CONFIG", "/does/not/exist.yaml"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestPlannerYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	body := `
travel:
  speed_kmh: 30
  exact_limit: 6
max_iterations: 80
earnings:
  rate_per_package: 2.5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	clearEnv(t)
	t.Setenv("PLANNER_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p := cfg.Planner
	if p.Travel.SpeedKmh != 30 || p.Travel.ExactLimit != 6 || p.MaxIterations != 80 || p.Earnings.RatePerPackage != 2.5 {
		t.Fatalf("planner = %+v", p)
	}
	// Untouched fields keep their defaults.
	if p.Travel.TrafficFactor != 0.85 || p.Travel.ServiceMinutesPerStop != 3 {
		t.Fatalf("defaults lost: %+v", p.Travel)
	}
}

func TestParsePlannerRejects(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "speed: 30\n",
		"bad speed":      "travel:\n  speed_kmh: 0\n",
		"exact too high": "travel:\n  exact_limit: 12\n",
		"iterations":     "max_iterations: -3\n",
		"negative rate":  "earnings:\n  rate_per_km: -1\n",
		"not yaml":       "travel: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parsePlanner([]byte(body)); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
	if p, err := parsePlanner(nil); err != nil || p != DefaultPlanner() {
		t.Fatalf("empty file = %+v, %v", p, err)
	}
}

func TestGet(t *testing.T) {
	t.Setenv("LMP_TEST_KEY", "  value ")
	if got := Get("LMP_TEST_KEY", "def"); got != "value" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("LMP_TEST_KEY", " ")
	if got := Get("LMP_TEST_KEY", "def"); got != "def" {
		t.Fatalf("got %q", got)
	}
}
