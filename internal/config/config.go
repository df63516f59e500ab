package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"last-mile-planner/internal/services"
)

// Config holds environment-driven settings for the planner service.
type Config struct {
	Port            int
	DatabaseURL     string
	RedisURL        string
	ORSAPIKey       string
	ORSRatePerSec   float64
	ORSCountry      string
	LogLevel        string
	PlannerConfig   string
	SeedPath        string
	AddressBook     string
	GeocodeCacheTTL time.Duration
	ShutdownTimeout time.Duration

	Planner Planner
}

// Planner holds the tuning constants read from the optional YAML file.
// Omitted fields keep their defaults.
type Planner struct {
	Travel        services.TravelModel     `yaml:"travel"`
	MaxIterations int                      `yaml:"max_iterations"`
	Earnings      services.EarningsOptions `yaml:"earnings"`
}

func DefaultPlanner() Planner {
	return Planner{
		Travel:        services.DefaultTravelModel(),
		MaxIterations: services.DefaultMaxIterations,
	}
}

func (p Planner) Validate() error {
	if err := p.Travel.Validate(); err != nil {
		return err
	}
	if p.MaxIterations <= 0 {
		return errors.New("planner: max_iterations must be > 0")
	}
	if p.Earnings.RatePerPackage < 0 || p.Earnings.RatePerKm < 0 {
		return errors.New("planner: earnings rates must be >= 0")
	}
	return nil
}

// Get returns the environment value for key, or def when unset or blank.
func Get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Load reads configuration from environment variables (optionally .env),
// then the YAML tuning file named by PLANNER_CONFIG when set.
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:            8080,
		DatabaseURL:     Get("DATABASE_URL", ""),
		RedisURL:        Get("REDIS_URL", ""),
		ORSAPIKey:       Get("ORS_API_KEY", ""),
		ORSRatePerSec:   10,
		ORSCountry:      Get("ORS_COUNTRY", "BR"),
		LogLevel:        strings.ToLower(Get("LOG_LEVEL", "info")),
		PlannerConfig:   Get("PLANNER_CONFIG", ""),
		SeedPath:        Get("SEED_PATH", "data/seeds/couriers.json"),
		AddressBook:     Get("ADDRESS_BOOK", ""),
		GeocodeCacheTTL: 90 * 24 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
		Planner:         DefaultPlanner(),
	}

	if portStr := Get("PORT", ""); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
		cfg.Port = port
	}

	if rateStr := Get("ORS_RATE_PER_SEC", ""); rateStr != "" {
		r, err := strconv.ParseFloat(rateStr, 64)
		if err != nil || r < 0 {
			return cfg, fmt.Errorf("invalid ORS_RATE_PER_SEC: %s", rateStr)
		}
		cfg.ORSRatePerSec = r
	}

	if ttlStr := Get("GEOCODE_CACHE_TTL", ""); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil || ttl <= 0 {
			return cfg, fmt.Errorf("invalid GEOCODE_CACHE_TTL: %s", ttlStr)
		}
		cfg.GeocodeCacheTTL = ttl
	}

	if toStr := Get("SHUTDOWN_TIMEOUT", ""); toStr != "" {
		to, err := time.ParseDuration(toStr)
		if err != nil || to <= 0 {
			return cfg, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %s", toStr)
		}
		cfg.ShutdownTimeout = to
	}

	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return cfg, fmt.Errorf("invalid LOG_LEVEL: %s", cfg.LogLevel)
	}

	if cfg.PlannerConfig != "" {
		p, err := LoadPlanner(cfg.PlannerConfig)
		if err != nil {
			return cfg, err
		}
		cfg.Planner = p
	}

	return cfg, nil
}

// LoadPlanner reads a YAML tuning file over the defaults and validates it.
func LoadPlanner(path string) (Planner, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Planner{}, fmt.Errorf("planner config: read %q: %w", path, err)
	}
	return parsePlanner(b)
}

func parsePlanner(b []byte) (Planner, error) {
	p := DefaultPlanner()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Planner{}, fmt.Errorf("planner config: parse yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Planner{}, fmt.Errorf("planner config: %w", err)
	}
	return p, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
