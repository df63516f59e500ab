package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"last-mile-planner/internal/adapters/cache"
	"last-mile-planner/internal/adapters/events"
	"last-mile-planner/internal/adapters/geocoding"
	"last-mile-planner/internal/adapters/repositories"
	"last-mile-planner/internal/api"
	"last-mile-planner/internal/config"
	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/platform/db"
	"last-mile-planner/internal/platform/metrics"
	"last-mile-planner/internal/ports"
	"last-mile-planner/internal/services"
	"last-mile-planner/internal/session"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS) behind ports and starts the HTTP server.
// Postgres and Redis are optional; without them state and caches stay in memory.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "last-mile-planner").Logger()

	zerolog.DefaultContextLogger = &logger
	metrics.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	registry := session.NewCourierRegistry()
	var (
		geocodeCache ports.GeocodeCache
		planStore    ports.PlanStore
	)

	if cfg.DatabaseURL != "" {
		conn, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer conn.Close()

		n, err := registry.Load(ctx, repositories.NewPostgresCourierRepository(conn))
		if err != nil {
			logger.Fatal().Err(err).Msg("load couriers")
		}
		logger.Info().Int("couriers", n).Msg("courier roster loaded")

		geocodeCache = cache.NewSQLGeocodeCache(conn, cfg.GeocodeCacheTTL)
		planStore = repositories.NewPostgresPlanStore(conn)
	}

	var broker events.Broker = events.NewMemoryBroker()
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rdb.Close()

		broker = events.NewRedisBroker(rdb)
		// Postgres keeps geocodes when configured; Redis holds them otherwise.
		if geocodeCache == nil {
			geocodeCache = cache.NewRedisGeocodeCache(rdb, cfg.GeocodeCacheTTL)
		}
	}
	if geocodeCache == nil {
		geocodeCache = cache.NewMemoryGeocodeCache(cfg.GeocodeCacheTTL)
	}

	resolver, err := newResolver(cfg, geocodeCache)
	if err != nil {
		logger.Fatal().Err(err).Msg("geocoder")
	}
	if resolver == nil {
		logger.Warn().Msg("no ORS_API_KEY or ADDRESS_BOOK: points must carry coordinates")
	}

	opts := session.Options{
		Registry:      registry,
		Publisher:     broker,
		Model:         cfg.Planner.Travel,
		Earnings:      cfg.Planner.Earnings,
		MaxIterations: cfg.Planner.MaxIterations,
		OnPublishError: func(evt domain.ProgressEvent, err error) {
			logger.Warn().Err(err).Str("session", evt.SessionID).Uint64("seq", evt.SequenceNo).Msg("publish event")
		},
	}
	// A nil *GeocodeResolver must not become a non-nil interface.
	if resolver != nil {
		opts.Resolver = resolver
	}
	manager := session.NewManager(opts, planStore)
	manager.OnPersistError = func(id string, err error) {
		logger.Error().Err(err).Str("session", id).Msg("persist plan")
	}

	// Planning with a cold geocode cache waits on the provider, so writes get a long timeout.
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           api.NewRouter(manager, broker, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

func openDatabase(ctx context.Context, url string) (*sql.DB, error) {
	conn, err := db.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := repositories.InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// newResolver picks ORS when a key is set, then the static address book.
// It returns nil when neither is configured.
func newResolver(cfg config.Config, c ports.GeocodeCache) (*services.GeocodeResolver, error) {
	var g ports.Geocoder
	switch {
	case cfg.ORSAPIKey != "":
		ors, err := geocoding.NewORSGeocoder(cfg.ORSAPIKey,
			geocoding.WithCountry(cfg.ORSCountry),
			geocoding.WithRate(cfg.ORSRatePerSec),
		)
		if err != nil {
			return nil, err
		}
		g = ors
	case cfg.AddressBook != "":
		book, err := geocoding.LoadStaticGeocoder(cfg.AddressBook)
		if err != nil {
			return nil, err
		}
		g = book
	default:
		return nil, nil
	}
	// More workers than the provider's rate only queue on its limiter.
	workers := services.DefaultGeocodeWorkers
	if cfg.ORSAPIKey != "" && cfg.ORSRatePerSec >= 1 && int(cfg.ORSRatePerSec) < workers {
		workers = int(cfg.ORSRatePerSec)
	}
	return services.NewGeocodeResolver(g, c, services.WithGeocodeWorkers(workers)), nil
}
