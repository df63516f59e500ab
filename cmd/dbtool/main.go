package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"last-mile-planner/internal/adapters/repositories"
	"last-mile-planner/internal/config"
	"last-mile-planner/internal/platform/db"
)

// dbtool prepares a Postgres database: it creates the schema and upserts the
// courier roster from SEED_PATH.
func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "dbtool").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	log.Info().Msg("initializing database schema")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		log.Fatal().Err(err).Msg("schema initialization failed")
	}

	n, err := repositories.SeedCouriersFromJSON(ctx, conn, cfg.SeedPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SeedPath).Msg("seeding failed")
	}
	log.Info().Int("couriers", n).Str("path", cfg.SeedPath).Msg("seeding complete")
}
