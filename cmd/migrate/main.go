// Command migrate applies pending goose migrations against the configured Postgres database. It is the only binary
// that calls postgres.Migrate; oprish, pandemonium, and effis assume the schema already exists.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eludris-go/eludris/internal/config"
	"github.com/eludris-go/eludris/internal/postgres"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	log.Info().Str("instance", cfg.InstanceName).Msg("Running migrations")

	if err := postgres.Migrate(cfg.DatabaseURL, log.Logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.Info().Msg("Migrations applied")
	return nil
}
