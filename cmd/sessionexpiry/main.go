package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/poker/internal/config"
	"github.com/vncsmyrnk/poker/internal/core/services"
	"github.com/vncsmyrnk/poker/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	var ttl, timeout time.Duration
	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.Database, "db-name", cfg.Postgres.Database, "Database name")
	flag.DurationVar(&ttl, "ttl", cfg.Session.TTL, "Delete sessions idle for longer than this (0 keeps them forever)")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Give up after this long")
	flag.Parse()

	if ttl <= 0 {
		log.Info().Dur("ttl", ttl).Msg("session expiry disabled, nothing to do")
		return
	}

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to reach database")
	}

	// the sweep only lists and deletes, so no notification hub is needed
	repo := postgres.NewSessionRepository(db, nil)
	expiry := services.NewExpiryService(repo, ttl, clockwork.NewRealClock())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info().Dur("ttl", ttl).Msg("starting session expiry job")

	n, err := expiry.ExpireIdle(ctx)
	if err != nil {
		log.Fatal().Err(err).Int("deleted", n).Msg("session expiry failed")
	}

	log.Info().Int("deleted", n).Msg("session expiry completed successfully")
}
