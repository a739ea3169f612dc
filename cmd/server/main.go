package main

import (
	"context"
	"database/sql"
	"errors"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/adapters/handler/http"
	"github.com/vncsmyrnk/poker/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/poker/internal/adapters/repository/natskv"
	"github.com/vncsmyrnk/poker/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/poker/internal/config"
	"github.com/vncsmyrnk/poker/internal/core/ports"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, janitor, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open session store")
	}
	defer cleanup()

	if janitor != nil && cfg.Session.TTL > 0 {
		expiry := services.NewExpiryService(janitor, cfg.Session.TTL, clockwork.NewRealClock())
		go expiry.Run(ctx, cfg.Session.SweepInterval)
	}

	sessionHandler := http.NewSessionHandler(store)
	handler := http.NewHandler(sessionHandler, cfg.Server.AllowedOrigins)
	server := &stdhttp.Server{Addr: cfg.Addr(), Handler: handler}
	server.RegisterOnShutdown(sessionHandler.Shutdown)

	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("backend", cfg.Store.Backend).Msg("poker server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("shutdown failed")
	}
}

// openStore builds the configured backend. The janitor is nil for stores that expire sessions themselves.
// A session TTL of 0 keeps sessions forever on every backend.
func openStore(ctx context.Context, cfg *config.Config) (ports.SessionStore, ports.SessionJanitor, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		connStr := cfg.Postgres.ConnString()
		db, err := sql.Open("postgres", connStr)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}

		hubCfg := postgres.DefaultHubConfig()
		hubCfg.DatabaseURL = connStr
		hub, err := postgres.NewHub(db, hubCfg)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		go func() {
			if err := hub.Start(ctx); err != nil {
				log.Error().Err(err).Msg("session listener stopped")
			}
		}()

		repo := postgres.NewSessionRepository(db, hub)
		return repo, repo, func() { db.Close() }, nil

	case config.BackendNATS:
		natsCfg := natskv.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Bucket = cfg.NATS.Bucket
		natsCfg.TTL = cfg.Session.TTL
		repo, err := natskv.Connect(ctx, natsCfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return repo, nil, repo.Close, nil

	default:
		repo := memory.NewSessionRepository(clockwork.NewRealClock())
		return repo, repo, func() {}, nil
	}
}
