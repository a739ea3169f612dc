package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vncsmyrnk/poker/internal/adapters/handler/cli"
	"github.com/vncsmyrnk/poker/internal/adapters/remote"
	"github.com/vncsmyrnk/poker/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/poker/internal/config"
	"github.com/vncsmyrnk/poker/internal/core/services"
	"github.com/vncsmyrnk/poker/internal/logging"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(newApp).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newApp wires the terminal client: identity in a local sqlite file, sessions on the poker server.
func newApp(ctx context.Context, opts *cli.RootOptions) (*cli.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// logs would interleave with command output, so only warnings reach stderr
	level := cfg.Logging.Level
	if level == "info" || level == "debug" || level == "trace" {
		level = "warn"
	}
	logging.Setup(os.Stderr, level, "text")

	serverURL := cfg.Client.ServerURL
	if opts.Server != "" {
		serverURL = opts.Server
	}

	store, err := remote.NewSessionClient(serverURL)
	if err != nil {
		return nil, err
	}

	kv, err := sqlite.Open(cfg.Client.StateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}

	identity := services.NewIdentityService(kv)
	rcfg := services.DefaultReconcilerConfig()
	rcfg.MaxParticipants = cfg.Session.MaxParticipants
	rcfg.WriteTimeout = cfg.Session.WriteTimeout

	return &cli.App{
		Sessions:  services.NewSessionService(store, identity, rcfg),
		Identity:  identity,
		ShareBase: cfg.Client.ShareBase,
		Close:     kv.Close,
	}, nil
}
