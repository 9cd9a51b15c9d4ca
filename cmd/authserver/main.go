package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/battleshipd/server/internal/authserver"
	"github.com/battleshipd/server/internal/config"
	"github.com/battleshipd/server/internal/store"
)

const configPath = "config/authserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	slog.Info("battleship auth server starting")

	cfgPath := configPath
	if p := os.Getenv("BATTLESHIPD_AUTH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadAuthServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "rendezvous_port", cfg.RendezvousPort)

	st, err := store.New(cfg.UserStorePath)
	if err != nil {
		return fmt.Errorf("opening user store: %w", err)
	}
	slog.Info("user store opened", "path", cfg.UserStorePath)

	server := authserver.NewServer(cfg, st)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting auth listener", "port", cfg.Port)
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("auth listener: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
