package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/battleshipd/server/internal/arbiter"
	"github.com/battleshipd/server/internal/config"
	"github.com/battleshipd/server/internal/model"
	"github.com/battleshipd/server/internal/session"
	"github.com/battleshipd/server/internal/store"
)

const configPath = "config/gameserver.yaml"

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

	slog.Info("battleship game server starting")

	cfgPath := configPath
	if p := os.Getenv("BATTLESHIPD_GAME_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadGameServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "grid_size", cfg.GridSize)

	st, err := store.New(cfg.UserStorePath)
	if err != nil {
		return fmt.Errorf("opening user store: %w", err)
	}
	slog.Info("user store opened", "path", cfg.UserStorePath)

	arb := arbiter.New(cfg.GridSize, modelFleet(cfg.Fleet))
	server := session.NewServer(cfg, st, arb)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting tcp acceptor", "port", cfg.Port)
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("tcp acceptor: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func modelFleet(fleet []config.ShipClass) []model.ShipClass {
	out := make([]model.ShipClass, len(fleet))
	for i, sc := range fleet {
		out[i] = model.ShipClass{Name: sc.Name, Length: sc.Length}
	}
	return out
}
