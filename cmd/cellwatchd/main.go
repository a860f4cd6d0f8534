package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lcalzada-xor/cellwatch/internal/app"
	"github.com/lcalzada-xor/cellwatch/internal/config"
	"github.com/lcalzada-xor/cellwatch/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.LoadCoordinator()
	if cfg.Debug {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	shutdownTracer, err := telemetry.InitTracer("cellwatchd")
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	coordinator, err := app.NewCoordinator(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize coordinator", "error", err)
		os.Exit(1)
	}
	defer coordinator.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("cellwatch coordinator starting")

	if err := coordinator.Run(ctx); err != nil {
		slog.Error("Coordinator error", "error", err)
		cancel()
	}
}
