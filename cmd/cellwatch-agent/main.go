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

	cfg := config.LoadAgent()
	if cfg.Debug {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	shutdownTracer, err := telemetry.InitTracer("cellwatch-agent")
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	agent, err := app.NewAgent(cfg, nil, logger)
	if err != nil {
		slog.Error("Failed to initialize agent", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("cellwatch agent starting", "device_id", cfg.DeviceID)

	if err := agent.Run(ctx); err != nil {
		slog.Error("Agent error", "error", err)
		cancel()
	}
}
