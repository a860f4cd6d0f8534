package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/cellwatch/internal/adapters/reporting"
	"github.com/lcalzada-xor/cellwatch/internal/adapters/storage"
	"github.com/lcalzada-xor/cellwatch/internal/adapters/web"
	"github.com/lcalzada-xor/cellwatch/internal/adapters/ws"
	"github.com/lcalzada-xor/cellwatch/internal/config"
	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/correlate"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/keys"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/sessions"
	"github.com/lcalzada-xor/cellwatch/internal/telemetry"
)

// Coordinator is the facade wiring the coordinator's services together.
type Coordinator struct {
	Config     *config.CoordinatorConfig
	Storage    *storage.SQLiteAdapter
	Writer     *storage.ThreatWriter
	Registry   *sessions.Registry
	Engine     *correlate.Engine
	KeyService *keys.Service
	Hub        *ws.Hub
	WebServer  *web.Server

	logger  *slog.Logger
	started time.Time
}

var _ ports.CoordinatorService = (*Coordinator)(nil)

// NewCoordinator bootstraps the coordinator from configuration.
func NewCoordinator(cfg *config.CoordinatorConfig, logger *slog.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	telemetry.InitMetrics()

	store, err := storage.NewSQLiteAdapter(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	c := &Coordinator{
		Config:   cfg,
		Storage:  store,
		Writer:   storage.NewThreatWriter(store, 1024, logger),
		Registry: sessions.NewRegistry(store, cfg.SessionStaleAfter, logger),
		Engine: correlate.NewEngine(correlate.Config{
			Window:          cfg.CorrelationWindow,
			Threshold:       cfg.AttackThreshold,
			ProximityMeters: cfg.ProximityMeters,
		}),
		logger:  logger,
		started: time.Now(),
	}

	keySvc, err := keys.NewService(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	switch {
	case cfg.RegistrationKey != "":
		if err := keySvc.InstallKey(context.Background(), "default", cfg.RegistrationKey); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to install registration key: %w", err)
		}
	case !keySvc.HasKeys():
		// No key configured and none persisted; generate one so the
		// coordinator is never open.
		generated := uuid.New().String()
		logger.Warn("no registration key configured, generated one", "key", generated)
		if err := keySvc.InstallKey(context.Background(), "default", generated); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to install registration key: %w", err)
		}
	}
	c.KeyService = keySvc

	c.Hub = ws.NewHub(keySvc, c.Registry, c.Engine, c.Writer, store, c.GetStats, logger)
	c.WebServer = web.NewServer(cfg.Addr, c, c.Hub.HandleWebSocket, reporting.NewPDFExporter(), logger)

	return c, nil
}

// Run starts the background workers and blocks serving HTTP until the
// context is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.Writer.Start(ctx)
	go c.Registry.Run(ctx)

	c.logger.Info("coordinator starting",
		"addr", c.Config.Addr,
		"db", c.Config.DBPath,
		"attack_threshold", c.Config.AttackThreshold)

	return c.WebServer.Run(ctx)
}

// Close releases the coordinator's resources.
func (c *Coordinator) Close() error {
	return c.Storage.Close()
}

// GetStats aggregates the coordinator's live view for the status surfaces.
func (c *Coordinator) GetStats() domain.CoordinatorStats {
	stats := domain.NewCoordinatorStats()
	stats.ConnectedDevices = c.Registry.ActiveCount()
	stats.Uptime = c.started

	now := time.Now()
	if n, err := c.Storage.CountThreatsSince(time.Time{}); err == nil {
		stats.TotalThreats = n
	}
	if n, err := c.Storage.CountThreatsSince(now.Add(-time.Hour)); err == nil {
		stats.Threats1h = n
	}
	if n, err := c.Storage.CountThreatsSince(now.Add(-24 * time.Hour)); err == nil {
		stats.Threats24h = n
	}
	if n, err := c.Storage.CountThreatsSince(now.Add(-7 * 24 * time.Hour)); err == nil {
		stats.Threats7d = n
	}
	if counts, err := c.Storage.ThreatTypeCounts(); err == nil {
		stats.ThreatTypes = counts
	}
	return *stats
}

// ListDevices returns every known device session.
func (c *Coordinator) ListDevices() []domain.DeviceSession {
	return c.Registry.All()
}

// RecentThreats returns the newest stored threats.
func (c *Coordinator) RecentThreats(limit int) ([]domain.Threat, error) {
	return c.Storage.GetAllThreats(limit)
}

// DeviceThreats returns the newest stored threats for one device.
func (c *Coordinator) DeviceThreats(deviceID string, limit int) ([]domain.Threat, error) {
	return c.Storage.GetThreatsByDevice(deviceID, limit)
}
