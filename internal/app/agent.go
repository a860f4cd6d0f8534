package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/adapters/coordination"
	"github.com/lcalzada-xor/cellwatch/internal/config"
	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/detect"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/history"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/monitor"
	"github.com/lcalzada-xor/cellwatch/internal/geo"
	"github.com/lcalzada-xor/cellwatch/internal/mock"
	"github.com/lcalzada-xor/cellwatch/internal/telemetry"
)

const (
	reconnectBase = 5 * time.Second
	reconnectMax  = time.Minute
)

// ErrNoSampleSource is returned when the agent has no radio backend to read
// from. Modem integration is platform specific and supplied by the caller;
// the built-in simulated source is only wired up in mock mode.
var ErrNoSampleSource = errors.New("no sample source available, run with -mock or supply a source")

// Agent is the facade wiring the device-side pipeline together.
type Agent struct {
	Config  *config.AgentConfig
	Source  ports.SampleSource
	Client  *coordination.Client
	Monitor *monitor.Monitor
	Alerts  *AlertChannel

	logger *slog.Logger
}

// locatedSource stamps samples that carry no position with the agent's
// location provider, so threats classified from them are correlatable.
type locatedSource struct {
	src      ports.SampleSource
	provider geo.Provider
}

var _ ports.SampleSource = (*locatedSource)(nil)

func (s *locatedSource) Next(ctx context.Context) (domain.RadioSample, error) {
	sample, err := s.src.Next(ctx)
	if err != nil || sample.Location != nil {
		return sample, err
	}
	loc := s.provider.GetLocation()
	sample.Location = &loc
	return sample, nil
}

func (s *locatedSource) Close() error { return s.src.Close() }

// NewAgent bootstraps the agent. A nil source falls back to the simulated
// source when mock mode is enabled.
func NewAgent(cfg *config.AgentConfig, source ports.SampleSource, logger *slog.Logger) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	telemetry.InitMetrics()

	if source == nil {
		if !cfg.MockMode {
			return nil, ErrNoSampleSource
		}
		source = mock.NewSimulatedSource(cfg.MockScenario, nil, time.Now().UnixNano())
		logger.Info("using simulated radio source", "scenario", cfg.MockScenario)
	}
	if cfg.Latitude != 0 || cfg.Longitude != 0 {
		source = &locatedSource{
			src:      source,
			provider: geo.NewStaticProvider(cfg.Latitude, cfg.Longitude),
		}
	}

	alerts := NewAlertChannel(defaultAlertBuffer)
	client := coordination.NewClient(cfg.CoordinatorURL, coordination.DeviceInfo{
		ID:         cfg.DeviceID,
		Name:       cfg.DeviceName,
		Type:       cfg.DeviceType,
		AppVersion: "1.0.0",
		APIKey:     cfg.RegistrationKey,
	}, cfg.HeartbeatInterval, alerts, logger)

	classifier := detect.NewRuleClassifier(detect.Thresholds{
		SignalJumpDBM:         cfg.Thresholds.SignalJumpDBM,
		TowerChanges:          cfg.Thresholds.TowerChanges,
		TowerChangeWindow:     cfg.Thresholds.TowerChangeWindow,
		SignalManipulationDBM: cfg.Thresholds.SignalManipulationDBM,
	})

	return &Agent{
		Config: cfg,
		Source: source,
		Client: client,
		Monitor: monitor.New(cfg.DeviceID, source, history.NewTracker(),
			classifier, client, cfg.SampleInterval, logger),
		Alerts: alerts,
		logger: logger,
	}, nil
}

// Run starts the connection manager and the detection loop. Detection keeps
// running while the coordinator link is down; reports made in that window
// are dropped by the client.
func (a *Agent) Run(ctx context.Context) error {
	go a.manageConnection(ctx)

	err := a.Monitor.Run(ctx)
	a.Source.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Agent) manageConnection(ctx context.Context) {
	backoff := reconnectBase
	for {
		if ctx.Err() != nil {
			return
		}

		if err := a.Client.Connect(ctx); err != nil {
			a.logger.Warn("coordinator connection failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}

		backoff = reconnectBase

		if err := a.Client.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("coordinator link lost", "error", err)
		}
	}
}
