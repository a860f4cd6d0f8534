package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/detect"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/history"
	"github.com/lcalzada-xor/cellwatch/internal/telemetry"
)

const DefaultInterval = 5 * time.Second

// Monitor drives the sampling loop on a device: poll the source, fold the
// sample into history, classify, and hand any threats to the reporter.
type Monitor struct {
	deviceID   string
	source     ports.SampleSource
	tracker    *history.Tracker
	classifier detect.Classifier
	reporter   ports.ThreatReporter
	interval   time.Duration
	logger     *slog.Logger

	prev *domain.RadioSample
}

func New(deviceID string, source ports.SampleSource, tracker *history.Tracker, classifier detect.Classifier, reporter ports.ThreatReporter, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		deviceID:   deviceID,
		source:     source,
		tracker:    tracker,
		classifier: classifier,
		reporter:   reporter,
		interval:   interval,
		logger:     logger,
	}
}

// Run loops until the context is cancelled. Source errors are logged and the
// loop continues; only context cancellation stops it.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sample, err := m.source.Next(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				m.logger.Warn("sample read failed", "error", err)
				continue
			}
			m.Process(sample)
		}
	}
}

// Process runs one detection cycle for a sample.
func (m *Monitor) Process(sample domain.RadioSample) []domain.Threat {
	telemetry.SamplesProcessed.Inc()

	h := m.tracker.Record(m.deviceID, sample)
	in := detect.Input{
		DeviceID: m.deviceID,
		Previous: m.prev,
		Current:  sample,
		History:  h,
	}
	threats := m.classifier.Classify(in)

	cur := sample
	m.prev = &cur

	for _, threat := range threats {
		m.logger.Warn("threat detected",
			"threat_type", threat.Type,
			"severity", threat.Severity,
			"description", threat.Description)
		telemetry.ThreatsDetected.WithLabelValues(string(threat.Type)).Inc()
		if m.reporter != nil {
			m.reporter.ReportThreat(threat)
		}
	}
	return threats
}
