package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
	"github.com/lcalzada-xor/cellwatch/internal/telemetry"
)

// ThreatWriter batches threat reports into storage in the background so the
// session read loops never block on the database. When the queue fills up,
// new reports are dropped rather than stalling the producer.
type ThreatWriter struct {
	storage   ports.Storage
	queue     chan domain.Threat
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

func NewThreatWriter(storage ports.Storage, bufferSize int, logger *slog.Logger) *ThreatWriter {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreatWriter{
		storage:   storage,
		queue:     make(chan domain.Threat, bufferSize),
		batchSize: 100,
		interval:  5 * time.Second,
		logger:    logger,
	}
}

// Enqueue queues a threat for persistence. Never blocks.
func (w *ThreatWriter) Enqueue(t domain.Threat) {
	select {
	case w.queue <- t:
	default:
		telemetry.ThreatsDropped.WithLabelValues("queue_full").Inc()
		w.logger.Warn("threat write queue full, dropping report", "threat_id", t.ID)
	}
}

// Start begins the write loop. The final buffer is flushed on shutdown.
func (w *ThreatWriter) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	buffer := make(map[string]domain.Threat)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				w.flush(buffer)
				return
			case t := <-w.queue:
				buffer[t.ID] = t
				if len(buffer) >= w.batchSize {
					w.flush(buffer)
					buffer = make(map[string]domain.Threat)
				}
			case <-ticker.C:
				if len(buffer) > 0 {
					w.flush(buffer)
					buffer = make(map[string]domain.Threat)
				}
			}
		}
	}()
}

func (w *ThreatWriter) flush(buffer map[string]domain.Threat) {
	if len(buffer) == 0 || w.storage == nil {
		return
	}
	threats := make([]domain.Threat, 0, len(buffer))
	for _, t := range buffer {
		threats = append(threats, t)
	}
	if err := w.storage.SaveThreatsBatch(threats); err != nil {
		w.logger.Error("failed to batch save threats", "count", len(threats), "error", err)
	}
}
