package sessions

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
	"github.com/lcalzada-xor/cellwatch/internal/telemetry"
)

const (
	// DefaultStaleAfter marks a session inactive after three missed
	// heartbeat intervals.
	DefaultStaleAfter = 90 * time.Second
	sweepInterval     = 15 * time.Second
)

// Registry tracks device sessions on the coordinator. Sessions survive
// disconnects as inactive records so counters carry across reconnects.
type Registry struct {
	store      ports.Storage
	staleAfter time.Duration
	logger     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*domain.DeviceSession
}

func NewRegistry(store ports.Storage, staleAfter time.Duration, logger *slog.Logger) *Registry {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:      store,
		staleAfter: staleAfter,
		logger:     logger,
		sessions:   make(map[string]*domain.DeviceSession),
	}
}

// Register marks a device connected, creating the session on first sight.
// Reconnects keep the accumulated counters.
func (r *Registry) Register(deviceID, name, deviceType, appVersion string) domain.DeviceSession {
	now := time.Now()

	r.mu.Lock()
	s, ok := r.sessions[deviceID]
	if !ok {
		s = &domain.DeviceSession{
			DeviceID:    deviceID,
			ConnectedAt: now,
		}
		r.sessions[deviceID] = s
	}
	s.DeviceName = name
	s.DeviceType = deviceType
	s.AppVersion = appVersion
	s.State = domain.SessionActive
	s.LastSeen = now
	s.ConnectionCount++
	snap := *s
	r.mu.Unlock()

	r.persist(snap)
	r.updateGauge()
	return snap
}

// Heartbeat refreshes LastSeen. Unknown devices are ignored.
func (r *Registry) Heartbeat(deviceID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[deviceID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	s.LastSeen = time.Now()
	s.State = domain.SessionActive
	snap := *s
	r.mu.Unlock()

	r.persist(snap)
	return true
}

// Disconnect marks the session inactive but keeps its record.
func (r *Registry) Disconnect(deviceID string) {
	r.mu.Lock()
	s, ok := r.sessions[deviceID]
	if ok {
		s.State = domain.SessionInactive
	}
	var snap domain.DeviceSession
	if ok {
		snap = *s
	}
	r.mu.Unlock()

	if ok {
		r.persist(snap)
	}
	r.updateGauge()
}

// RecordThreat increments the per-device threat counter.
func (r *Registry) RecordThreat(deviceID string) {
	r.mu.Lock()
	s, ok := r.sessions[deviceID]
	if ok {
		s.ThreatCount++
	}
	var snap domain.DeviceSession
	if ok {
		snap = *s
	}
	r.mu.Unlock()

	if ok {
		r.persist(snap)
	}
}

// Get returns a snapshot of one session.
func (r *Registry) Get(deviceID string) (domain.DeviceSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[deviceID]
	if !ok {
		return domain.DeviceSession{}, false
	}
	return *s, true
}

// All returns snapshots of every session, ordered by device ID.
func (r *Registry) All() []domain.DeviceSession {
	r.mu.RLock()
	out := make([]domain.DeviceSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// ActiveCount returns how many sessions are currently active.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.State == domain.SessionActive {
			n++
		}
	}
	return n
}

// Sweep marks sessions inactive when their last heartbeat is older than the
// staleness bound. It returns the devices swept.
func (r *Registry) Sweep(now time.Time) []string {
	cutoff := now.Add(-r.staleAfter)

	r.mu.Lock()
	var swept []string
	var snaps []domain.DeviceSession
	for id, s := range r.sessions {
		if s.State == domain.SessionActive && s.LastSeen.Before(cutoff) {
			s.State = domain.SessionInactive
			swept = append(swept, id)
			snaps = append(snaps, *s)
		}
	}
	r.mu.Unlock()

	for _, snap := range snaps {
		r.persist(snap)
	}
	if len(swept) > 0 {
		r.logger.Info("marked stale sessions inactive", "devices", swept)
		r.updateGauge()
	}
	return swept
}

// Run sweeps periodically until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

func (r *Registry) persist(s domain.DeviceSession) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveSession(s); err != nil {
		r.logger.Error("failed to persist session", "device_id", s.DeviceID, "error", err)
	}
}

func (r *Registry) updateGauge() {
	telemetry.ConnectedDevices.Set(float64(r.ActiveCount()))
}
