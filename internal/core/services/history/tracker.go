package history

import (
	"sync"
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

const (
	// maxSignals bounds the per-device signal window.
	maxSignals = 100
	// changeRetention is how long tower changes stay in the window.
	changeRetention = 24 * time.Hour
)

// Tracker keeps a rolling observation window per device. It is safe for
// concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	devices map[string]*domain.DeviceHistory
}

func NewTracker() *Tracker {
	return &Tracker{
		devices: make(map[string]*domain.DeviceHistory),
	}
}

// Record folds a sample into the device's history and returns a snapshot
// of the updated window. The first sample for a device never counts as a
// tower change.
func (t *Tracker) Record(deviceID string, sample domain.RadioSample) domain.DeviceHistory {
	now := sample.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.devices[deviceID]
	if !ok {
		h = &domain.DeviceHistory{DeviceID: deviceID}
		t.devices[deviceID] = h
	}

	h.Signals = append(h.Signals, sample.SignalDBM)
	if len(h.Signals) > maxSignals {
		h.Signals = h.Signals[len(h.Signals)-maxSignals:]
	}

	tower := sample.TowerKey()
	if h.LastTower != "" && h.LastTower != tower {
		h.CellChanges = append(h.CellChanges, domain.CellChange{
			TowerKey:  tower,
			Timestamp: now,
		})
	}
	h.LastTower = tower
	h.UpdatedAt = now

	h.CellChanges = pruneChanges(h.CellChanges, now.Add(-changeRetention))

	return snapshot(h)
}

// Get returns a snapshot of the device's history, or false if the device
// has never been seen.
func (t *Tracker) Get(deviceID string) (domain.DeviceHistory, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, ok := t.devices[deviceID]
	if !ok {
		return domain.DeviceHistory{}, false
	}
	return snapshot(h), true
}

// Reset drops the history for a device.
func (t *Tracker) Reset(deviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.devices, deviceID)
}

func pruneChanges(changes []domain.CellChange, cutoff time.Time) []domain.CellChange {
	i := 0
	for i < len(changes) && changes[i].Timestamp.Before(cutoff) {
		i++
	}
	if i == 0 {
		return changes
	}
	return append([]domain.CellChange(nil), changes[i:]...)
}

func snapshot(h *domain.DeviceHistory) domain.DeviceHistory {
	out := *h
	out.Signals = append([]int(nil), h.Signals...)
	out.CellChanges = append([]domain.CellChange(nil), h.CellChanges...)
	return out
}
