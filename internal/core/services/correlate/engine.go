package correlate

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/geo"
)

// Config holds the correlation parameters.
type Config struct {
	// Window is how far back reports are considered.
	Window time.Duration
	// Threshold is the distinct-device count at which an alert fires.
	Threshold int
	// ProximityMeters bounds the distance between located reports. Reports
	// without a location are never excluded by distance.
	ProximityMeters float64
}

func DefaultConfig() Config {
	return Config{
		Window:          5 * time.Minute,
		Threshold:       3,
		ProximityMeters: 500,
	}
}

type report struct {
	deviceID  string
	threat    domain.ThreatType
	severity  domain.Severity
	location  *geo.Location
	timestamp time.Time
}

// Engine correlates threat reports across devices inside a sliding window.
// A coordinated attack is flagged when enough distinct devices report
// comparable threats close together in time and, when locations are known,
// in space. Safe for concurrent use.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	reports []report
	// alerted maps a membership-set key to when it was last alerted, so the
	// same group of devices does not re-trigger until the set changes.
	alerted map[string]time.Time
}

func NewEngine(cfg Config) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	return &Engine{
		cfg:     cfg,
		alerted: make(map[string]time.Time),
	}
}

// Observe feeds one threat report into the window. It returns a non-nil
// alert when the report completes a coordinated pattern that has not been
// alerted for the same device set already.
func (e *Engine) Observe(threat domain.Threat) *domain.CoordinatedAttackAlert {
	now := threat.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.prune(now)

	r := report{
		deviceID:  threat.DeviceID,
		threat:    threat.Type,
		severity:  threat.Severity,
		location:  threat.Location,
		timestamp: now,
	}
	e.reports = append(e.reports, r)

	devices := e.matchingDevices(r)
	if len(devices) < e.cfg.Threshold {
		return nil
	}

	key := strings.Join(devices, ",")
	if _, seen := e.alerted[key]; seen {
		return nil
	}
	e.alerted[key] = now

	return &domain.CoordinatedAttackAlert{
		ID:          uuid.New().String(),
		Pattern:     "simultaneous_threat_reports",
		ThreatType:  threat.Type,
		DeviceCount: len(devices),
		DeviceIDs:   devices,
		Message: fmt.Sprintf("%d devices reported correlated threats within %s",
			len(devices), e.cfg.Window),
		Timestamp: now,
	}
}

// WindowSize returns how many reports are currently retained.
func (e *Engine) WindowSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.reports)
}

func (e *Engine) prune(now time.Time) {
	cutoff := now.Add(-e.cfg.Window)
	i := 0
	for i < len(e.reports) && e.reports[i].timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		e.reports = append([]report(nil), e.reports[i:]...)
	}
	for key, at := range e.alerted {
		if at.Before(cutoff) {
			delete(e.alerted, key)
		}
	}
}

// matchingDevices returns the sorted distinct device IDs whose retained
// reports are related to r. A report is related when it shares the
// threat type or both reports are at least medium severity, and, when both
// carry a location, the two are within the proximity bound.
func (e *Engine) matchingDevices(r report) []string {
	set := make(map[string]bool)
	for _, other := range e.reports {
		if !related(r, other) {
			continue
		}
		if e.cfg.ProximityMeters > 0 && r.location != nil && other.location != nil {
			if geo.DistanceMeters(*r.location, *other.location) > e.cfg.ProximityMeters {
				continue
			}
		}
		set[other.deviceID] = true
	}

	devices := make([]string, 0, len(set))
	for id := range set {
		devices = append(devices, id)
	}
	sort.Strings(devices)
	return devices
}

func related(a, b report) bool {
	if a.threat == b.threat {
		return true
	}
	return a.severity.Rank() >= domain.SeverityMedium.Rank() &&
		b.severity.Rank() >= domain.SeverityMedium.Rank()
}
