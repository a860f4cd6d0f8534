package ports

import (
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

// Storage defines the behavior for coordinator-side persistence.
type Storage interface {
	// SaveThreat saves a threat report. Reports with an already-known
	// threat ID are ignored.
	SaveThreat(threat domain.Threat) error
	SaveThreatsBatch(threats []domain.Threat) error

	// GetAllThreats retrieves stored threats, newest first, capped at limit.
	GetAllThreats(limit int) ([]domain.Threat, error)
	GetThreatsByDevice(deviceID string, limit int) ([]domain.Threat, error)
	CountThreatsSince(since time.Time) (int, error)
	ThreatTypeCounts() (map[domain.ThreatType]int, error)

	// SaveSession saves or updates a device session record.
	SaveSession(session domain.DeviceSession) error
	GetSession(deviceID string) (*domain.DeviceSession, error)
	GetAllSessions() ([]domain.DeviceSession, error)

	// SaveEvent appends to the monitoring event log.
	SaveEvent(event domain.MonitoringEvent) error

	// Close closes the storage connection.
	Close() error
}
