package domain

import (
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/geo"
)

// ThreatType defines the category of a classified cellular threat.
type ThreatType string

const (
	ThreatIMSICatcherSuspected ThreatType = "IMSI_CATCHER_SUSPECTED"
	ThreatTechnologyDowngrade  ThreatType = "TECHNOLOGY_DOWNGRADE"
	ThreatEncryptionDowngrade  ThreatType = "ENCRYPTION_DOWNGRADE"
	ThreatSignalManipulation   ThreatType = "SIGNAL_MANIPULATION"
)

// Severity represents the criticality of a threat.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities so thresholds like ">= medium" are comparable.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Threat is a classified security event. It is created by the classifier and
// read-only afterwards; the coordination layer forwards it, never mutates it.
type Threat struct {
	ID          string           `json:"threat_id"`
	Type        ThreatType       `json:"threat_type"`
	Severity    Severity         `json:"severity"`
	Description string           `json:"description"`
	Timestamp   time.Time        `json:"timestamp"`
	Confidence  float64          `json:"confidence"`
	DeviceID    string           `json:"device_id"`
	Location    *geo.Location    `json:"location,omitempty"`
	Cellular    *CellularMetrics `json:"cellular_data,omitempty"`
}

// CoordinatedAttackAlert is raised by the correlation engine when enough
// distinct devices report comparable threats inside the sliding window.
type CoordinatedAttackAlert struct {
	ID          string     `json:"alert_id"`
	Pattern     string     `json:"attack_pattern"`
	ThreatType  ThreatType `json:"threat_type"`
	DeviceCount int        `json:"device_count"`
	DeviceIDs   []string   `json:"device_ids"`
	Message     string     `json:"message"`
	Timestamp   time.Time  `json:"timestamp"`
}
