package storage

import (
	"encoding/json"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/geo"
)

// threatToModel converts a domain threat to a database model.
func threatToModel(t domain.Threat) ThreatModel {
	m := ThreatModel{
		ThreatID:    t.ID,
		Type:        string(t.Type),
		Severity:    string(t.Severity),
		Description: t.Description,
		Confidence:  t.Confidence,
		DeviceID:    t.DeviceID,
		Timestamp:   t.Timestamp,
	}

	if t.Location != nil {
		lat, lon := t.Location.Latitude, t.Location.Longitude
		m.Latitude = &lat
		m.Longitude = &lon
	}

	if t.Cellular != nil {
		if raw, err := json.Marshal(t.Cellular); err == nil {
			m.Cellular = string(raw)
		}
	}

	return m
}

// threatToDomain converts a database model back to a domain threat.
// Optional columns reconstruct to nil, not zero values.
func threatToDomain(m ThreatModel) domain.Threat {
	t := domain.Threat{
		ID:          m.ThreatID,
		Type:        domain.ThreatType(m.Type),
		Severity:    domain.Severity(m.Severity),
		Description: m.Description,
		Confidence:  m.Confidence,
		DeviceID:    m.DeviceID,
		Timestamp:   m.Timestamp,
	}

	if m.Latitude != nil && m.Longitude != nil {
		t.Location = &geo.Location{Latitude: *m.Latitude, Longitude: *m.Longitude}
	}

	if m.Cellular != "" {
		var metrics domain.CellularMetrics
		if err := json.Unmarshal([]byte(m.Cellular), &metrics); err == nil {
			t.Cellular = &metrics
		}
	}

	return t
}

func sessionToModel(s domain.DeviceSession) DeviceSessionModel {
	return DeviceSessionModel{
		DeviceID:        s.DeviceID,
		DeviceName:      s.DeviceName,
		DeviceType:      s.DeviceType,
		AppVersion:      s.AppVersion,
		State:           s.State,
		ConnectedAt:     s.ConnectedAt,
		LastSeen:        s.LastSeen,
		ConnectionCount: s.ConnectionCount,
		ThreatCount:     s.ThreatCount,
	}
}

func sessionToDomain(m DeviceSessionModel) domain.DeviceSession {
	return domain.DeviceSession{
		DeviceID:        m.DeviceID,
		DeviceName:      m.DeviceName,
		DeviceType:      m.DeviceType,
		AppVersion:      m.AppVersion,
		State:           m.State,
		ConnectedAt:     m.ConnectedAt,
		LastSeen:        m.LastSeen,
		ConnectionCount: m.ConnectionCount,
		ThreatCount:     m.ThreatCount,
	}
}

func eventToModel(e domain.MonitoringEvent) EventModel {
	return EventModel{
		EventID:   e.ID,
		DeviceID:  e.DeviceID,
		EventType: e.EventType,
		Details:   e.Details,
		Timestamp: e.Timestamp,
	}
}
