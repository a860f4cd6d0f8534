package domain

import "time"

const (
	SessionActive   = "active"
	SessionInactive = "inactive"
)

// DeviceSession is the coordinator-side record of a monitoring device.
// It outlives the connection: a device that drops goes inactive but keeps
// its counters for when it reconnects.
type DeviceSession struct {
	DeviceID        string    `json:"device_id"`
	DeviceName      string    `json:"device_name"`
	DeviceType      string    `json:"device_type"`
	AppVersion      string    `json:"app_version"`
	State           string    `json:"state"`
	ConnectedAt     time.Time `json:"connected_at"`
	LastSeen        time.Time `json:"last_seen"`
	ConnectionCount int       `json:"connection_count"`
	ThreatCount     int       `json:"threat_count"`
}

// CoordinatorStats is the aggregate view served by the status endpoints.
type CoordinatorStats struct {
	ConnectedDevices int                `json:"connected_devices"`
	TotalThreats     int                `json:"total_threats"`
	Threats1h        int                `json:"threats_1h"`
	Threats24h       int                `json:"threats_24h"`
	Threats7d        int                `json:"threats_7d"`
	ThreatTypes      map[ThreatType]int `json:"threat_types"`
	Uptime           time.Time          `json:"uptime"`
}

func NewCoordinatorStats() *CoordinatorStats {
	return &CoordinatorStats{ThreatTypes: make(map[ThreatType]int)}
}
