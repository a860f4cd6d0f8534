package domain

import "time"

// MonitoringEvent is an operational log entry (connects, disconnects,
// registrations, protocol errors) kept alongside the threat history.
type MonitoringEvent struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	EventType string    `json:"event_type"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
