package ws

import (
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

// Message types exchanged between devices and the coordinator. Every frame
// is a JSON object with a "type" discriminator.
const (
	MsgRegisterDevice      = "register_device"
	MsgRegistrationSuccess = "registration_success"
	MsgError               = "error"
	MsgHeartbeat           = "heartbeat"
	MsgHeartbeatAck        = "heartbeat_ack"
	MsgCellularThreat      = "cellular_threat"
	MsgThreatAcknowledged  = "threat_acknowledged"
	MsgGetStatus           = "get_status"
	MsgStatusResponse      = "status_response"
	MsgHighPriorityAlert   = "high_priority_alert"
	MsgCoordinatedAttack   = "coordinated_attack_detected"
)

// Envelope is the first-pass decode used to dispatch on message type.
type Envelope struct {
	Type string `json:"type"`
}

type RegisterDevice struct {
	Type       string    `json:"type"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	DeviceType string    `json:"device_type"`
	AppVersion string    `json:"app_version"`
	APIKey     string    `json:"api_key"`
	Timestamp  time.Time `json:"timestamp"`
}

type RegistrationSuccess struct {
	Type       string    `json:"type"`
	DeviceID   string    `json:"device_id"`
	Message    string    `json:"message"`
	ServerTime time.Time `json:"server_time"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Heartbeat struct {
	Type      string    `json:"type"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
}

type HeartbeatAck struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// CellularThreat carries the threat fields flat at message level, the shape
// device clients produce and consume.
type CellularThreat struct {
	Type string `json:"type"`
	domain.Threat
}

type ThreatAcknowledged struct {
	Type     string `json:"type"`
	ThreatID string `json:"threat_id"`
}

type GetStatus struct {
	Type string `json:"type"`
}

type StatusResponse struct {
	Type    string                  `json:"type"`
	Stats   domain.CoordinatorStats `json:"stats"`
	Devices []domain.DeviceSession  `json:"devices"`
}

type HighPriorityAlert struct {
	Type   string        `json:"type"`
	Threat domain.Threat `json:"threat"`
}

type CoordinatedAttack struct {
	Type  string                        `json:"type"`
	Alert domain.CoordinatedAttackAlert `json:"alert"`
}
