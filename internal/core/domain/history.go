package domain

import "time"

// CellChange records a handover to a new serving tower.
type CellChange struct {
	TowerKey  string    `json:"tower_key"`
	Timestamp time.Time `json:"timestamp"`
}

// DeviceHistory is the rolling observation window kept per device.
// Signals holds recent signal strength readings, CellChanges the tower
// handovers still inside the retention window.
type DeviceHistory struct {
	DeviceID    string       `json:"device_id"`
	Signals     []int        `json:"signals"`
	CellChanges []CellChange `json:"cell_changes"`
	LastTower   string       `json:"last_tower"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ChangesSince counts tower changes at or after cutoff.
func (h *DeviceHistory) ChangesSince(cutoff time.Time) int {
	n := 0
	for _, c := range h.CellChanges {
		if !c.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}
