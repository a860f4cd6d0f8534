package domain

import (
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/geo"
)

// Technology identifies the radio access technology of the serving cell.
type Technology string

const (
	Tech5G      Technology = "5G"
	Tech4G      Technology = "4G"
	Tech3G      Technology = "3G"
	Tech2G      Technology = "2G"
	TechUnknown Technology = "unknown"
)

// Rank returns the generation ordering used for downgrade detection.
// Higher is newer; unknown ranks below everything.
func (t Technology) Rank() int {
	switch t {
	case Tech5G:
		return 4
	case Tech4G:
		return 3
	case Tech3G:
		return 2
	case Tech2G:
		return 1
	default:
		return 0
	}
}

// Encryption identifies the cipher tier reported for the serving cell.
type Encryption string

const (
	EncryptionA53     Encryption = "A5/3"
	EncryptionA51     Encryption = "A5/1"
	EncryptionA50     Encryption = "A5/0"
	EncryptionNone    Encryption = "None"
	EncryptionUnknown Encryption = "Unknown"
)

// Rank orders cipher tiers by strength. Unknown ranks -1 so that a
// transition into or out of Unknown is never treated as a downgrade.
func (e Encryption) Rank() int {
	switch e {
	case EncryptionA53:
		return 3
	case EncryptionA51:
		return 2
	case EncryptionA50:
		return 1
	case EncryptionNone:
		return 0
	default:
		return -1
	}
}

// CellularMetrics carries the fine-grained radio measurements a platform
// collector may or may not be able to supply. Each field is independently
// optional; nil means the collector could not observe it, which is distinct
// from a measured zero.
type CellularMetrics struct {
	TimingAdvance *int     `json:"timing_advance,omitempty"`
	RSRP          *float64 `json:"rsrp,omitempty"`
	RSRQ          *float64 `json:"rsrq,omitempty"`
	SINR          *float64 `json:"sinr,omitempty"`
}

// RadioSample is a point-in-time observation of the serving cell.
// Samples are immutable once created; the pipeline never writes back.
type RadioSample struct {
	CellID     string           `json:"cell_id"`
	LAC        string           `json:"lac"`
	MCC        string           `json:"mcc"`
	MNC        string           `json:"mnc"`
	SignalDBM  int              `json:"signal_dbm"`
	Technology Technology       `json:"technology"`
	Encryption Encryption       `json:"encryption"`
	Metrics    *CellularMetrics `json:"metrics,omitempty"`
	Location   *geo.Location    `json:"location,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// TowerKey identifies the serving cell within its location area.
func (s RadioSample) TowerKey() string {
	return s.CellID + "_" + s.LAC
}
