package detect

import (
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

// Thresholds holds the tunable limits for the detection rules.
type Thresholds struct {
	// SignalJumpDBM is the consecutive-sample signal delta above which
	// RAPID_SIGNAL_CHANGE fires. Strictly greater than.
	SignalJumpDBM int
	// TowerChanges is the per-window tower change count above which
	// FREQUENT_TOWER_CHANGES fires. Strictly greater than.
	TowerChanges int
	// TowerChangeWindow is the trailing window for the tower change count.
	TowerChangeWindow time.Duration
	// SignalManipulationDBM is the consecutive-sample delta above which a
	// SIGNAL_MANIPULATION threat is raised.
	SignalManipulationDBM int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		SignalJumpDBM:         20,
		TowerChanges:          5,
		TowerChangeWindow:     time.Hour,
		SignalManipulationDBM: 30,
	}
}

// Input is one evaluation cycle: the sample under examination, the sample
// before it (nil on the first cycle), and the device's rolling history as
// of the current sample.
type Input struct {
	DeviceID string
	Previous *domain.RadioSample
	Current  domain.RadioSample
	History  domain.DeviceHistory
}

// SignalDelta returns the signal change against the previous sample, or
// 0 when there is no previous sample.
func (in Input) SignalDelta() int {
	if in.Previous == nil {
		return 0
	}
	d := in.Current.SignalDBM - in.Previous.SignalDBM
	if d < 0 {
		return -d
	}
	return d
}

// Flags evaluates the anomaly rules for one cycle. The evaluation is pure:
// it never mutates the input and the same input always yields the same set.
func Flags(in Input, th Thresholds) domain.FlagSet {
	flags := make(domain.FlagSet)

	if in.Previous != nil && in.SignalDelta() > th.SignalJumpDBM {
		flags.Add(domain.FlagRapidSignalChange)
	}

	cutoff := in.Current.Timestamp.Add(-th.TowerChangeWindow)
	if in.History.ChangesSince(cutoff) > th.TowerChanges {
		flags.Add(domain.FlagFrequentTowerChange)
	}

	if in.Previous != nil {
		if in.Current.Technology.Rank() < in.Previous.Technology.Rank() {
			flags.Add(domain.FlagTechnologyDowngrade)
		}
		if in.Previous.Encryption.Rank() > 0 &&
			in.Current.Encryption.Rank() >= 0 &&
			in.Current.Encryption.Rank() < in.Previous.Encryption.Rank() {
			flags.Add(domain.FlagEncryptionDowngrade)
		}
	}

	return flags
}
