package app

import (
	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
)

const defaultAlertBuffer = 16

// AlertChannel buffers coordinator-pushed alerts for a presentation
// consumer. Sends never block: when nobody drains the channels the alert is
// dropped, so a missing consumer can never stall the read pump.
type AlertChannel struct {
	highPriority chan domain.Threat
	coordinated  chan domain.CoordinatedAttackAlert
}

var _ ports.AlertSink = (*AlertChannel)(nil)

func NewAlertChannel(buffer int) *AlertChannel {
	if buffer <= 0 {
		buffer = defaultAlertBuffer
	}
	return &AlertChannel{
		highPriority: make(chan domain.Threat, buffer),
		coordinated:  make(chan domain.CoordinatedAttackAlert, buffer),
	}
}

func (a *AlertChannel) HighPriorityAlert(t domain.Threat) {
	select {
	case a.highPriority <- t:
	default:
	}
}

func (a *AlertChannel) CoordinatedAttack(alert domain.CoordinatedAttackAlert) {
	select {
	case a.coordinated <- alert:
	default:
	}
}

// HighPriority is the consumer side of the high-priority alert stream.
func (a *AlertChannel) HighPriority() <-chan domain.Threat {
	return a.highPriority
}

// Coordinated is the consumer side of the coordinated-attack alert stream.
func (a *AlertChannel) Coordinated() <-chan domain.CoordinatedAttackAlert {
	return a.coordinated
}
