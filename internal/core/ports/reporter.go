package ports

import "github.com/lcalzada-xor/cellwatch/internal/core/domain"

// ThreatReporter forwards locally detected threats upstream. Implementations
// must not block the detection loop; reports may be dropped when no
// upstream link is available.
type ThreatReporter interface {
	ReportThreat(threat domain.Threat)
}

// AlertSink receives coordinator-originated alerts on a device.
type AlertSink interface {
	HighPriorityAlert(threat domain.Threat)
	CoordinatedAttack(alert domain.CoordinatedAttackAlert)
}
