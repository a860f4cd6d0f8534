package detect

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

// defaultConfidence is attached to every rule-derived threat.
const defaultConfidence = 0.8

// Classifier turns one evaluation cycle into zero or more threats.
type Classifier interface {
	Classify(in Input) []domain.Threat
}

// RuleClassifier is the threshold-based classifier. Threats are emitted in
// fixed precedence order; an IMSI catcher suspicion requires both the
// signal and tower rules to fire and is emitted at most once per cycle.
type RuleClassifier struct {
	thresholds Thresholds
}

var _ Classifier = (*RuleClassifier)(nil)

func NewRuleClassifier(th Thresholds) *RuleClassifier {
	return &RuleClassifier{thresholds: th}
}

func (c *RuleClassifier) Classify(in Input) []domain.Threat {
	flags := Flags(in, c.thresholds)
	now := in.Current.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	var threats []domain.Threat
	emit := func(tt domain.ThreatType, sev domain.Severity, desc string) {
		threats = append(threats, domain.Threat{
			ID:          uuid.New().String(),
			Type:        tt,
			Severity:    sev,
			Description: desc,
			Timestamp:   now,
			Confidence:  defaultConfidence,
			DeviceID:    in.DeviceID,
			Location:    in.Current.Location,
			Cellular:    in.Current.Metrics,
		})
	}

	if flags.Has(domain.FlagRapidSignalChange) && flags.Has(domain.FlagFrequentTowerChange) {
		emit(domain.ThreatIMSICatcherSuspected, domain.SeverityHigh,
			fmt.Sprintf("rapid signal change (%d dBm) combined with frequent tower changes", in.SignalDelta()))
	}

	if flags.Has(domain.FlagTechnologyDowngrade) {
		emit(domain.ThreatTechnologyDowngrade, domain.SeverityMedium,
			fmt.Sprintf("technology downgrade %s -> %s", in.Previous.Technology, in.Current.Technology))
	}

	if flags.Has(domain.FlagEncryptionDowngrade) {
		emit(domain.ThreatEncryptionDowngrade, domain.SeverityMedium,
			fmt.Sprintf("encryption downgrade %s -> %s", in.Previous.Encryption, in.Current.Encryption))
	}

	if in.Previous != nil && in.SignalDelta() > c.thresholds.SignalManipulationDBM {
		emit(domain.ThreatSignalManipulation, domain.SeverityMedium,
			fmt.Sprintf("abnormal signal swing of %d dBm between consecutive samples", in.SignalDelta()))
	}

	return threats
}
