package mock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
	"github.com/lcalzada-xor/cellwatch/internal/geo"
)

// Simulation scenarios.
const (
	ScenarioNormal      = "normal"
	ScenarioIMSICatcher = "imsi-catcher"
	ScenarioDowngrade   = "downgrade"
)

// Realistic carrier PLMNs for generated samples.
var carriers = []struct {
	mcc string
	mnc string
}{
	{"310", "260"}, // T-Mobile US
	{"310", "410"}, // AT&T
	{"311", "480"}, // Verizon
	{"214", "01"},  // Vodafone ES
	{"214", "07"},  // Movistar
}

// SimulatedSource generates radio samples without any modem hardware. The
// scenario controls whether the stream looks benign or like an attack:
//
//	normal       - stable tower, small signal drift, 4G with A5/3
//	imsi-catcher - rapid tower hopping with big signal swings
//	downgrade    - periodic forced drops to 2G with weakened ciphers
type SimulatedSource struct {
	scenario string
	location *geo.Location
	rng      *rand.Rand

	mcc, mnc string
	tick     int
	tower    int
	signal   int
}

var _ ports.SampleSource = (*SimulatedSource)(nil)

func NewSimulatedSource(scenario string, location *geo.Location, seed int64) *SimulatedSource {
	rng := rand.New(rand.NewSource(seed))
	carrier := carriers[rng.Intn(len(carriers))]
	return &SimulatedSource{
		scenario: scenario,
		location: location,
		rng:      rng,
		mcc:      carrier.mcc,
		mnc:      carrier.mnc,
		tower:    1000 + rng.Intn(9000),
		signal:   -85,
	}
}

// Next produces the next simulated sample immediately.
func (s *SimulatedSource) Next(ctx context.Context) (domain.RadioSample, error) {
	select {
	case <-ctx.Done():
		return domain.RadioSample{}, ctx.Err()
	default:
	}

	s.tick++
	switch s.scenario {
	case ScenarioIMSICatcher:
		return s.imsiCatcherSample(), nil
	case ScenarioDowngrade:
		return s.downgradeSample(), nil
	default:
		return s.normalSample(), nil
	}
}

func (s *SimulatedSource) Close() error { return nil }

func (s *SimulatedSource) normalSample() domain.RadioSample {
	// Small drift, occasional legitimate handover.
	s.signal += s.rng.Intn(7) - 3
	if s.signal < -110 {
		s.signal = -110
	}
	if s.signal > -60 {
		s.signal = -60
	}
	if s.rng.Intn(50) == 0 {
		s.tower++
	}
	return s.sample(domain.Tech4G, domain.EncryptionA53)
}

func (s *SimulatedSource) imsiCatcherSample() domain.RadioSample {
	// Hop towers constantly with implausible signal swings.
	if s.tick%2 == 0 {
		s.tower++
		s.signal = -50 - s.rng.Intn(10)
	} else {
		s.signal = -100 + s.rng.Intn(10)
	}
	return s.sample(domain.Tech4G, domain.EncryptionA53)
}

func (s *SimulatedSource) downgradeSample() domain.RadioSample {
	s.signal += s.rng.Intn(5) - 2
	// Hold 4G for a stretch, then force 2G with a weak cipher.
	if s.tick%10 < 5 {
		return s.sample(domain.Tech4G, domain.EncryptionA53)
	}
	return s.sample(domain.Tech2G, domain.EncryptionA50)
}

func (s *SimulatedSource) sample(tech domain.Technology, enc domain.Encryption) domain.RadioSample {
	ta := s.rng.Intn(8)
	rsrp := float64(s.signal) - 10 - s.rng.Float64()*5
	return domain.RadioSample{
		CellID:     fmt.Sprintf("%d", s.tower),
		LAC:        "410",
		MCC:        s.mcc,
		MNC:        s.mnc,
		SignalDBM:  s.signal,
		Technology: tech,
		Encryption: enc,
		Metrics: &domain.CellularMetrics{
			TimingAdvance: &ta,
			RSRP:          &rsrp,
		},
		Location:  s.location,
		Timestamp: time.Now().UTC(),
	}
}
