package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/detect"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/history"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/monitor"
)

func drain(t *testing.T, src *SimulatedSource, n int) []domain.RadioSample {
	t.Helper()
	ctx := context.Background()
	samples := make([]domain.RadioSample, 0, n)
	for i := 0; i < n; i++ {
		s, err := src.Next(ctx)
		require.NoError(t, err)
		samples = append(samples, s)
	}
	return samples
}

func TestNormalScenarioStaysQuiet(t *testing.T) {
	src := NewSimulatedSource(ScenarioNormal, nil, 1)
	m := monitor.New("sim", src, history.NewTracker(),
		detect.NewRuleClassifier(detect.DefaultThresholds()), nil, time.Second, nil)

	total := 0
	for _, s := range drain(t, src, 50) {
		total += len(m.Process(s))
	}
	assert.Zero(t, total)
}

func TestIMSICatcherScenarioTriggersDetection(t *testing.T) {
	src := NewSimulatedSource(ScenarioIMSICatcher, nil, 1)
	m := monitor.New("sim", src, history.NewTracker(),
		detect.NewRuleClassifier(detect.DefaultThresholds()), nil, time.Second, nil)

	imsi := 0
	for _, s := range drain(t, src, 50) {
		for _, th := range m.Process(s) {
			if th.Type == domain.ThreatIMSICatcherSuspected {
				imsi++
			}
		}
	}
	assert.Greater(t, imsi, 0)
}

func TestDowngradeScenarioTriggersDowngrades(t *testing.T) {
	src := NewSimulatedSource(ScenarioDowngrade, nil, 1)
	m := monitor.New("sim", src, history.NewTracker(),
		detect.NewRuleClassifier(detect.DefaultThresholds()), nil, time.Second, nil)

	tech, enc := 0, 0
	for _, s := range drain(t, src, 50) {
		for _, th := range m.Process(s) {
			switch th.Type {
			case domain.ThreatTechnologyDowngrade:
				tech++
			case domain.ThreatEncryptionDowngrade:
				enc++
			}
		}
	}
	assert.Greater(t, tech, 0)
	assert.Greater(t, enc, 0)
}

func TestNextRespectsContext(t *testing.T) {
	src := NewSimulatedSource(ScenarioNormal, nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	assert.Error(t, err)
}

func TestSamplesCarryMetrics(t *testing.T) {
	src := NewSimulatedSource(ScenarioNormal, nil, 1)
	s, err := src.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.Metrics)
	assert.NotNil(t, s.Metrics.TimingAdvance)
	assert.NotNil(t, s.Metrics.RSRP)
	assert.Nil(t, s.Metrics.SINR)
	assert.NotEmpty(t, s.TowerKey())
}
