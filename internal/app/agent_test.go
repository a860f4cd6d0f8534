package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/cellwatch/internal/config"
	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

func testAgentConfig() *config.AgentConfig {
	return &config.AgentConfig{
		CoordinatorURL:    "ws://127.0.0.1:1/ws",
		DeviceID:          "dev1",
		DeviceName:        "dev1",
		DeviceType:        "test",
		MockMode:          true,
		MockScenario:      "normal",
		SampleInterval:    time.Second,
		HeartbeatInterval: time.Second,
	}
}

func TestNewAgentRequiresSource(t *testing.T) {
	cfg := testAgentConfig()
	cfg.MockMode = false

	_, err := NewAgent(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrNoSampleSource)
}

func TestAgentStampsConfiguredLocation(t *testing.T) {
	cfg := testAgentConfig()
	cfg.Latitude = 40.4168
	cfg.Longitude = -3.7038

	a, err := NewAgent(cfg, nil, nil)
	require.NoError(t, err)
	defer a.Source.Close()

	sample, err := a.Source.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sample.Location)
	assert.Equal(t, 40.4168, sample.Location.Latitude)
	assert.Equal(t, -3.7038, sample.Location.Longitude)
}

func TestAgentWithoutLocationLeavesSamplesUnstamped(t *testing.T) {
	a, err := NewAgent(testAgentConfig(), nil, nil)
	require.NoError(t, err)
	defer a.Source.Close()

	sample, err := a.Source.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sample.Location)
}

func TestAgentExposesAlertChannels(t *testing.T) {
	a, err := NewAgent(testAgentConfig(), nil, nil)
	require.NoError(t, err)
	defer a.Source.Close()

	require.NotNil(t, a.Alerts)

	a.Alerts.HighPriorityAlert(domain.Threat{ID: "t-1", Severity: domain.SeverityHigh})
	select {
	case got := <-a.Alerts.HighPriority():
		assert.Equal(t, "t-1", got.ID)
	default:
		t.Fatal("high priority alert not delivered")
	}

	a.Alerts.CoordinatedAttack(domain.CoordinatedAttackAlert{ID: "a-1", DeviceCount: 3})
	select {
	case got := <-a.Alerts.Coordinated():
		assert.Equal(t, 3, got.DeviceCount)
	default:
		t.Fatal("coordinated attack alert not delivered")
	}
}

func TestAlertChannelNeverBlocks(t *testing.T) {
	sink := NewAlertChannel(1)

	// Second send overflows the buffer and must drop, not block.
	sink.HighPriorityAlert(domain.Threat{ID: "t-1"})
	sink.HighPriorityAlert(domain.Threat{ID: "t-2"})

	got := <-sink.HighPriority()
	assert.Equal(t, "t-1", got.ID)
	select {
	case <-sink.HighPriority():
		t.Fatal("overflow alert should have been dropped")
	default:
	}
}
