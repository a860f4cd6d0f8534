package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/keys"
	"github.com/lcalzada-xor/cellwatch/internal/geo"
)

func newTestAdapter(t *testing.T) *SQLiteAdapter {
	t.Helper()
	a, err := NewSQLiteAdapter(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func testThreat(device string, tt domain.ThreatType, ts time.Time) domain.Threat {
	return domain.Threat{
		ID:          uuid.New().String(),
		Type:        tt,
		Severity:    domain.SeverityHigh,
		Description: "test threat",
		Confidence:  0.8,
		DeviceID:    device,
		Timestamp:   ts,
	}
}

func TestSaveThreatIdempotent(t *testing.T) {
	a := newTestAdapter(t)
	threat := testThreat("dev1", domain.ThreatIMSICatcherSuspected, time.Now())

	require.NoError(t, a.SaveThreat(threat))
	require.NoError(t, a.SaveThreat(threat))

	threats, err := a.GetAllThreats(0)
	require.NoError(t, err)
	assert.Len(t, threats, 1)
}

func TestThreatRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ta := 4
	rsrp := -95.5
	threat := testThreat("dev1", domain.ThreatIMSICatcherSuspected, time.Now().UTC())
	threat.Location = &geo.Location{Latitude: 40.4168, Longitude: -3.7038}
	threat.Cellular = &domain.CellularMetrics{TimingAdvance: &ta, RSRP: &rsrp}

	require.NoError(t, a.SaveThreat(threat))

	threats, err := a.GetAllThreats(1)
	require.NoError(t, err)
	require.Len(t, threats, 1)

	got := threats[0]
	assert.Equal(t, threat.ID, got.ID)
	require.NotNil(t, got.Location)
	assert.InDelta(t, 40.4168, got.Location.Latitude, 1e-9)
	require.NotNil(t, got.Cellular)
	require.NotNil(t, got.Cellular.TimingAdvance)
	assert.Equal(t, 4, *got.Cellular.TimingAdvance)
	assert.Nil(t, got.Cellular.RSRQ)
}

func TestOptionalFieldsStayAbsent(t *testing.T) {
	a := newTestAdapter(t)
	require.NoError(t, a.SaveThreat(testThreat("dev1", domain.ThreatTechnologyDowngrade, time.Now())))

	threats, err := a.GetAllThreats(1)
	require.NoError(t, err)
	require.Len(t, threats, 1)
	assert.Nil(t, threats[0].Location)
	assert.Nil(t, threats[0].Cellular)
}

func TestThreatQueries(t *testing.T) {
	a := newTestAdapter(t)
	now := time.Now()

	require.NoError(t, a.SaveThreatsBatch([]domain.Threat{
		testThreat("dev1", domain.ThreatIMSICatcherSuspected, now.Add(-2*time.Hour)),
		testThreat("dev1", domain.ThreatTechnologyDowngrade, now.Add(-30*time.Minute)),
		testThreat("dev2", domain.ThreatIMSICatcherSuspected, now.Add(-5*time.Minute)),
	}))

	t.Run("newest first with limit", func(t *testing.T) {
		threats, err := a.GetAllThreats(2)
		require.NoError(t, err)
		require.Len(t, threats, 2)
		assert.Equal(t, "dev2", threats[0].DeviceID)
	})

	t.Run("by device", func(t *testing.T) {
		threats, err := a.GetThreatsByDevice("dev1", 0)
		require.NoError(t, err)
		assert.Len(t, threats, 2)
	})

	t.Run("count since", func(t *testing.T) {
		n, err := a.CountThreatsSince(now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("type counts", func(t *testing.T) {
		counts, err := a.ThreatTypeCounts()
		require.NoError(t, err)
		assert.Equal(t, 2, counts[domain.ThreatIMSICatcherSuspected])
		assert.Equal(t, 1, counts[domain.ThreatTechnologyDowngrade])
	})
}

func TestSessionRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	s := domain.DeviceSession{
		DeviceID:        "dev1",
		DeviceName:      "north gate",
		DeviceType:      "android",
		AppVersion:      "2.1.0",
		State:           domain.SessionActive,
		ConnectedAt:     time.Now().UTC(),
		LastSeen:        time.Now().UTC(),
		ConnectionCount: 3,
		ThreatCount:     7,
	}
	require.NoError(t, a.SaveSession(s))

	got, err := a.GetSession("dev1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ConnectionCount)
	assert.Equal(t, 7, got.ThreatCount)

	// Save is an upsert.
	s.ThreatCount = 8
	require.NoError(t, a.SaveSession(s))
	all, err := a.GetAllSessions()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 8, all[0].ThreatCount)
}

func TestSaveEvent(t *testing.T) {
	a := newTestAdapter(t)
	err := a.SaveEvent(domain.MonitoringEvent{
		ID:        uuid.New().String(),
		DeviceID:  "dev1",
		EventType: "device_registered",
		Timestamp: time.Now(),
	})
	assert.NoError(t, err)
}

func TestKeyStorage(t *testing.T) {
	a := newTestAdapter(t)

	require.NoError(t, a.Save("default", "hash-1"))
	require.NoError(t, a.Save("backup", "hash-2"))

	hashes, err := a.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"default": "hash-1", "backup": "hash-2"}, hashes)

	// Save is an upsert.
	require.NoError(t, a.Save("default", "hash-3"))
	hashes, err = a.All()
	require.NoError(t, err)
	assert.Equal(t, "hash-3", hashes["default"])
}

func TestKeysSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.db")

	a, err := NewSQLiteAdapter(path)
	require.NoError(t, err)
	svc, err := keys.NewService(a)
	require.NoError(t, err)
	require.NoError(t, svc.CreateKey(context.Background(), "default", "secret-key"))
	require.NoError(t, a.Close())

	reopened, err := NewSQLiteAdapter(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	svc2, err := keys.NewService(reopened)
	require.NoError(t, err)
	id, err := svc2.VerifyKey(context.Background(), "secret-key")
	require.NoError(t, err)
	assert.Equal(t, "default", id)
}
