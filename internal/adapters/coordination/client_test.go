package coordination

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/cellwatch/internal/adapters/ws"
	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/correlate"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/keys"
	"github.com/lcalzada-xor/cellwatch/internal/core/services/sessions"
)

type memorySink struct {
	mu      sync.Mutex
	threats []domain.Threat
}

func (s *memorySink) Enqueue(t domain.Threat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threats = append(s.threats, t)
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threats)
}

type memoryAlerts struct {
	mu          sync.Mutex
	high        []domain.Threat
	coordinated []domain.CoordinatedAttackAlert
}

func (a *memoryAlerts) HighPriorityAlert(t domain.Threat) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.high = append(a.high, t)
}

func (a *memoryAlerts) CoordinatedAttack(alert domain.CoordinatedAttackAlert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.coordinated = append(a.coordinated, alert)
}

func (a *memoryAlerts) highCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.high)
}

func startCoordinator(t *testing.T) (string, *memorySink) {
	t.Helper()

	keySvc, err := keys.NewService(nil)
	require.NoError(t, err)
	require.NoError(t, keySvc.CreateKey(context.Background(), "test", "valid-key"))

	registry := sessions.NewRegistry(nil, 0, nil)
	sink := &memorySink{}
	hub := ws.NewHub(keySvc, registry, correlate.NewEngine(correlate.DefaultConfig()), sink, nil, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws", sink
}

func testInfo(id string) DeviceInfo {
	return DeviceInfo{
		ID:         id,
		Name:       id,
		Type:       "android",
		AppVersion: "1.0",
		APIKey:     "valid-key",
	}
}

func TestClientConnect(t *testing.T) {
	url, _ := startCoordinator(t)

	c := NewClient(url, testInfo("dev1"), time.Second, nil, nil)
	assert.Equal(t, StateDisconnected, c.State())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StateActive, c.State())
}

func TestClientRegistrationRejected(t *testing.T) {
	url, _ := startCoordinator(t)

	info := testInfo("dev1")
	info.APIKey = "wrong"
	c := NewClient(url, info, time.Second, nil, nil)

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrRegistrationRejected)

	// The rejection keeps the socket open for a corrected attempt.
	assert.Equal(t, StateRegistering, c.State())
}

func TestClientReregistersAfterRejection(t *testing.T) {
	url, _ := startCoordinator(t)

	info := testInfo("dev1")
	info.APIKey = "wrong"
	c := NewClient(url, info, time.Second, nil, nil)

	err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrRegistrationRejected)
	require.Equal(t, StateRegistering, c.State())

	c.SetAPIKey("valid-key")
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StateActive, c.State())
}

func TestClientDialFailure(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", testInfo("dev1"), time.Second, nil, nil)
	err := c.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientReportThreat(t *testing.T) {
	url, sink := startCoordinator(t)

	c := NewClient(url, testInfo("dev1"), time.Second, nil, nil)
	require.NoError(t, c.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.ReportThreat(domain.Threat{
		ID:       "t-1",
		Type:     domain.ThreatTechnologyDowngrade,
		Severity: domain.SeverityMedium,
		DeviceID: "dev1",
	})

	assert.Eventually(t, func() bool { return sink.count() == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestClientDropsReportsWhileDisconnected(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", testInfo("dev1"), time.Second, nil, nil)

	// Must not panic or block.
	c.ReportThreat(domain.Threat{ID: "t-1"})
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClientReceivesHighPriorityAlerts(t *testing.T) {
	url, _ := startCoordinator(t)

	alerts := &memoryAlerts{}
	listener := NewClient(url, testInfo("listener"), time.Second, alerts, nil)
	require.NoError(t, listener.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Run(ctx)

	reporter := NewClient(url, testInfo("reporter"), time.Second, nil, nil)
	require.NoError(t, reporter.Connect(context.Background()))
	go reporter.Run(ctx)

	reporter.ReportThreat(domain.Threat{
		ID:       "t-high",
		Type:     domain.ThreatIMSICatcherSuspected,
		Severity: domain.SeverityHigh,
		DeviceID: "reporter",
	})

	assert.Eventually(t, func() bool { return alerts.highCount() >= 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestClientRunEndsDisconnected(t *testing.T) {
	url, _ := startCoordinator(t)

	c := NewClient(url, testInfo("dev1"), time.Second, nil, nil)
	require.NoError(t, c.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateDisconnected, c.State())
}
