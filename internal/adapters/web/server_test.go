package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/cellwatch/internal/adapters/reporting"
	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

type stubService struct {
	stats   domain.CoordinatorStats
	devices []domain.DeviceSession
	threats []domain.Threat
	err     error
}

func (s *stubService) GetStats() domain.CoordinatorStats   { return s.stats }
func (s *stubService) ListDevices() []domain.DeviceSession { return s.devices }
func (s *stubService) RecentThreats(limit int) ([]domain.Threat, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > 0 && limit < len(s.threats) {
		return s.threats[:limit], nil
	}
	return s.threats, nil
}

func (s *stubService) DeviceThreats(deviceID string, limit int) ([]domain.Threat, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Threat
	for _, t := range s.threats {
		if t.DeviceID == deviceID {
			out = append(out, t)
		}
	}
	return out, nil
}

func newTestServer(svc *stubService) *Server {
	return NewServer(":0", svc, nil, reporting.NewPDFExporter(), nil)
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleStats(t *testing.T) {
	svc := &stubService{stats: domain.CoordinatorStats{
		ConnectedDevices: 2,
		TotalThreats:     9,
		ThreatTypes:      map[domain.ThreatType]int{domain.ThreatIMSICatcherSuspected: 9},
	}}
	rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/stats")

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.CoordinatorStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.ConnectedDevices)
	assert.Equal(t, 9, got.TotalThreats)
}

func TestHandleStatus(t *testing.T) {
	svc := &stubService{stats: domain.CoordinatorStats{ConnectedDevices: 1, Uptime: time.Now()}}
	rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/status")

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got["status"])
}

func TestHandleThreats(t *testing.T) {
	svc := &stubService{threats: []domain.Threat{
		{ID: "t-1", DeviceID: "dev1", Type: domain.ThreatIMSICatcherSuspected},
		{ID: "t-2", DeviceID: "dev2", Type: domain.ThreatTechnologyDowngrade},
	}}

	t.Run("all threats", func(t *testing.T) {
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/threats")
		require.Equal(t, http.StatusOK, rec.Code)
		var got []domain.Threat
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("limit applies", func(t *testing.T) {
		rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/threats?limit=1")
		var got []domain.Threat
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 1)
	})

	t.Run("storage error maps to 500", func(t *testing.T) {
		rec := doRequest(t, newTestServer(&stubService{err: assert.AnError}), http.MethodGet, "/api/threats")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleDeviceThreats(t *testing.T) {
	svc := &stubService{threats: []domain.Threat{
		{ID: "t-1", DeviceID: "dev1"},
		{ID: "t-2", DeviceID: "dev2"},
	}}
	rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/devices/dev1/threats")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Threat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "t-1", got[0].ID)
}

func TestHandleDevices(t *testing.T) {
	svc := &stubService{devices: []domain.DeviceSession{
		{DeviceID: "dev1", State: domain.SessionActive},
	}}
	rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/devices")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.DeviceSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "dev1", got[0].DeviceID)
}

func TestHandleReportDownload(t *testing.T) {
	svc := &stubService{threats: []domain.Threat{{ID: "t-1", DeviceID: "dev1", Timestamp: time.Now()}}}
	rec := doRequest(t, newTestServer(svc), http.MethodGet, "/api/reports/download")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, len(rec.Body.Bytes()) > 0)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := doRequest(t, newTestServer(&stubService{}), http.MethodPost, "/api/stats")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
