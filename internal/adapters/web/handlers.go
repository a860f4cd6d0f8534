package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

const defaultThreatLimit = 100

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func limitParam(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return defaultThreatLimit
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Service.GetStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"connected_devices": stats.ConnectedDevices,
		"uptime_since":      stats.Uptime,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Service.GetStats())
}

func (s *Server) handleThreats(w http.ResponseWriter, r *http.Request) {
	threats, err := s.Service.RecentThreats(limitParam(r))
	if err != nil {
		s.logger.Error("failed to load threats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load threats")
		return
	}
	writeJSON(w, http.StatusOK, threats)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Service.ListDevices())
}

func (s *Server) handleDeviceThreats(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]
	threats, err := s.Service.DeviceThreats(deviceID, limitParam(r))
	if err != nil {
		s.logger.Error("failed to load device threats", "device_id", deviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load threats")
		return
	}
	writeJSON(w, http.StatusOK, threats)
}

func (s *Server) handleReportDownload(w http.ResponseWriter, r *http.Request) {
	if s.Exporter == nil {
		writeError(w, http.StatusNotImplemented, "report generation disabled")
		return
	}

	threats, err := s.Service.RecentThreats(limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load threats")
		return
	}

	pdf, err := s.Exporter.ExportThreatReport(s.Service.GetStats(), threats)
	if err != nil {
		s.logger.Error("failed to generate report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	filename := fmt.Sprintf("cellwatch-report-%s.pdf", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Write(pdf)
}
