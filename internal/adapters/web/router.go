package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	if s.WSHandler != nil {
		r.HandleFunc("/ws", s.WSHandler)
	}

	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/threats", s.handleThreats).Methods(http.MethodGet)
	r.HandleFunc("/api/devices", s.handleDevices).Methods(http.MethodGet)
	r.HandleFunc("/api/devices/{id}/threats", s.handleDeviceThreats).Methods(http.MethodGet)
	r.HandleFunc("/api/reports/download", s.handleReportDownload).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
