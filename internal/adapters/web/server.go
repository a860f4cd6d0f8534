package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lcalzada-xor/cellwatch/internal/adapters/reporting"
	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
)

// Server exposes the coordinator's REST surface and the device WebSocket
// endpoint.
type Server struct {
	Addr      string
	Service   ports.CoordinatorService
	WSHandler http.HandlerFunc
	Exporter  *reporting.PDFExporter

	logger *slog.Logger
	srv    *http.Server
}

func NewServer(addr string, service ports.CoordinatorService, wsHandler http.HandlerFunc, exporter *reporting.PDFExporter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Addr:      addr,
		Service:   service,
		WSHandler: wsHandler,
		Exporter:  exporter,
		logger:    logger,
	}
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	handler := s.routes()

	instrumented := otelhttp.NewHandler(handler, "cellwatch-coordinator")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumented,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown error", "error", err)
		}
	}()

	s.logger.Info("web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
