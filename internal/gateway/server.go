package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uipbdi/authgw/internal/config"
	"github.com/uipbdi/authgw/internal/health"
	"github.com/uipbdi/authgw/internal/middleware"
	"github.com/uipbdi/authgw/internal/observability"
)

// Server is the inline HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     observability.Logger
}

// NewServer creates the inline listener with the standard middleware chain
// around the authorization handler.
func NewServer(cfg config.ServerConfig, handler http.Handler, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger()
	}

	chained := middleware.Chain(handler,
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      chained,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Start serves until the listener is closed. It does not return
// http.ErrServerClosed as an error.
func (s *Server) Start() error {
	s.logger.Info("inline listener starting",
		observability.String("address", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("inline listener shutting down")
	return s.httpServer.Shutdown(ctx)
}

// NewOpsServer creates the operations listener serving metrics and probes.
func NewOpsServer(cfg config.OpsConfig, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", checker.HealthHandler())
	mux.HandleFunc("/livez", checker.LivenessHandler())
	mux.HandleFunc("/readyz", checker.ReadinessHandler())

	return &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: mux,
	}
}
