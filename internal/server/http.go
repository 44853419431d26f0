package server

import (
	"context"
	"net/http"
	"time"

	"SynthLedger/internal/observability"
	"SynthLedger/internal/query"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HTTPServer serves the query API plus liveness and readiness probes.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

func NewHTTPServer(
	addr string,
	queryHandler *query.HTTPHandler,
	healthChecker *observability.HealthChecker,
	log zerolog.Logger,
) *HTTPServer {
	router := mux.NewRouter()
	queryHandler.Register(router)
	router.HandleFunc("/healthz", healthChecker.LivenessHandler).Methods(http.MethodGet)
	router.HandleFunc("/readyz", healthChecker.ReadinessHandler).Methods(http.MethodGet)

	return &HTTPServer{
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start serves until ctx is cancelled (blocking).
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// NewMetricsServer serves the Prometheus scrape endpoint on its own
// listener.
func NewMetricsServer(addr string, log zerolog.Logger) *HTTPServer {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	return &HTTPServer{
		server: &http.Server{Addr: addr, Handler: metricsMux},
		log:    log,
	}
}
