package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readyTimeout bounds a single readiness check.
const readyTimeout = 2 * time.Second

// ReadyCheck reports whether the daemon can serve drive operations.
type ReadyCheck func(ctx context.Context) error

// Server is the daemon's operational HTTP endpoint.
//
// Endpoints:
//   - GET /metrics: Prometheus exposition (503 when collection is disabled)
//   - GET /healthz: liveness, always ok while the process runs
//   - GET /readyz: readiness, runs the configured ReadyCheck
//   - GET /: plain-text list of the above
type Server struct {
	server       *http.Server
	port         int
	handler      http.Handler
	shutdownOnce sync.Once

	mu    sync.RWMutex
	ready ReadyCheck
}

// ServerConfig configures the metrics HTTP server.
type ServerConfig struct {
	// Port to listen on. Default: 9090
	Port int

	// Gatherer overrides the registry served at /metrics. Defaults to the
	// global registry when metrics are enabled.
	Gatherer prometheus.Gatherer
}

func (c *ServerConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 9090
	}
}

// NewServer creates a stopped server. Call Start to serve requests.
func NewServer(config ServerConfig) *Server {
	config.applyDefaults()

	s := &Server{port: config.Port}
	mux := http.NewServeMux()

	gatherer := config.Gatherer
	if gatherer == nil && IsEnabled() {
		gatherer = GetRegistry()
	}
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	} else {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics collection is disabled", http.StatusServiceUnavailable)
		})
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/readyz", s.serveReady)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "dittodrive\n\n/metrics  prometheus metrics\n/healthz  liveness\n/readyz   metadata store reachability\n")
	})

	s.handler = mux
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// SetReadyCheck installs the check behind /readyz. Until one is set the
// server reports not ready.
func (s *Server) SetReadyCheck(check ReadyCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = check
}

func (s *Server) serveReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	check := s.ready
	s.mu.RUnlock()

	if check == nil {
		http.Error(w, "starting", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := check(ctx); err != nil {
		logger.Warn("Readiness check failed: %v", err)
		http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintln(w, "ready")
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Metrics server listening on port %d", s.port)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("metrics server shutdown error: %w", err)
			return
		}
		logger.Info("Metrics server stopped")
	})
	return shutdownErr
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.port
}
