package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kasuganosora/statsgate/pkg/config"
	"github.com/kasuganosora/statsgate/pkg/monitor"
	"github.com/kasuganosora/statsgate/pkg/resolver"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// SnapshotSource provides the in-process counters reported by /api/v1/health.
type SnapshotSource interface {
	GetSnapshot() monitor.Snapshot
}

// Server is the HTTP REST API server
type Server struct {
	cfg        config.ServerConfig
	metricsCfg config.MetricsConfig
	resolver   resolver.Resolver
	snapshots  SnapshotSource
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	now        func() time.Time
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes gatherer on the metrics path and snapshots on /api/v1/health.
func WithMetrics(cfg config.MetricsConfig, gatherer prometheus.Gatherer, snapshots SnapshotSource) Option {
	return func(s *Server) {
		s.metricsCfg = cfg
		s.gatherer = gatherer
		s.snapshots = snapshots
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for signature checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates a new HTTP API server
func NewServer(cfg config.ServerConfig, res resolver.Resolver, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		resolver: res,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler builds the routed handler with the global middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("/api/v1/health", s.health)

	dashboard := NewDashboardHandler(s.resolver, s.logger)
	dashboard.now = s.now
	mux.Handle("/api/v1/dashboard", AuthMiddleware(NewClientStore(s.cfg.APIClients), s.now)(dashboard))

	if s.metricsCfg.Enabled && s.gatherer != nil {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Apply global middleware: Recovery → CORS → Logging
	return RecoveryMiddleware(s.logger)(CORSMiddleware(s.cfg.CORSOrigins)(LoggingMiddleware(s.logger)(mux)))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: Version}
	if s.snapshots != nil {
		snap := s.snapshots.GetSnapshot()
		resp.Uptime = snap.Uptime.Round(time.Second).String()
		resp.Requests = snap.Requests
		resp.Fallbacks = snap.Fallbacks
		resp.Sources = snap.Sources
		resp.AvgDuration = snap.AvgDuration.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Serve serves the HTTP API on ln (blocking)
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP API server", zap.String("addr", ln.Addr().String()))
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
