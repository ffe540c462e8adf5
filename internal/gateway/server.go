package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/atendeflow/gateway/internal/audit"
	"github.com/atendeflow/gateway/internal/config"
	"github.com/atendeflow/gateway/internal/logging"
	"github.com/atendeflow/gateway/internal/metrics"
	"github.com/atendeflow/gateway/internal/middleware"
)

// Server is the assembled API gateway.
type Server struct {
	cfg        *config.Config
	logger     *logging.Logger
	httpServer *http.Server
	auditLog   *audit.Log
	stop       chan struct{}
}

// New wires the full middleware chain and route table.
func New(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics, auditLog *audit.Log) (*Server, error) {
	router := mux.NewRouter()

	// Operational endpoints sit outside the proxied API: no auth, no
	// casing transform.
	health := NewHealthChecker(cfg.Upstreams)
	router.Handle("/health", health.Handler()).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	cors := middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)
	tracing := middleware.NewTracingMiddleware(logger)
	router.Use(cors.Handler)
	router.Use(tracing.Handler)
	router.Use(middleware.MetricsMiddleware("gateway", m))

	auth := middleware.NewAuthMiddleware([]byte(cfg.Auth.Secret), logger, cfg.Auth.SkipPaths)
	rl := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	casing := middleware.NewCasingTransform(logger)

	// Auth runs before the rate limiter so buckets are keyed per user
	// rather than per remote address.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.Handler)
	api.Use(rl.Handler)
	api.Use(middleware.AuditMiddleware(auditLog))
	api.Use(casing.Handler)

	for name, up := range cfg.Upstreams {
		proxy, err := newUpstreamProxy(name, up, logger)
		if err != nil {
			return nil, fmt.Errorf("upstream %s: %w", name, err)
		}
		// The subrouter already contributes the /api prefix; registering
		// the full configured prefix here would double it.
		rel := strings.TrimPrefix(proxy.prefix, "/api")
		if rel == "" {
			return nil, fmt.Errorf("upstream %s: prefix %q routes the whole API namespace", name, up.Prefix)
		}
		api.PathPrefix(rel).Handler(proxy)
		logger.Infof("routing %s -> %s (%s)", up.Prefix, up.URL, name)
	}

	// Recent audit entries, for operators. Authenticated like the API.
	router.Handle("/admin/audit", auth.Handler(auditListHandler(auditLog))).Methods(http.MethodGet)

	stop := make(chan struct{})
	rl.StartCleanup(5*time.Minute, stop)

	return &Server{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout.Std(),
			WriteTimeout: cfg.Server.WriteTimeout.Std(),
		},
		auditLog: auditLog,
		stop:     stop,
	}, nil
}

func auditListHandler(log *audit.Log) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entries": log.ListLimit(limit),
		})
	})
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("gateway listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		close(s.stop)
		return err
	case <-ctx.Done():
	}

	close(s.stop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	s.logger.Infof("shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}
