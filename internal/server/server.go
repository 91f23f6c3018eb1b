// Package server exposes the engine over HTTP: on-demand analysis, live stats,
// a WebSocket detection feed and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/aggregator"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/engine"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/hub"
)

// DefaultMaxBody bounds the size of an /api/analyze request body.
const DefaultMaxBody = 64 << 20

// Config wires the server to its collaborators. Hub and Aggregator may be nil
// when nothing is being watched.
type Config struct {
	Addr       string
	Engine     *engine.Engine
	Hub        *hub.Hub
	Aggregator *aggregator.Aggregator
	Gatherer   prometheus.Gatherer // nil uses the default registry
	Logger     *slog.Logger
	MaxBody    int64
	Pprof      bool
}

// Server holds the Gin router and its dependencies.
type Server struct {
	router *gin.Engine
	cfg    Config
	log    *slog.Logger
}

// New creates the HTTP server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	s := &Server{router: router, cfg: cfg, log: cfg.Logger}
	s.setupRoutes()
	return s
}

// Handler returns the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")
	api.GET("/rules", s.handleRules)
	api.GET("/stats", s.handleStats)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/test", s.handleTest)

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
	s.router.GET("/ws", s.handleWebSocket)

	if s.cfg.Pprof {
		s.router.GET("/debug/pprof/", gin.WrapF(pprof.Index))
		s.router.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		s.router.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		s.router.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		s.router.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
		s.router.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
		s.router.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
		s.router.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
