// Package httpapi exposes the service over HTTP. Upstream
// authentication terminates before this adapter; identity arrives in
// headers, is re-validated, and becomes a TenantContext for the core.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evidentia-labs/evidentia/internal/core/ports/driving"
	"github.com/evidentia-labs/evidentia/internal/logger"
	"github.com/evidentia-labs/evidentia/internal/ratelimit"
)

// Default configuration values.
const (
	DefaultAddr           = "127.0.0.1:8480"
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxUploadBytes = 50 << 20
)

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the host:port listen address.
	Addr string

	// RatePerMinute and RateBurst bound each tenant's request rate.
	RatePerMinute int
	RateBurst     int

	// ScoreThreshold applies when a search request does not set one.
	ScoreThreshold float64

	// MaxUploadBytes caps the request body on the upload route.
	MaxUploadBytes int64
}

// Server is the HTTP adapter over the driving ports.
type Server struct {
	cfg       Config
	ingest    driving.IngestionService
	search    driving.SearchService
	answer    driving.AnswerService
	documents driving.DocumentService

	limiter *ratelimit.TenantLimiter
	metrics *Metrics
	router  *gin.Engine
	httpSrv *http.Server
}

// NewServer creates the HTTP server with its routes registered.
func NewServer(
	ingest driving.IngestionService,
	search driving.SearchService,
	answer driving.AnswerService,
	documents driving.DocumentService,
	cfg Config,
) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:       cfg,
		ingest:    ingest,
		search:    search,
		answer:    answer,
		documents: documents,
		limiter:   ratelimit.New(cfg.RatePerMinute, cfg.RateBurst),
		metrics:   NewMetrics(),
		router:    gin.New(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(loggingMiddleware())
	s.router.Use(s.metrics.Middleware())

	// Liveness and metrics sit outside tenant auth.
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", s.metrics.Handler())

	v1 := s.router.Group("/api/v1")
	v1.Use(tenantMiddleware())
	v1.Use(rateLimitMiddleware(s.limiter, s.metrics))

	v1.POST("/documents", s.withBodyLimit(s.handleUpload))
	v1.GET("/documents", s.handleListDocuments)
	v1.GET("/documents/:id", s.handleGetDocument)
	v1.DELETE("/documents/:id", s.handleDeleteDocument)
	v1.GET("/documents/:id/ingestion-status", s.handleStatus)
	v1.POST("/documents/reindex", s.handleReindex)
	v1.POST("/search", s.handleSearch)
	v1.POST("/rag/search", s.handleRAGSearch)
}

// withBodyLimit caps the request body so an oversized upload fails
// while streaming instead of filling memory.
func (s *Server) withBodyLimit(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
		h(c)
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server
// stops. A closed server returns nil.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}

	logger.Info("HTTP API listening on %s", s.cfg.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	logger.Info("Stopping HTTP API")
	return s.httpSrv.Shutdown(ctx)
}
