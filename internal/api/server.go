// Package api provides ctwarden's optional, read-only HTTP surface:
// a liveness probe and a stats snapshot, nothing more. It carries no
// mutation endpoints and no authentication surface — operators who want
// it reachable beyond localhost should put it behind a reverse proxy.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ctwarden/ctwarden/internal/api/handlers"
	"github.com/ctwarden/ctwarden/internal/api/middleware"
	"github.com/ctwarden/ctwarden/internal/stats"
	"github.com/ctwarden/ctwarden/internal/storage"
)

// Server is the read-only health/stats HTTP server (SPEC_FULL.md §4.J
// EXPANSION).
type Server struct {
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
}

// New builds a Server bound to host:port. db may be nil (health then
// always reports "ok").
func New(host string, port int, logger *slog.Logger, s *stats.Stats, db *storage.DB) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger))

	h := handlers.New(logger, s, db)
	RegisterRoutes(engine, h)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{logger: logger, engine: engine, httpServer: httpServer}
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

// ListenAndServe blocks serving HTTP until Shutdown is called.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
