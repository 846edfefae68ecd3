// Package handlers implements ctwarden's read-only operability endpoints:
// a liveness probe and a stats snapshot, both backed by the same
// internal/stats.Stats the console and webhook reporters read from.
package handlers

import (
	"log/slog"
	"time"

	"github.com/ctwarden/ctwarden/internal/stats"
	"github.com/ctwarden/ctwarden/internal/storage"
)

// Handler holds the dependencies the health/stats endpoints read.
type Handler struct {
	logger    *slog.Logger
	startTime time.Time
	stats     *stats.Stats
	db        *storage.DB
}

// New creates a Handler. stats and db must outlive the Handler; both are
// read-only from this package's perspective.
func New(logger *slog.Logger, s *stats.Stats, db *storage.DB) *Handler {
	return &Handler{logger: logger, startTime: time.Now(), stats: s, db: db}
}
