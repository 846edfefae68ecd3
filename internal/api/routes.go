package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ctwarden/ctwarden/internal/api/handlers"
)

// RegisterRoutes mounts the two read-only endpoints. There is no write
// surface and no API-key middleware — this package exposes operability
// data only.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler) {
	r.GET("/healthz", h.Health)
	r.GET("/stats", h.Stats)
}
