package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctwarden/ctwarden/internal/api/models"
	"github.com/ctwarden/ctwarden/internal/stats"
)

// Health reports "ok" once the database connection answers a ping, or
// "degraded" otherwise. It never fails the request itself — an
// operator's uptime check should see a 200 either way and read the body
// for detail.
func (h *Handler) Health(c *gin.Context) {
	resp := models.StatusResponse{Status: "ok"}
	if h.db != nil {
		if err := h.db.Health(); err != nil {
			resp.Status = "degraded"
			resp.Detail = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Stats returns the same Snapshot the console/webhook reporters emit,
// plus a gopsutil host sample, as JSON for a scrape or a dashboard.
func (h *Handler) Stats(c *gin.Context) {
	var snap stats.Snapshot
	if h.stats != nil {
		snap = h.stats.Snapshot()
	}
	c.JSON(http.StatusOK, models.StatsResponse{
		Snapshot: snap,
		Host:     stats.SampleHost(),
	})
}
