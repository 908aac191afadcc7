package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tablescout/jobs"
	"github.com/use-agent/tablescout/models"
	"github.com/use-agent/tablescout/profile"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
func Health(reg *profile.Registry, mgr *jobs.Manager, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     "healthy",
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			Profiles:   len(reg.List()),
			ActiveRuns: mgr.Active(),
			Version:    Version,
		})
	}
}
