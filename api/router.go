package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tablescout/api/handler"
	"github.com/use-agent/tablescout/api/middleware"
	"github.com/use-agent/tablescout/config"
	"github.com/use-agent/tablescout/jobs"
	"github.com/use-agent/tablescout/metrics"
	"github.com/use-agent/tablescout/profile"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and /metrics are outside auth so probes and scrapers always work.
func NewRouter(cfg *config.Config, reg *profile.Registry, mgr *jobs.Manager, mt *metrics.Metrics, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if mt != nil {
		r.GET("/metrics", gin.WrapH(mt.Handler()))
	}

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(reg, mgr, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Profiles
	protected.GET("/profiles", handler.ListProfiles(reg))
	protected.GET("/profiles/:name", handler.GetProfile(reg))

	// Runs
	protected.POST("/runs", handler.PostRun(reg, mgr))
	protected.GET("/runs/:id", handler.GetRun(reg, mgr))
	protected.GET("/runs/:id/events", handler.StreamRun(reg, mgr))

	return r
}
