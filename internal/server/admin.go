package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MW-Studio-Dev/inmosite-edge/internal/cache"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/metrics"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/middleware"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/version"
)

// registerSystemRoutes mounts the /__/ endpoints. They live outside the
// routing surface so they are reachable on any host.
func (s *Server) registerSystemRoutes(engine *gin.Engine) {
	engine.GET("/__/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"time":    time.Now().Format(time.RFC3339),
			"version": version.GetInfo(),
		})
	})

	system := engine.Group("/__", middleware.AdminAuth(s.cfg.Server.AdminSecret, s.logger))

	system.GET("/metrics", gin.WrapH(metrics.Handler()))

	system.GET("/cache/stats", func(c *gin.Context) {
		reporter, ok := s.store.(cache.StatsReporter)
		if !ok {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "store does not expose stats"})
			return
		}
		stats := reporter.Stats()
		c.JSON(http.StatusOK, gin.H{
			"count":   len(stats),
			"entries": stats,
		})
	})

	// Explicit invalidation for external change notifications, e.g. a
	// tenant publishing or renaming its site.
	system.DELETE("/cache/:id", func(c *gin.Context) {
		id := c.Param("id")
		if s.store.Invalidate(c.Request.Context(), id) {
			c.JSON(http.StatusOK, gin.H{"invalidated": id})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "no entry", "id": id})
	})
}
