package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shopsavvy/cache"
	"github.com/use-agent/shopsavvy/models"
	"github.com/use-agent/shopsavvy/simhash"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "degraded" while any source's latest page drifted from its
// previous layout, since its extractor is then likely to come back empty.
func Health(s Searcher, cc *cache.Cache, drift *simhash.DriftMonitor, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: Version,
			Sources: s.Platforms(),
		}
		if cc != nil {
			resp.CacheSize = cc.Size()
		}
		if drift != nil {
			for _, name := range drift.Alerts() {
				resp.DriftAlerts = append(resp.DriftAlerts, models.Platform(name))
			}
		}
		if len(resp.DriftAlerts) > 0 {
			resp.Status = "degraded"
		}

		c.JSON(http.StatusOK, resp)
	}
}
