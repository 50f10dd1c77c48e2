package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SyncSphere7/smartwin-official/internal/api"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

// Check probes one dependency for the health endpoint.
type Check func(ctx context.Context) error

var startedAt = time.Now()

func Health(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp := api.HealthResponse{
			Status: "ok",
			Checks: make(map[string]string, len(checks)),
			Uptime: time.Since(startedAt).Round(time.Second).String(),
		}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}
		c.JSON(code, resp)
	}
}

func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
