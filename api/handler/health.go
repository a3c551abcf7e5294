package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wakscord-crawler/browser"
	"github.com/use-agent/wakscord-crawler/models"
)

// Health returns a handler for GET /health.
//
// It always answers 200 and never touches the browser, so probes keep
// working while a crawl is stuck or Chromium is down.
func Health(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "OK",
			Timestamp: models.Timestamp(time.Now()),
			Service:   serviceName,
		})
	}
}

// StatsSource reports browser state. *browser.Manager implements it.
type StatsSource interface {
	Stats() browser.Stats
}

// statusResponse is the body of GET /api/v1/status.
type statusResponse struct {
	Uptime  string        `json:"uptime"`
	Browser browser.Stats `json:"browser"`
	Version string        `json:"version"`
}

// Status returns a handler for GET /api/v1/status with uptime and browser
// launch counters. Like Health it never probes the browser.
func Status(stats StatsSource, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, statusResponse{
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Browser: stats.Stats(),
			Version: "0.1.0",
		})
	}
}
