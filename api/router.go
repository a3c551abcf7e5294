package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wakscord-crawler/api/handler"
	"github.com/use-agent/wakscord-crawler/api/middleware"
	"github.com/use-agent/wakscord-crawler/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestLogger
//
// Static files are the NoRoute fallback so they never shadow GET /.
func NewRouter(src handler.WeatherSource, stats handler.StatsSource, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	r.GET("/health", handler.Health(cfg.Server.ServiceName))
	r.GET("/", handler.Weather(src))

	v1 := r.Group("/api/v1")
	v1.GET("/weather", handler.WeatherJSON(src))
	v1.GET("/status", handler.Status(stats, startTime))

	r.NoRoute(handler.Static(cfg.Server.StaticDir))

	return r
}
