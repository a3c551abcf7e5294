package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wakscord-crawler/crawler"
	"github.com/use-agent/wakscord-crawler/models"
)

// WeatherSource runs the crawl pipeline. *crawler.Crawler implements it.
type WeatherSource interface {
	Crawl(ctx context.Context) (*crawler.Result, error)
	Markdown(items []models.WeatherItem) (string, error)
}

// Output formats accepted by GET /?format=.
const (
	formatHTML     = "html"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

// Weather returns a handler for GET /.
//
// Every request runs a fresh crawl synchronously:
//  1. Validate ?format (html by default).
//  2. Crawler.Crawl → items + rendered page.
//  3. Respond in the requested format, or with the 500 envelope on failure.
func Weather(src WeatherSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		format := c.DefaultQuery("format", formatHTML)
		switch format {
		case formatHTML, formatJSON, formatMarkdown:
		default:
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     http.StatusText(http.StatusBadRequest),
				Message:   "format must be one of html, json, markdown",
				Timestamp: models.Timestamp(time.Now()),
			})
			return
		}

		res, err := src.Crawl(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		switch format {
		case formatJSON:
			c.JSON(http.StatusOK, toWeatherResponse(res))
		case formatMarkdown:
			md, err := src.Markdown(res.Items)
			if err != nil {
				respondError(c, err)
				return
			}
			c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		default:
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(res.HTML))
		}
	}
}

// WeatherJSON returns a handler for GET /api/v1/weather.
func WeatherJSON(src WeatherSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := src.Crawl(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toWeatherResponse(res))
	}
}

func toWeatherResponse(res *crawler.Result) models.WeatherResponse {
	return models.WeatherResponse{
		Items:     res.Items,
		Count:     len(res.Items),
		SourceURL: res.SourceURL,
		Timing:    res.Timing,
		Timestamp: models.Timestamp(time.Now()),
	}
}

// respondError is the single place a pipeline failure becomes a response.
// Every failure maps to 500 with the underlying message.
func respondError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:     http.StatusText(http.StatusInternalServerError),
		Message:   err.Error(),
		Timestamp: models.Timestamp(time.Now()),
	})
}
