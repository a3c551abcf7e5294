package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/wakscord-crawler/drift"
	"github.com/use-agent/wakscord-crawler/extractor"
	"github.com/use-agent/wakscord-crawler/models"
	"github.com/use-agent/wakscord-crawler/render"
)

// DocumentFetcher returns the rendered HTML of a URL. *scraper.Fetcher
// implements it; tests substitute canned documents.
type DocumentFetcher interface {
	FetchRenderedDocument(ctx context.Context, targetURL string) (string, error)
}

// Result is the outcome of one crawl.
type Result struct {
	Items     []models.WeatherItem
	HTML      string
	SourceURL string
	Timing    models.TimingInfo
}

// Crawler runs the fetch → extract → render pipeline for one target page.
type Crawler struct {
	fetcher   DocumentFetcher
	extractor *extractor.Extractor
	renderer  *render.Renderer
	drift     *drift.Detector // nil disables drift logging
	targetURL string
}

// New creates a Crawler for targetURL.
func New(fetcher DocumentFetcher, ex *extractor.Extractor, r *render.Renderer, d *drift.Detector, targetURL string) *Crawler {
	return &Crawler{
		fetcher:   fetcher,
		extractor: ex,
		renderer:  r,
		drift:     d,
		targetURL: targetURL,
	}
}

// TargetURL returns the page this crawler renders.
func (c *Crawler) TargetURL() string { return c.targetURL }

// Crawl fetches the target page, extracts its weather cards, and renders
// them. Nothing is retried: the first failing stage fails the crawl.
func (c *Crawler) Crawl(ctx context.Context) (*Result, error) {
	totalStart := time.Now()

	// ── 1. Fetch ────────────────────────────────────────────────────
	navStart := time.Now()
	doc, err := c.fetcher.FetchRenderedDocument(ctx, c.targetURL)
	navigationMs := time.Since(navStart).Milliseconds()
	if err != nil {
		slog.Error("crawl failed while fetching",
			"url", c.targetURL,
			"error", err,
			"navigation_ms", navigationMs,
		)
		return nil, err
	}

	// ── 2. Extract ──────────────────────────────────────────────────
	extractStart := time.Now()
	items, err := c.extractor.ExtractItems(doc)
	extractMs := time.Since(extractStart).Milliseconds()
	if err != nil {
		slog.Error("crawl failed while extracting", "url", c.targetURL, "error", err)
		return nil, err
	}
	c.observe(doc, len(items))

	// ── 3. Render ───────────────────────────────────────────────────
	renderStart := time.Now()
	page, err := c.renderer.RenderPage(items)
	renderMs := time.Since(renderStart).Milliseconds()
	if err != nil {
		slog.Error("crawl failed while rendering", "url", c.targetURL, "error", err)
		return nil, err
	}

	timing := models.TimingInfo{
		TotalMs:      time.Since(totalStart).Milliseconds(),
		NavigationMs: navigationMs,
		ExtractMs:    extractMs,
		RenderMs:     renderMs,
	}
	slog.Info("crawled weather information",
		"url", c.targetURL,
		"items", len(items),
		"total_ms", timing.TotalMs,
	)

	return &Result{
		Items:     items,
		HTML:      page,
		SourceURL: c.targetURL,
		Timing:    timing,
	}, nil
}

// Markdown renders items as Markdown.
func (c *Crawler) Markdown(items []models.WeatherItem) (string, error) {
	return c.renderer.RenderMarkdown(items)
}

// observe logs signs that the upstream markup changed. It never fails a crawl.
func (c *Crawler) observe(doc string, itemCount int) {
	if itemCount == 0 {
		slog.Warn("no weather cards matched; upstream markup may have changed", "url", c.targetURL)
	}
	if c.drift == nil {
		return
	}
	if obs := c.drift.Observe(doc); obs.Changed {
		slog.Warn("upstream page structure drifted since the previous crawl",
			"url", c.targetURL,
			"distance", obs.Distance,
			"items", itemCount,
		)
	}
}
