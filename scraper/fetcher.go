package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/wakscord-crawler/config"
	"github.com/use-agent/wakscord-crawler/models"
	"github.com/ysmood/gson"
)

// BrowserSource hands out the shared browser. *browser.Manager implements it.
type BrowserSource interface {
	Acquire(ctx context.Context) (*rod.Browser, error)
}

// Fetcher renders a page in the shared browser and returns its final DOM.
// Each call owns one page for its whole duration.
type Fetcher struct {
	browsers      BrowserSource
	cfg           config.ScraperConfig
	readySelector string
}

// NewFetcher creates a Fetcher. readySelector is polled after network idle;
// pass "" to skip the readiness poll.
func NewFetcher(browsers BrowserSource, cfg config.ScraperConfig, readySelector string) *Fetcher {
	return &Fetcher{
		browsers:      browsers,
		cfg:           cfg,
		readySelector: readySelector,
	}
}

// FetchRenderedDocument navigates to targetURL and returns the serialized
// document once rendering has settled.
//
// Lifecycle:
//
//  1. Acquire browser        – launched on first use, relaunched if dead
//  2. Open page              – one tab per call
//  3. DEFER: close page      – on every exit path; failures are only logged
//  4. Page setup             – UA header, viewport, stealth, resource blocking
//  5. Idle listener setup    – registered before Navigate so no request is missed
//  6. Navigate + idle        – bounded by NavigationTimeout
//  7. Settle                 – poll for readySelector, then optional fixed delay
//  8. Capture                – page.HTML()
func (f *Fetcher) FetchRenderedDocument(ctx context.Context, targetURL string) (string, error) {
	// ── 1. Acquire browser ────────────────────────────────────────────
	b, err := f.browsers.Acquire(ctx)
	if err != nil {
		var crawlErr *models.CrawlError
		if errors.As(err, &crawlErr) {
			return "", crawlErr
		}
		return "", categorizeError(err, "failed to acquire browser")
	}

	// ── 2. Open page ──────────────────────────────────────────────────
	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}

	// ── 3. CRITICAL DEFER: the page must never outlive the request ─────
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("error closing page", "error", closeErr)
			return
		}
		slog.Debug("page closed")
	}()

	// ── 4. Page setup ─────────────────────────────────────────────────
	if err := f.preparePage(page); err != nil {
		return "", err
	}

	router := setupHijack(page, f.cfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavigationTimeout)
	defer cancel()
	p := page.Context(navCtx)

	// ── 5. Network idle waiter BEFORE navigation ──────────────────────
	// WaitRequestIdle uses the Fetch domain, which the hijack router also
	// claims; with blocking on, DOM stability stands in for network idle.
	var waitIdle func()
	if router == nil {
		waitIdle = p.WaitRequestIdle(f.cfg.IdleDuration, nil, nil, nil)
	}

	// ── 6. Navigate ───────────────────────────────────────────────────
	slog.Info("navigating", "url", targetURL)
	if err := p.Navigate(targetURL); err != nil {
		return "", categorizeError(err, "navigation to target URL failed")
	}

	if waitIdle != nil {
		waitIdle()
	} else if stableErr := p.WaitDOMStable(f.cfg.IdleDuration, 0.1); stableErr != nil {
		return "", categorizeError(stableErr, "page did not settle before the navigation timeout")
	}
	if navErr := navCtx.Err(); navErr != nil {
		return "", categorizeError(navErr, "network did not go idle before the navigation timeout")
	}

	// ── 7. Settle ─────────────────────────────────────────────────────
	rp := page.Context(ctx)
	if err := f.settle(ctx, rp); err != nil {
		return "", categorizeError(err, "request canceled while waiting for rendering")
	}

	// ── 8. Capture ────────────────────────────────────────────────────
	doc, err := rp.HTML()
	if err != nil {
		return "", categorizeError(err, "failed to capture rendered document")
	}
	return doc, nil
}

// preparePage applies the request header, viewport, and stealth script.
// All of it must happen before navigation to take effect.
func (f *Fetcher) preparePage(page *rod.Page) error {
	if f.cfg.UserAgent != "" {
		err := proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"User-Agent": f.cfg.UserAgent}),
		}.Call(page)
		if err != nil {
			return models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to set request headers", err)
		}
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.cfg.UserAgent}); err != nil {
			return models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to override user agent", err)
		}
	}

	if f.cfg.ViewportWidth > 0 && f.cfg.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             f.cfg.ViewportWidth,
			Height:            f.cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to set viewport", err)
		}
	}

	if f.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	return nil
}

// settle waits for client-side rendering after network idle. A missing
// ready element is not an error; only cancellation of ctx is.
func (f *Fetcher) settle(ctx context.Context, p *rod.Page) error {
	if f.readySelector != "" && f.cfg.SettleTimeout > 0 {
		start := time.Now()
		if _, err := p.Timeout(f.cfg.SettleTimeout).Element(f.readySelector); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("ready selector did not appear, capturing current DOM",
				"selector", f.readySelector,
				"waited", time.Since(start).Round(time.Millisecond).String(),
			)
		}
	}

	if f.cfg.SettleDelay > 0 {
		t := time.NewTimer(f.cfg.SettleDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed CrawlErrors so logs and the
// JSON view can tell a timeout from a navigation failure.
func categorizeError(err error, msg string) *models.CrawlError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewCrawlError(models.ErrCodeNavigation, msg, err)
	}
}
