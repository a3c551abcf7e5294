package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/wakscord-crawler/api"
	"github.com/use-agent/wakscord-crawler/browser"
	"github.com/use-agent/wakscord-crawler/config"
	"github.com/use-agent/wakscord-crawler/crawler"
	"github.com/use-agent/wakscord-crawler/drift"
	"github.com/use-agent/wakscord-crawler/extractor"
	"github.com/use-agent/wakscord-crawler/render"
	"github.com/use-agent/wakscord-crawler/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("wakscord-crawler starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"target", cfg.Scraper.TargetURL,
	)

	// ── 3. Browser manager (Chromium launches on the first request) ─
	mgr := browser.NewManager(cfg.Browser)
	defer mgr.Close()

	// ── 4. Pipeline stages ──────────────────────────────────────────
	ex, err := extractor.New(extractor.SelectorsFromConfig(cfg.Extractor))
	if err != nil {
		slog.Error("invalid extractor configuration", "error", err)
		os.Exit(1)
	}
	rd, err := render.New()
	if err != nil {
		slog.Error("failed to initialise renderer", "error", err)
		os.Exit(1)
	}
	fetcher := scraper.NewFetcher(mgr, cfg.Scraper, cfg.Extractor.ContainerSelector)
	cr := crawler.New(fetcher, ex, rd, drift.NewDetector(cfg.Extractor.DriftThreshold), cfg.Scraper.TargetURL)

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(cr, mgr, cfg, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", fmt.Sprintf("http://localhost:%d", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// A crawl can take navigation timeout plus settle time; let it finish.
	drain := cfg.Scraper.NavigationTimeout + cfg.Scraper.SettleTimeout + cfg.Scraper.SettleDelay
	ctx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// mgr.Close() runs via defer and kills Chrome.
	slog.Info("wakscord-crawler stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
