package browser

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/wakscord-crawler/config"
	"github.com/use-agent/wakscord-crawler/models"
	"golang.org/x/sync/singleflight"
)

// livenessTimeout bounds the CDP round trip used to probe a cached browser.
const livenessTimeout = 5 * time.Second

// launchFunc starts a browser from bin ("" lets the launcher pick its own
// binary) and returns the connected handle plus a func that tears it down.
type launchFunc func(bin string) (*rod.Browser, func(), error)

// Stats is a snapshot of the manager's state.
type Stats struct {
	Launches int  `json:"launches"`
	Live     bool `json:"live"`
}

// Manager owns the single browser process shared by every request.
//
// The browser is launched on the first Acquire. Concurrent first callers
// share one launch attempt, and a handle that stops answering CDP calls is
// replaced under the same guard. It is safe for concurrent use.
type Manager struct {
	cfg    config.BrowserConfig
	launch launchFunc
	alive  func(*rod.Browser) bool

	group singleflight.Group

	mu       sync.Mutex
	browser  *rod.Browser
	teardown func()

	launches atomic.Int32
}

// NewManager creates a Manager. Nothing is launched until Acquire.
func NewManager(cfg config.BrowserConfig) *Manager {
	m := &Manager{
		cfg:   cfg,
		alive: isAlive,
	}
	m.launch = m.launchRod
	return m
}

// Acquire returns a ready browser, launching or relaunching it when needed.
func (m *Manager) Acquire(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()

	if b != nil && m.alive(b) {
		return b, nil
	}

	ch := m.group.DoChan("browser", func() (any, error) {
		return m.ensure()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*rod.Browser), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ensure runs inside the single-flight guard.
func (m *Manager) ensure() (*rod.Browser, error) {
	m.mu.Lock()
	cur, teardown := m.browser, m.teardown
	m.mu.Unlock()

	if cur != nil {
		if m.alive(cur) {
			return cur, nil
		}
		slog.Warn("browser stopped responding, relaunching")
		m.mu.Lock()
		m.browser, m.teardown = nil, nil
		m.mu.Unlock()
		if teardown != nil {
			teardown()
		}
	}

	b, td, err := m.launchWithFallback()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.browser, m.teardown = b, td
	m.mu.Unlock()
	m.launches.Add(1)
	return b, nil
}

// launchWithFallback tries the configured binary first, then lets the
// launcher resolve its own.
func (m *Manager) launchWithFallback() (*rod.Browser, func(), error) {
	if m.cfg.BrowserBin != "" {
		b, td, err := m.launch(m.cfg.BrowserBin)
		if err == nil {
			slog.Info("browser initialised", "bin", m.cfg.BrowserBin)
			return b, td, nil
		}
		slog.Warn("configured browser binary unavailable, falling back to launcher default",
			"bin", m.cfg.BrowserBin,
			"error", err,
		)
	}

	b, td, err := m.launch("")
	if err != nil {
		slog.Error("failed to initialise browser", "error", err)
		return nil, nil, models.NewCrawlError(
			models.ErrCodeBrowserLaunch,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser initialised", "bin", "launcher default")
	return b, td, nil
}

// launchRod launches Chromium with the stability flags the service needs.
func (m *Manager) launchRod(bin string) (*rod.Browser, func(), error) {
	l := launcher.New().
		Headless(m.cfg.Headless).
		NoSandbox(m.cfg.NoSandbox)

	if bin != "" {
		l = l.Bin(bin)
	}
	if m.cfg.Proxy != "" {
		l = l.Proxy(m.cfg.Proxy)
	}

	l.Set(flags.Flag("disable-setuid-sandbox"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("browser process started", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, nil, err
	}

	teardown := func() {
		if err := b.Close(); err != nil {
			slog.Warn("browser close failed, killing process", "error", err)
		}
		l.Kill()
		l.Cleanup()
	}
	return b, teardown, nil
}

// Stats returns a snapshot without probing the browser.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Launches: int(m.launches.Load()),
		Live:     m.browser != nil,
	}
}

// Close kills the browser process. Call this on graceful shutdown to
// prevent zombie Chrome processes. A later Acquire launches a new one.
func (m *Manager) Close() {
	m.mu.Lock()
	teardown := m.teardown
	m.browser, m.teardown = nil, nil
	m.mu.Unlock()

	if teardown != nil {
		slog.Info("closing browser")
		teardown()
	}
}

// isAlive reports whether the browser still answers CDP calls.
func isAlive(b *rod.Browser) bool {
	_, err := b.Timeout(livenessTimeout).Pages()
	return err == nil
}
