package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Extractor ExtractorConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 5000 (PORT)
	Mode string // "debug", "release", "test"; default: "release"

	// StaticDir is served for every path no route claims.
	StaticDir string // default: "public"

	// ServiceName is reported by the health endpoint.
	ServiceName string // default: "Wakscord Crawler Server"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox. The hosting environment usually
	// lacks the permissions the sandbox needs.
	NoSandbox bool // default: true

	// BrowserBin is the preferred Chromium binary. When it cannot be
	// launched the launcher's own binary is used instead.
	BrowserBin string

	// Proxy is passed to Chromium as --proxy-server.
	Proxy string
}

// ScraperConfig controls page navigation and capture.
type ScraperConfig struct {
	// TargetURL is the weather page that is rendered on every request.
	TargetURL string // default: "https://everywak.kr/weather"

	// UserAgent is sent with every page request.
	UserAgent string

	// ViewportWidth and ViewportHeight fix the layout viewport.
	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080

	// NavigationTimeout bounds Navigate plus the network-idle wait.
	NavigationTimeout time.Duration // default: 30s

	// IdleDuration is the quiet period that counts as network idle.
	IdleDuration time.Duration // default: 500ms

	// SettleTimeout bounds the poll for the ready selector after idle.
	SettleTimeout time.Duration // default: 5s

	// SettleDelay is an extra fixed wait after the ready poll.
	SettleDelay time.Duration // default: 0

	// Stealth injects go-rod/stealth evasions before navigation.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource types to block, e.g. "Image,Font".
	BlockedResourceTypes []string // default: none
}

// ExtractorConfig holds the CSS selectors the upstream page is read with.
type ExtractorConfig struct {
	ContainerSelector   string
	NameSelector        string
	StateSelector       string
	DescriptionSelector string

	// DriftThreshold is the Hamming distance between two successive DOM
	// fingerprints above which a structure change is logged.
	DriftThreshold int // default: 12
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent is a desktop Chrome UA string.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        envOr("WAKSCORD_HOST", "0.0.0.0"),
			Port:        envIntOr("PORT", 5000),
			Mode:        envOr("WAKSCORD_MODE", "release"),
			StaticDir:   envOr("WAKSCORD_STATIC_DIR", "public"),
			ServiceName: envOr("WAKSCORD_SERVICE_NAME", "Wakscord Crawler Server"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("WAKSCORD_HEADLESS", true),
			NoSandbox:  envBoolOr("WAKSCORD_NO_SANDBOX", true),
			BrowserBin: os.Getenv("WAKSCORD_BROWSER_BIN"),
			Proxy:      os.Getenv("WAKSCORD_PROXY"),
		},
		Scraper: ScraperConfig{
			TargetURL:            envOr("WAKSCORD_TARGET_URL", "https://everywak.kr/weather"),
			UserAgent:            envOr("WAKSCORD_USER_AGENT", DefaultUserAgent),
			ViewportWidth:        envIntOr("WAKSCORD_VIEWPORT_WIDTH", 1920),
			ViewportHeight:       envIntOr("WAKSCORD_VIEWPORT_HEIGHT", 1080),
			NavigationTimeout:    envDurationOr("WAKSCORD_NAV_TIMEOUT", 30*time.Second),
			IdleDuration:         envDurationOr("WAKSCORD_IDLE_DURATION", 500*time.Millisecond),
			SettleTimeout:        envDurationOr("WAKSCORD_SETTLE_TIMEOUT", 5*time.Second),
			SettleDelay:          envDurationOr("WAKSCORD_SETTLE_DELAY", 0),
			Stealth:              envBoolOr("WAKSCORD_STEALTH", false),
			BlockedResourceTypes: envSliceOr("WAKSCORD_BLOCKED_RESOURCES", nil),
		},
		Extractor: ExtractorConfig{
			ContainerSelector:   envOr("WAKSCORD_SEL_CONTAINER", "div.TodayWeatherItem._container_bf2we_83"),
			NameSelector:        envOr("WAKSCORD_SEL_NAME", "div._name_bf2we_101"),
			StateSelector:       envOr("WAKSCORD_SEL_STATE", "div._state_bf2we_182"),
			DescriptionSelector: envOr("WAKSCORD_SEL_DESCRIPTION", "div._description_bf2we_188"),
			DriftThreshold:      envIntOr("WAKSCORD_DRIFT_THRESHOLD", 12),
		},
		Log: LogConfig{
			Level:  envOr("WAKSCORD_LOG_LEVEL", "info"),
			Format: envOr("WAKSCORD_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
