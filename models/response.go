package models

import "time"

// WeatherItem is one card read from the upstream weather page.
type WeatherItem struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Description string `json:"description"`
}

// Fallback values used when a card is missing a sub-field.
const (
	FallbackName        = "No Name"
	FallbackState       = "No State"
	FallbackDescription = "No Description"
)

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// ErrorResponse is the uniform failure envelope for GET /.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WeatherResponse is the JSON rendition of a crawl.
type WeatherResponse struct {
	Items     []WeatherItem `json:"items"`
	Count     int           `json:"count"`
	SourceURL string        `json:"source_url"`
	Timing    TimingInfo    `json:"timing"`
	Timestamp string        `json:"timestamp"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// NavigationMs is the time spent navigating and rendering the page.
	NavigationMs int64 `json:"navigation_ms"`

	// ExtractMs is the time spent reading cards out of the document.
	ExtractMs int64 `json:"extract_ms"`

	// RenderMs is the time spent building the output page.
	RenderMs int64 `json:"render_ms"`
}

// Timestamp formats t the way every response body reports time.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
