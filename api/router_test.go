package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/wakscord-crawler/browser"
	"github.com/use-agent/wakscord-crawler/config"
	"github.com/use-agent/wakscord-crawler/crawler"
	"github.com/use-agent/wakscord-crawler/drift"
	"github.com/use-agent/wakscord-crawler/extractor"
	"github.com/use-agent/wakscord-crawler/models"
	"github.com/use-agent/wakscord-crawler/render"
)

// stubFetcher returns a canned document, or blocks until ctx is done when
// hang is set, the way a navigation that never goes idle would.
type stubFetcher struct {
	doc   string
	err   error
	hang  time.Duration
	calls int
}

func (s *stubFetcher) FetchRenderedDocument(ctx context.Context, _ string) (string, error) {
	s.calls++
	if s.hang > 0 {
		navCtx, cancel := context.WithTimeout(ctx, s.hang)
		defer cancel()
		<-navCtx.Done()
		return "", models.NewCrawlError(models.ErrCodeTimeout, "navigation to target URL failed", navCtx.Err())
	}
	return s.doc, s.err
}

type stubStats struct{}

func (stubStats) Stats() browser.Stats { return browser.Stats{Launches: 1, Live: true} }

const seoulDoc = `<html><body>
<div class="TodayWeatherItem _container_bf2we_83">
  <div class="_name_bf2we_101">Seoul</div>
  <div class="_state_bf2we_182">Sunny</div>
  <div class="_description_bf2we_188">Clear skies</div>
</div>
</body></html>`

func newTestRouter(t *testing.T, f *stubFetcher, staticDir string) http.Handler {
	t.Helper()
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Server.StaticDir = staticDir

	ex, err := extractor.New(extractor.SelectorsFromConfig(cfg.Extractor))
	require.NoError(t, err)
	r, err := render.New()
	require.NoError(t, err)
	cr := crawler.New(f, ex, r, drift.NewDetector(cfg.Extractor.DriftThreshold), cfg.Scraper.TargetURL)

	return NewRouter(cr, stubStats{}, cfg, time.Now())
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	f := &stubFetcher{err: models.NewCrawlError(models.ErrCodeBrowserLaunch, "failed to launch browser", nil)}
	w := get(t, newTestRouter(t, f, t.TempDir()), "/health")

	require.Equal(t, http.StatusOK, w.Code)

	var body models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "Wakscord Crawler Server", body.Service)
	_, err := time.Parse(time.RFC3339Nano, body.Timestamp)
	assert.NoError(t, err)
	assert.Zero(t, f.calls, "health must not run the pipeline")
}

func TestIndex_RendersCrawledCards(t *testing.T) {
	w := get(t, newTestRouter(t, &stubFetcher{doc: seoulDoc}, t.TempDir()), "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Seoul")
	assert.Contains(t, w.Body.String(), "Sunny, Clear skies")
}

func TestIndex_NavigationTimeout(t *testing.T) {
	w := get(t, newTestRouter(t, &stubFetcher{hang: 20 * time.Millisecond}, t.TempDir()), "/")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body.Error)
	assert.Contains(t, body.Message, models.ErrCodeTimeout)
	assert.NotEmpty(t, body.Timestamp)
}

func TestIndex_LaunchFailure(t *testing.T) {
	f := &stubFetcher{err: models.NewCrawlError(models.ErrCodeBrowserLaunch, "failed to launch browser", nil)}
	w := get(t, newTestRouter(t, f, t.TempDir()), "/")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body.Error)
	assert.Contains(t, body.Message, "failed to launch browser")
}

func TestIndex_EmptyUpstreamStillSucceeds(t *testing.T) {
	w := get(t, newTestRouter(t, &stubFetcher{doc: "<html><body></body></html>"}, t.TempDir()), "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<div class="container">`)
}

func TestIndex_JSONFormat(t *testing.T) {
	h := newTestRouter(t, &stubFetcher{doc: seoulDoc}, t.TempDir())

	for _, target := range []string{"/?format=json", "/api/v1/weather"} {
		w := get(t, h, target)
		require.Equal(t, http.StatusOK, w.Code, target)

		var body models.WeatherResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, []models.WeatherItem{{Name: "Seoul", State: "Sunny", Description: "Clear skies"}}, body.Items)
		assert.Equal(t, "https://everywak.kr/weather", body.SourceURL)
	}
}

func TestIndex_MarkdownFormat(t *testing.T) {
	w := get(t, newTestRouter(t, &stubFetcher{doc: seoulDoc}, t.TempDir()), "/?format=markdown")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, w.Body.String(), "Sunny, Clear skies")
}

func TestIndex_UnknownFormat(t *testing.T) {
	f := &stubFetcher{doc: seoulDoc}
	w := get(t, newTestRouter(t, f, t.TempDir()), "/?format=xml")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.calls)
}

func TestStatus(t *testing.T) {
	w := get(t, newTestRouter(t, &stubFetcher{}, t.TempDir()), "/api/v1/status")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Browser browser.Stats `json:"browser"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, browser.Stats{Launches: 1, Live: true}, body.Browser)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "index.html"), []byte("<p>docs</p>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))

	f := &stubFetcher{doc: seoulDoc}
	h := newTestRouter(t, f, dir)

	w := get(t, h, "/style.css")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "body{}", w.Body.String())

	w = get(t, h, "/docs/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docs")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/missing.js").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/empty/").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/../etc/passwd").Code)
	assert.Zero(t, f.calls, "static files must not run the pipeline")
}
