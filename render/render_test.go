package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/wakscord-crawler/models"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

// assertScaffolding checks the parts of the page that never depend on items.
func assertScaffolding(t *testing.T, out string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, "Weather Information", doc.Find("head > title").Text())
	style := doc.Find("head > style").Text()
	assert.Contains(t, style, "flex-wrap: wrap")
	assert.Contains(t, style, ".info .name")
	assert.Equal(t, 1, doc.Find("body > div.container").Length())
	return doc
}

func TestRenderPage_Items(t *testing.T) {
	r := newRenderer(t)
	out, err := r.RenderPage([]models.WeatherItem{
		{Name: "Seoul", State: "Sunny", Description: "Clear skies"},
		{Name: "Busan", State: "Rain", Description: "Heavy showers"},
	})
	require.NoError(t, err)

	doc := assertScaffolding(t, out)
	cards := doc.Find("div.container > div.info")
	require.Equal(t, 2, cards.Length())

	assert.Equal(t, "Seoul", cards.Eq(0).Find("p.name").Text())
	assert.Equal(t, "Sunny, Clear skies", cards.Eq(0).Find("p").Eq(1).Text())
	assert.Equal(t, "Busan", cards.Eq(1).Find("p.name").Text())
	assert.Equal(t, "Rain, Heavy showers", cards.Eq(1).Find("p").Eq(1).Text())

	assert.Contains(t, out, "Sunny, Clear skies")
}

func TestRenderPage_NoItems(t *testing.T) {
	r := newRenderer(t)
	for _, items := range [][]models.WeatherItem{nil, {}} {
		out, err := r.RenderPage(items)
		require.NoError(t, err)

		doc := assertScaffolding(t, out)
		assert.Zero(t, doc.Find("div.info").Length())
		assert.Empty(t, strings.TrimSpace(doc.Find("div.container").Text()))
	}
}

func TestRenderPage_SameStructureRegardlessOfCount(t *testing.T) {
	r := newRenderer(t)
	empty, err := r.RenderPage(nil)
	require.NoError(t, err)
	one, err := r.RenderPage([]models.WeatherItem{{Name: "A", State: "B", Description: "C"}})
	require.NoError(t, err)

	head := func(s string) string { return s[:strings.Index(s, "<body>")] }
	assert.Equal(t, head(empty), head(one))
}

func TestRenderPage_EscapesExtractedText(t *testing.T) {
	r := newRenderer(t)
	out, err := r.RenderPage([]models.WeatherItem{
		{Name: `<script>alert("x")</script>`, State: "<b>Sunny</b>", Description: "Tom & Jerry"},
	})
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>Sunny</b>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "Tom &amp; Jerry")

	doc := assertScaffolding(t, out)
	assert.Equal(t, `<script>alert("x")</script>`, doc.Find("p.name").Text())
}

func TestRenderMarkdown(t *testing.T) {
	r := newRenderer(t)
	md, err := r.RenderMarkdown([]models.WeatherItem{
		{Name: "Seoul", State: "Sunny", Description: "Clear skies"},
	})
	require.NoError(t, err)

	assert.Contains(t, md, "Seoul")
	assert.Contains(t, md, "Sunny, Clear skies")
	assert.NotContains(t, md, "font-family")
	assert.NotContains(t, md, "<div")
}
