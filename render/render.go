package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/use-agent/wakscord-crawler/models"
)

//go:embed templates/weather.html.tmpl
var templates embed.FS

// Renderer turns extracted items into the served page.
// It is safe for concurrent use.
type Renderer struct {
	page *template.Template
	md   *converter.Converter
}

// New parses the embedded page template.
func New() (*Renderer, error) {
	page, err := template.ParseFS(templates, "templates/weather.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse template: %w", err)
	}
	return &Renderer{
		page: page,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}, nil
}

// RenderPage returns the complete HTML document for items. Item text is
// escaped by html/template; the scaffolding is present even for no items.
func (r *Renderer) RenderPage(items []models.WeatherItem) (string, error) {
	var buf bytes.Buffer
	if err := r.page.Execute(&buf, struct{ Items []models.WeatherItem }{items}); err != nil {
		return "", models.NewCrawlError(models.ErrCodeRender, "failed to render page", err)
	}
	return buf.String(), nil
}

// RenderMarkdown renders the page and converts it to Markdown. The style
// block is dropped by the converter's base plugin.
func (r *Renderer) RenderMarkdown(items []models.WeatherItem) (string, error) {
	page, err := r.RenderPage(items)
	if err != nil {
		return "", err
	}
	md, err := r.md.ConvertString(page)
	if err != nil {
		return "", models.NewCrawlError(models.ErrCodeRender, "failed to convert page to markdown", err)
	}
	return md, nil
}
