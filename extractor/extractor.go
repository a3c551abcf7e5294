package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/wakscord-crawler/config"
	"github.com/use-agent/wakscord-crawler/models"
)

// Selectors names the CSS selectors used to read weather cards.
type Selectors struct {
	Container   string
	Name        string
	State       string
	Description string
}

// SelectorsFromConfig copies the selector fields out of cfg.
func SelectorsFromConfig(cfg config.ExtractorConfig) Selectors {
	return Selectors{
		Container:   cfg.ContainerSelector,
		Name:        cfg.NameSelector,
		State:       cfg.StateSelector,
		Description: cfg.DescriptionSelector,
	}
}

// Extractor reads weather cards out of a rendered document.
// Selectors are compiled once; an Extractor is safe for concurrent use.
type Extractor struct {
	container   cascadia.Selector
	name        cascadia.Selector
	state       cascadia.Selector
	description cascadia.Selector
}

// New compiles the selectors. An invalid selector is reported here rather
// than silently matching nothing on every request.
func New(sel Selectors) (*Extractor, error) {
	compile := func(field, s string) (cascadia.Selector, error) {
		c, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("extractor: invalid %s selector %q: %w", field, s, err)
		}
		return c, nil
	}

	var (
		e   Extractor
		err error
	)
	if e.container, err = compile("container", sel.Container); err != nil {
		return nil, err
	}
	if e.name, err = compile("name", sel.Name); err != nil {
		return nil, err
	}
	if e.state, err = compile("state", sel.State); err != nil {
		return nil, err
	}
	if e.description, err = compile("description", sel.Description); err != nil {
		return nil, err
	}
	return &e, nil
}

// ExtractItems returns one item per matching container, in document order.
// Missing or blank sub-fields get the fallback strings; no matching
// container yields an empty, non-nil slice.
func (e *Extractor) ExtractItems(documentText string) ([]models.WeatherItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(documentText))
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeExtraction, "failed to parse document", err)
	}

	items := []models.WeatherItem{}
	doc.FindMatcher(e.container).Each(func(_ int, s *goquery.Selection) {
		items = append(items, models.WeatherItem{
			Name:        textOr(s, e.name, models.FallbackName),
			State:       textOr(s, e.state, models.FallbackState),
			Description: textOr(s, e.description, models.FallbackDescription),
		})
	})
	return items, nil
}

// textOr returns the trimmed text of the first descendant matching m, or
// fallback when there is none or it is blank.
func textOr(s *goquery.Selection, m cascadia.Selector, fallback string) string {
	if text := strings.TrimSpace(s.FindMatcher(m).First().Text()); text != "" {
		return text
	}
	return fallback
}
