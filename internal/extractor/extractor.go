// Package extractor turns a share link into ranked media candidates by
// rendering the storefront page in a headless browser.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/samber/lo"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/media"
	"github.com/stupside/reelpull/internal/resolve"
)

// ErrNavigation is returned when the page could not be opened. No
// candidates are returned with it.
var ErrNavigation = errors.New("navigation failed")

// Extractor resolves share links to a ranked selection of media candidates.
type Extractor struct {
	registry *Registry
	loader   PageLoader
	static   PageLoader
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLoader replaces the browser page loader.
func WithLoader(l PageLoader) Option {
	return func(e *Extractor) { e.loader = l }
}

// WithStaticLoader replaces the browserless fallback loader. A nil loader
// disables the fallback.
func WithStaticLoader(l PageLoader) Option {
	return func(e *Extractor) { e.static = l }
}

// WithRegistry replaces the extraction strategies.
func WithRegistry(r *Registry) Option {
	return func(e *Extractor) { e.registry = r }
}

// New creates an Extractor that loads pages in headless Chrome.
func New(browserCfg app.BrowserConfig, captureCfg app.CaptureConfig, opts ...Option) *Extractor {
	e := &Extractor{
		registry: NewRegistry(captureCfg),
		loader:   &chromeLoader{cfg: browserCfg},
	}
	if captureCfg.StaticFallback {
		e.static = newStaticLoader(browserCfg)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve opens the page behind shareLink, collects candidates from every
// strategy and ranks them.
func (e *Extractor) Resolve(ctx context.Context, shareLink string) (resolve.Selection, error) {
	target, err := ParseShareLink(shareLink)
	if err != nil {
		return resolve.Selection{}, fmt.Errorf("%w: %w", ErrNavigation, err)
	}

	log := slog.With("page", target.String())

	c := NewCollector(target, e.registry)
	html, err := e.loader.Load(ctx, target, c)
	if err != nil {
		return resolve.Selection{}, fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	c.ScanDocument(html)

	candidates := c.Candidates()
	if len(candidates) == 0 && e.static != nil {
		log.InfoContext(ctx, "browser found no media, trying static page")
		candidates = e.loadStatic(ctx, target, log)
	}

	sel, err := resolve.Rank(candidates)
	if err != nil {
		return resolve.Selection{}, err
	}

	log.InfoContext(ctx, "media selected",
		"location", sel.Selected.Location,
		"tier", sel.Selected.Tier.String(),
		"original", sel.Selected.LooksOriginal,
		"channel", sel.Selected.Channel.String(),
		"candidates", len(sel.Candidates),
	)
	log.DebugContext(ctx, "media alternates", "locations", lo.Map(sel.Alternates(), func(c media.Candidate, _ int) string {
		return c.Location
	}))

	return sel, nil
}

func (e *Extractor) loadStatic(ctx context.Context, target *url.URL, log *slog.Logger) []media.Candidate {
	c := NewCollector(target, e.registry)
	html, err := e.static.Load(ctx, target, c)
	if err != nil {
		log.WarnContext(ctx, "static page fetch failed", "error", err)
		return nil
	}
	c.ScanStatic(html)
	return c.Candidates()
}
