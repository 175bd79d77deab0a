package extractor

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/stupside/reelpull/internal/media"
)

// Collector accumulates the candidates of one session. Every strategy
// writes into the same set; each accepted location gets the next sequence
// number.
type Collector struct {
	base     *url.URL
	registry *Registry

	mu         sync.Mutex
	sequence   int
	candidates []media.Candidate

	pending sync.WaitGroup
}

// NewCollector creates a Collector resolving relative locations against
// base.
func NewCollector(base *url.URL, registry *Registry) *Collector {
	return &Collector{base: base, registry: registry}
}

// ObserveResponse runs every response strategy on r.
func (c *Collector) ObserveResponse(r Response) {
	emit := c.emitter(media.ChannelNetwork)
	for _, s := range c.registry.responses {
		if r.Body != nil && !s.WantsBody(r) {
			continue
		}
		s.ScanResponse(r, emit)
	}
}

// WantsBody reports whether any strategy wants the body of r.
func (c *Collector) WantsBody(r Response) bool {
	for _, s := range c.registry.responses {
		if s.WantsBody(r) {
			return true
		}
	}
	return false
}

// Go runs fn as pending work that Drain waits for.
func (c *Collector) Go(fn func()) {
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		fn()
	}()
}

// Drain waits for pending work started with Go, or for ctx to be done.
func (c *Collector) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// ScanDocument runs every document strategy on the rendered page.
func (c *Collector) ScanDocument(html string) {
	c.scanDocument(html, nil)
}

// ScanStatic runs the document strategies on HTML fetched without a
// browser, tagging what they find as static.
func (c *Collector) ScanStatic(html string) {
	static := media.ChannelStatic
	c.scanDocument(html, &static)
}

func (c *Collector) scanDocument(html string, channel *media.Channel) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		slog.Debug("collector: parsing document failed", "error", err)
		return
	}
	for _, s := range c.registry.documents {
		ch := s.Channel()
		if channel != nil {
			ch = *channel
		}
		s.ScanDocument(doc, c.emitter(ch))
	}
}

// Candidates returns a copy of everything collected so far.
func (c *Collector) Candidates() []media.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]media.Candidate(nil), c.candidates...)
}

func (c *Collector) emitter(channel media.Channel) Emit {
	return func(location, key string) {
		c.add(channel, location, key)
	}
}

// add resolves location against the page and records it. Only http(s)
// locations are kept; blob: and data: sources cannot be fetched.
func (c *Collector) add(channel media.Channel, location, key string) {
	u, err := c.base.Parse(strings.TrimSpace(location))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		slog.Debug("collector: skipping location", "location", location, "channel", channel.String())
		return
	}
	u.Fragment = ""
	loc := u.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	cand := media.NewCandidate(loc, key, channel, c.sequence)
	c.sequence++
	c.candidates = append(c.candidates, cand)

	slog.Debug("collector: candidate", "location", loc, "tier", cand.Tier.String(), "original", cand.LooksOriginal, "channel", channel.String(), "sequence", cand.Sequence)
}
