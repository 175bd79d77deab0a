package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/stupside/reelpull/internal/action"
	"github.com/stupside/reelpull/internal/app"
)

const playbackTimeout = 3 * time.Second

// PageLoader opens target, feeds what it observes into c, and returns the
// final HTML of the page.
type PageLoader interface {
	Load(ctx context.Context, target *url.URL, c *Collector) (string, error)
}

// chromeLoader loads pages in a fresh headless Chrome per call.
type chromeLoader struct {
	cfg app.BrowserConfig
}

// session owns the chromedp lifecycle of one Load.
type session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// Close tears down the browser and allocator.
func (s *session) Close() {
	if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("session: graceful browser close failed", "error", err)
	}
	s.cancel()
	s.allocCancel()
}

func (l *chromeLoader) Load(ctx context.Context, target *url.URL, c *Collector) (string, error) {
	execPath, err := resolveBrowser(ctx, l.cfg)
	if err != nil {
		return "", err
	}

	profile := DesktopProfile(l.cfg)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(l.cfg, execPath, profile)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &session{ctx: taskCtx, cancel: taskCancel, allocCancel: allocCancel}
	defer s.Close()

	chromedp.ListenTarget(taskCtx, listen(taskCtx, c))

	cookies := ParseCookies(l.cfg.Cookies)
	domain := cookieDomain(l.cfg.CookieDomain, target)

	// Navigation runs on the task context itself; canceling a child of it
	// breaks the target in chromedp v0.14.
	navDone := make(chan error, 1)
	go func() {
		navDone <- chromedp.Run(taskCtx,
			network.Enable(),
			browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorDeny),
			applyIdentity(profile),
			setCookies(cookies, domain),
			chromedp.Navigate(target.String()),
		)
	}()

	select {
	case err = <-navDone:
	case <-time.After(l.cfg.Timeout):
		err = fmt.Errorf("navigation timed out after %s", l.cfg.Timeout)
	case <-ctx.Done():
		err = context.Cause(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("navigating to %s: %w", target, err)
	}

	snapDir := l.snapshotDir(target)
	snapshot(taskCtx, snapDir, "after_nav")

	if n, err := action.StartPlayback(taskCtx, playbackTimeout, profile.CenterX, profile.CenterY); err != nil {
		slog.DebugContext(ctx, "session: starting playback failed", "error", err)
	} else {
		slog.DebugContext(ctx, "session: playback started", "videos", n)
	}

	// Fixed settle delay for asynchronously loaded media.
	select {
	case <-time.After(l.cfg.Settle):
	case <-ctx.Done():
		return "", fmt.Errorf("settling %s: %w", target, context.Cause(ctx))
	}

	drainCtx, drainCancel := context.WithTimeout(ctx, l.cfg.Drain)
	if err := c.Drain(drainCtx); err != nil {
		slog.WarnContext(ctx, "session: pending response bodies abandoned", "error", err)
	}
	drainCancel()

	snapshot(taskCtx, snapDir, "settled")

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading document of %s: %w", target, err)
	}

	return html, nil
}

func (l *chromeLoader) snapshotDir(target *url.URL) string {
	root := l.cfg.SnapshotDir
	if root == "" {
		root = ".debug"
	}
	return filepath.Join(root, sanitize(target.String()))
}

// listen returns an event handler for chromedp.ListenTarget that reports
// responses to c and fetches bodies strategies asked for once they finish
// loading.
func listen(ctx context.Context, c *Collector) func(ev any) {
	var (
		mu      sync.Mutex
		pending = map[network.RequestID]Response{}
	)

	return func(ev any) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			r := Response{URL: e.Response.URL, MimeType: e.Response.MimeType}
			c.ObserveResponse(r)
			if c.WantsBody(r) {
				mu.Lock()
				pending[e.RequestID] = r
				mu.Unlock()
			}

		case *network.EventLoadingFinished:
			mu.Lock()
			r, ok := pending[e.RequestID]
			delete(pending, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}

			// Listener callbacks must not block; CDP calls run on their own
			// goroutine.
			c.Go(func() {
				body, err := responseBody(ctx, e.RequestID)
				if err != nil {
					slog.DebugContext(ctx, "session: reading response body failed", "url", r.URL, "error", err)
					return
				}
				r.Body = body
				c.ObserveResponse(r)
			})

		case *network.EventLoadingFailed:
			mu.Lock()
			delete(pending, e.RequestID)
			mu.Unlock()
		}
	}
}

func responseBody(ctx context.Context, id network.RequestID) ([]byte, error) {
	var body []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		b, err := network.GetResponseBody(id).Do(ctx)
		body = b
		return err
	}))
	return body, err
}
