package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/stupside/reelpull/internal/app"
)

// maxStaticPage bounds how much of a page the static loader reads.
const maxStaticPage = 8 << 20

// staticLoader fetches the page HTML without a browser. It sees only the
// server-rendered document, so it is used when the browser found nothing.
type staticLoader struct {
	client    *http.Client
	userAgent string
}

func newStaticLoader(cfg app.BrowserConfig) *staticLoader {
	return &staticLoader{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

func (l *staticLoader) Load(ctx context.Context, target *url.URL, _ *Collector) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: HTTP %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticPage))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", target, err)
	}
	return string(body), nil
}
