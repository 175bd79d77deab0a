package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// snapshot writes a screenshot and the current DOM of the page to dir.
// It only runs when debug logging is enabled.
func snapshot(ctx context.Context, dir, label string) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.DebugContext(ctx, "snapshot: mkdir failed", "error", err)
		return
	}

	prefix := filepath.Join(dir, fmt.Sprintf("%s_%d", label, time.Now().UnixMilli()))

	var (
		png  []byte
		html string
	)
	err := chromedp.Run(ctx,
		chromedp.CaptureScreenshot(&png),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		slog.DebugContext(ctx, "snapshot: capture failed", "label", label, "error", err)
		return
	}

	for ext, data := range map[string][]byte{".png": png, ".html": []byte(html)} {
		if err := os.WriteFile(prefix+ext, data, 0o644); err != nil {
			slog.DebugContext(ctx, "snapshot: write failed", "path", prefix+ext, "error", err)
		}
	}

	slog.DebugContext(ctx, "snapshot: saved", "label", label, "path", prefix)
}

// sanitize turns a URL into a safe directory name.
func sanitize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	s := strings.NewReplacer("/", "_", ":", "_", "?", "_", "&", "_").Replace(u.Host + u.Path)
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
