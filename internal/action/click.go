package action

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// playJS starts every media element on the page; lazy players only request
// their source once playback begins.
const playJS = `(() => {
	const videos = Array.from(document.querySelectorAll('video'));
	videos.forEach(v => { v.muted = true; const p = v.play(); if (p) p.catch(() => {}); });
	return videos.length;
})()`

// click clicks at the given viewport coordinates.
func click(ctx context.Context, x, y float64) error {
	return chromedp.Run(ctx, chromedp.MouseClickXY(x, y, chromedp.ButtonLeft))
}

// StartPlayback asks every <video> on the page to play and returns how many
// there were. When there are none it clicks the viewport center, which
// mounts click-to-play players.
func StartPlayback(ctx context.Context, timeout time.Duration, x, y float64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var count int
	if err := chromedp.Run(ctx, chromedp.Evaluate(playJS, &count)); err != nil {
		return 0, err
	}
	if count > 0 {
		return count, nil
	}
	return 0, click(ctx, x, y)
}
