// Package fetch retrieves a selected media location to local disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/gabriel-vasile/mimetype"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/ffmpeg"
	"github.com/stupside/reelpull/internal/media"
	"github.com/stupside/reelpull/internal/resolve"
)

// ErrDownload is returned for any failure to obtain a non-empty media file.
var ErrDownload = errors.New("download failed")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Asset is a downloaded media file.
type Asset struct {
	Path        string
	Size        int64
	Location    string
	ContentType string
}

// Fetcher downloads media with the same identity the browser session used.
type Fetcher struct {
	cfg    app.FetchConfig
	ffmpeg string
	client *http.Client
	runner ffmpeg.Runner
}

// New creates a Fetcher. runner and ffmpegPath are used to remux HLS
// playlists.
func New(cfg app.FetchConfig, ffmpegPath string, runner ffmpeg.Runner) *Fetcher {
	client := &http.Client{}
	if cfg.ChromeTLS {
		client.Transport = newChromeTransport()
	}
	return &Fetcher{cfg: cfg, ffmpeg: ffmpegPath, client: client, runner: runner}
}

// Fetch downloads location to dest. The body is streamed to dest+".part"
// and renamed on success; nothing is left at either path on failure.
func (f *Fetcher) Fetch(ctx context.Context, location, referer, dest string) (Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Asset{}, fmt.Errorf("%w: invalid location %q", ErrDownload, location)
	}

	if f.cfg.Referer != "" {
		referer = f.cfg.Referer
	}
	headers := map[string]string{"User-Agent": f.cfg.UserAgent}
	if referer != "" {
		headers["Referer"] = referer
	}

	part := dest + ".part"
	defer os.Remove(part)

	var contentType string
	if media.IsHLS(location) {
		contentType = media.MP4
		err = f.remuxHLS(ctx, u, headers, part)
	} else {
		contentType, err = f.download(ctx, u, headers, part)
	}
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	size, err := verify(part)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	if err := os.Rename(part, dest); err != nil {
		return Asset{}, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	slog.InfoContext(ctx, "asset downloaded", "location", location, "path", dest, "bytes", size)

	return Asset{Path: dest, Size: size, Location: location, ContentType: contentType}, nil
}

func (f *Fetcher) download(ctx context.Context, u *url.URL, headers map[string]string, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, URL: u.String()}
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}

	return resp.Header.Get("Content-Type"), nil
}

// remuxHLS copies the best variant of an HLS playlist into an MP4 file.
func (f *Fetcher) remuxHLS(ctx context.Context, u *url.URL, headers map[string]string, path string) error {
	hlsCtx, cancel := context.WithTimeout(ctx, f.cfg.HLSTimeout)
	variant, err := resolve.BestVariant(hlsCtx, f.client, u, headers)
	cancel()
	if err != nil {
		return fmt.Errorf("resolving hls variant: %w", err)
	}

	args := ffmpeg.New().
		Input(variant.String(), append([]string{
			// Forward the session identity to the segment server
			"-headers", media.FormatHTTPHeaders(headers),
		}, media.HLSInputArgs...)...).
		// Stream copy; the transcode stage re-encodes
		Set("-c", "copy").
		// ADTS AAC in TS segments must be converted for the MP4 muxer
		Set("-bsf:a", "aac_adtstoasc").
		Set("-f", "mp4").
		Output(path).
		Build()

	if _, err := f.runner.Run(ctx, f.ffmpeg, args); err != nil {
		return fmt.Errorf("remuxing hls: %w", err)
	}
	return nil
}

// verify checks that path holds a non-empty file that is not an HTML page.
func verify(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if fi.Size() == 0 {
		return 0, errors.New("downloaded file is empty")
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return 0, fmt.Errorf("sniffing %s: %w", path, err)
	}
	if mtype.Is("text/html") {
		return 0, errors.New("received an html page instead of media")
	}

	return fi.Size(), nil
}
