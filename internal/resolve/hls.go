package resolve

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var bandwidthRe = regexp.MustCompile(`BANDWIDTH=(\d+)`)

// Variant is a single stream from an HLS master playlist.
type Variant struct {
	URL       *url.URL
	Bandwidth int64
}

// Variants fetches an HLS playlist and returns its variant streams. A media
// playlist without #EXT-X-STREAM-INF tags yields a single entry for the
// playlist itself with bandwidth 0.
func Variants(ctx context.Context, client *http.Client, playlist *url.URL, headers map[string]string) ([]Variant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlist.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching playlist: HTTP %d", resp.StatusCode)
	}

	var (
		variants  []Variant
		pending   bool
		bandwidth int64
	)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if pending {
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			pending = false
			u, err := playlist.Parse(line)
			if err != nil {
				slog.Debug("skipping unparsable variant", "line", line, "error", err)
				continue
			}
			variants = append(variants, Variant{URL: u, Bandwidth: bandwidth})
			continue
		}

		if strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			bandwidth = 0
			if m := bandwidthRe.FindStringSubmatch(line); len(m) == 2 {
				bandwidth, _ = strconv.ParseInt(m[1], 10, 64)
			}
			pending = true
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}

	if len(variants) == 0 {
		return []Variant{{URL: playlist}}, nil
	}
	return variants, nil
}

// BestVariant returns the highest-bandwidth variant of an HLS playlist.
func BestVariant(ctx context.Context, client *http.Client, playlist *url.URL, headers map[string]string) (*url.URL, error) {
	variants, err := Variants(ctx, client, playlist, headers)
	if err != nil {
		return nil, err
	}
	best := variants[0]
	for _, v := range variants[1:] {
		if v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	slog.DebugContext(ctx, "hls variant selected", "url", best.URL.String(), "bandwidth", best.Bandwidth, "variants", len(variants))
	return best.URL, nil
}
