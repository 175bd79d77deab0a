package extractor

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"github.com/stupside/reelpull/internal/media"
)

// networkStrategy records media responses by URL or confirmed MIME type and
// walks the bodies of API-like endpoints as JSON for embedded media URLs.
type networkStrategy struct {
	apiPatterns []string
	maxDepth    int
}

func newNetworkStrategy(apiPatterns []string, maxDepth int) *networkStrategy {
	patterns := lo.FilterMap(apiPatterns, func(p string, _ int) (string, bool) {
		p = strings.ToLower(strings.TrimSpace(p))
		return p, p != ""
	})
	return &networkStrategy{apiPatterns: lo.Uniq(patterns), maxDepth: maxDepth}
}

func (*networkStrategy) Name() string { return "network" }

func (s *networkStrategy) WantsBody(r Response) bool {
	if isMediaResponse(r) || isAssetMIME(r.MimeType) {
		return false
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range s.apiPatterns {
		if strings.Contains(p, pattern) {
			return true
		}
	}
	return false
}

func (s *networkStrategy) ScanResponse(r Response, emit Emit) {
	if r.Body == nil {
		if isMediaResponse(r) {
			emit(r.URL, "")
		}
		return
	}

	n, err := walkMedia(r.Body, s.maxDepth, emit)
	if err != nil {
		slog.Debug("api response is not json", "url", r.URL, "error", err)
		return
	}
	slog.Debug("api response walked", "url", r.URL, "found", n)
}

// assetMIMEPrefixes are page resources that never carry API payloads.
var assetMIMEPrefixes = []string{"image/", "font/", "text/css", "audio/"}

// isAssetMIME reports whether mime names a static page resource.
func isAssetMIME(mime string) bool {
	mime = strings.ToLower(mime)
	return lo.SomeBy(assetMIMEPrefixes, func(p string) bool {
		return strings.HasPrefix(mime, p)
	})
}

// isMediaResponse matches by file extension (query stripped) or by a media
// MIME type confirmed by the server.
func isMediaResponse(r Response) bool {
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return media.DetectFromExtension(u) != "" || media.DetectFromMIME(r.MimeType) != ""
}
