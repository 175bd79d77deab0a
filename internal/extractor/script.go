package extractor

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stupside/reelpull/internal/media"
)

// objectPattern matches flat JSON objects that mention a media-ish key.
var objectPattern = regexp.MustCompile(`(?i)\{[^{}]*"(?:video|url|src|source|play|stream)[^{}]*\}`)

var jsUnescaper = strings.NewReplacer(`\/`, `/`, `\u002F`, `/`, `\u002f`, `/`, `\u0026`, `&`)

// scriptStrategy walks inline scripts for media URLs. Whole-JSON bodies
// (state blobs, ld+json) and embedded object literals are walked
// structurally; a raw pattern scan is used only when that finds nothing.
type scriptStrategy struct {
	maxDepth int
}

func (scriptStrategy) Name() string           { return "script" }
func (scriptStrategy) Channel() media.Channel { return media.ChannelScript }

func (s scriptStrategy) ScanDocument(doc *goquery.Document, emit Emit) {
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && src != "" {
			return
		}
		s.scan(sel.Text(), emit)
	})
}

func (s scriptStrategy) scan(body string, emit Emit) {
	found := 0

	trimmed := bytes.TrimSpace([]byte(body))
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		n, _ := walkMedia(trimmed, s.maxDepth, emit)
		found += n
	}

	if found == 0 {
		for _, obj := range objectPattern.FindAllString(body, -1) {
			n, _ := walkMedia([]byte(obj), s.maxDepth, emit)
			found += n
		}
	}

	if found > 0 {
		return
	}
	for _, u := range mediaURLPattern.FindAllString(jsUnescaper.Replace(body), -1) {
		emit(u, "")
	}
}
