package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stupside/reelpull/internal/media"
)

// qualityAttrs are the attributes pages use to label alternate sources.
var qualityAttrs = []string{"data-quality", "data-res", "label", "res", "size", "title"}

// domStrategy records the primary <video> element's source and its
// alternate <source> children.
type domStrategy struct{}

func (domStrategy) Name() string           { return "dom" }
func (domStrategy) Channel() media.Channel { return media.ChannelDOM }

func (domStrategy) ScanDocument(doc *goquery.Document, emit Emit) {
	video := doc.Find("video").First()
	if video.Length() == 0 {
		return
	}

	if src, ok := video.Attr("src"); ok && src != "" {
		emit(src, "video "+qualityHint(video))
	}

	video.Find("source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			emit(src, "video "+qualityHint(s))
		}
	})
}

func qualityHint(s *goquery.Selection) string {
	for _, attr := range qualityAttrs {
		if v, ok := s.Attr(attr); ok && v != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
