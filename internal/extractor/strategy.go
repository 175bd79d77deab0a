package extractor

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/stupside/reelpull/internal/app"
	"github.com/stupside/reelpull/internal/jsonwalk"
	"github.com/stupside/reelpull/internal/media"
)

// mediaURLPattern matches absolute URLs of video files and HLS playlists.
// Commas end a match so comma-separated source lists split per URL.
var mediaURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>,\\]+\.(?:mp4|webm|m3u8)\b(?:\?[^\s"'<>,\\]*)?`)

// Emit records a media location found under key (a JSON key, an attribute
// hint, or empty).
type Emit func(location, key string)

// Response is a network response observed during a session. Body is nil
// until the response finished loading and a strategy asked for it.
type Response struct {
	URL      string
	MimeType string
	Body     []byte
}

// DocumentStrategy extracts candidates from the rendered page.
type DocumentStrategy interface {
	Name() string
	Channel() media.Channel
	ScanDocument(doc *goquery.Document, emit Emit)
}

// ResponseStrategy extracts candidates from network traffic.
type ResponseStrategy interface {
	Name() string
	// WantsBody reports whether ScanResponse should be called again with
	// the body of r once it is available.
	WantsBody(r Response) bool
	ScanResponse(r Response, emit Emit)
}

// Registry is the ordered set of strategies a session runs.
type Registry struct {
	documents []DocumentStrategy
	responses []ResponseStrategy
}

// NewRegistry returns the DOM, script and network strategies.
func NewRegistry(cfg app.CaptureConfig) *Registry {
	r := &Registry{}
	r.AddDocument(domStrategy{})
	r.AddDocument(scriptStrategy{maxDepth: cfg.MaxDepth})
	r.AddResponse(newNetworkStrategy(cfg.APIPatterns, cfg.MaxDepth))
	return r
}

// AddDocument appends a document strategy.
func (r *Registry) AddDocument(s DocumentStrategy) {
	r.documents = append(r.documents, s)
}

// AddResponse appends a response strategy.
func (r *Registry) AddResponse(s ResponseStrategy) {
	r.responses = append(r.responses, s)
}

// walkMedia visits a JSON document and emits every media URL inside its
// string values under their enclosing key. It returns how many were found.
func walkMedia(data []byte, maxDepth int, emit Emit) (int, error) {
	found := 0
	err := jsonwalk.Walk(data, maxDepth, func(n jsonwalk.Node) {
		s, ok := n.Text()
		if !ok {
			return
		}
		for _, u := range mediaURLPattern.FindAllString(s, -1) {
			emit(u, n.Key)
			found++
		}
	})
	return found, err
}
