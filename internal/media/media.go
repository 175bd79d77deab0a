package media

import (
	"net/url"
	"path"
	"slices"
	"strings"
)

const (
	MP4  = "video/mp4"
	WebM = "video/webm"
	MOV  = "video/quicktime"
	HLS  = "application/x-mpegURL"
)

// HLSInputArgs contains ffmpeg flags that relax extension checks for HLS
// playlists served with unusual segment names.
var HLSInputArgs = []string{
	"-allowed_extensions", "ALL",
	"-allowed_segment_extensions", "ALL",
	"-extension_picky", "0",
}

var extensionMap = map[string]string{
	".mp4":  MP4,
	".webm": WebM,
	".mov":  MOV,
	".m3u8": HLS,
}

// DetectFromExtension returns a content type based on the URL's file extension,
// or empty string if unrecognized.
func DetectFromExtension(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	return extensionMap[ext]
}

var mimeContentTypes = map[string]string{
	"video/mp4":                     MP4,
	"video/webm":                    WebM,
	"video/quicktime":               MOV,
	"audio/mpegurl":                 HLS,
	"audio/x-mpegurl":               HLS,
	"application/x-mpegurl":         HLS,
	"application/vnd.apple.mpegurl": HLS,
}

// DetectFromMIME returns a content type based on a confirmed MIME type,
// or empty string if unrecognized.
func DetectFromMIME(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	return mimeContentTypes[strings.ToLower(strings.TrimSpace(mime))]
}

// IsHLS reports whether the location points at an HLS playlist.
func IsHLS(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return DetectFromExtension(u) == HLS
}

// FormatHTTPHeaders formats headers into the ffmpeg -headers flag value:
// "Key: Value\r\nKey2: Value2\r\n". Keys are emitted in sorted order.
func FormatHTTPHeaders(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		if strings.HasPrefix(k, ":") { // skip HTTP/2 pseudo-headers (:method, :path, …)
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(headers[k])
		b.WriteString("\r\n")
	}
	return b.String()
}
