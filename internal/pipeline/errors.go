package pipeline

import (
	"context"
	"errors"

	"github.com/stupside/reelpull/internal/extractor"
	"github.com/stupside/reelpull/internal/fetch"
	"github.com/stupside/reelpull/internal/resolve"
	"github.com/stupside/reelpull/internal/transcode"
)

// UserMessage maps a request error to a short message safe to show to the
// requester. It never includes paths, locations or upstream error text.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLimitReached):
		return "Download limit reached."
	case errors.Is(err, extractor.ErrNavigation):
		return "Could not open the link."
	case errors.Is(err, resolve.ErrNoCandidate):
		return "No video found at the link."
	case errors.Is(err, fetch.ErrDownload):
		return "Could not download the video."
	case errors.Is(err, transcode.ErrTranscode):
		return "Could not process the video."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "The request timed out."
	default:
		return "Something went wrong. Try again later."
	}
}
