package extractor

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidLink is returned for share links that do not name a web page.
var ErrInvalidLink = errors.New("invalid share link")

// ParseShareLink decodes a share link into the page to open. A link that
// only parses once percent-decoded is decoded first. A "redir" query
// parameter, used by short-link and tracking wrappers, replaces the link
// itself.
func ParseShareLink(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := parseWebURL(raw)
	if err != nil {
		// the whole link may arrive percent-encoded
		decoded, uerr := url.QueryUnescape(raw)
		if uerr != nil || decoded == raw {
			return nil, err
		}
		if u, err = parseWebURL(decoded); err != nil {
			return nil, err
		}
	}

	redir := u.Query().Get("redir")
	if redir == "" {
		return u, nil
	}

	target, err := parseWebURL(redir)
	if err != nil {
		// some wrappers encode the target twice
		decoded, uerr := url.QueryUnescape(redir)
		if uerr != nil {
			return nil, fmt.Errorf("%w: redir %q: %w", ErrInvalidLink, redir, err)
		}
		if target, err = parseWebURL(decoded); err != nil {
			return nil, fmt.Errorf("%w: redir %q: %w", ErrInvalidLink, redir, err)
		}
	}
	return target, nil
}

func parseWebURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLink, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLink, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidLink)
	}
	return u, nil
}

// origin returns scheme://host/ of u, used as the Referer for media requests.
func origin(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
}

// Referer returns the Referer media requests for a share link should carry.
func Referer(shareLink string) string {
	u, err := ParseShareLink(shareLink)
	if err != nil {
		return ""
	}
	return origin(u)
}
