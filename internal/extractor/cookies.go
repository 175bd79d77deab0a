package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Cookie is a name/value pair injected into the session before navigation.
type Cookie struct {
	Name  string
	Value string
}

// ParseCookies parses a Cookie header style string ("a=1; b=2"). Malformed
// pairs are skipped and a later duplicate name overrides the earlier value.
func ParseCookies(header string) []Cookie {
	var cookies []Cookie
	index := map[string]int{}
	for part := range strings.SplitSeq(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		c := Cookie{Name: name, Value: strings.TrimSpace(value)}
		if i, seen := index[name]; seen {
			cookies[i] = c
			continue
		}
		index[name] = len(cookies)
		cookies = append(cookies, c)
	}
	return cookies
}

// cookieDomain returns the domain cookies are scoped to: the configured
// one, or the registrable part of the target host.
func cookieDomain(configured string, target *url.URL) string {
	if configured != "" {
		return configured
	}
	host := target.Hostname()
	if net.ParseIP(host) != nil {
		return host
	}
	labels := strings.Split(host, ".")
	// keep two-letter country second-level domains such as shop.com.br
	n := 2
	if len(labels) >= 3 && len(labels[len(labels)-1]) == 2 && len(labels[len(labels)-2]) <= 3 {
		n = 3
	}
	if len(labels) <= n {
		return "." + host
	}
	return "." + strings.Join(labels[len(labels)-n:], ".")
}

// setCookies injects cookies for domain. It must run after network.Enable
// and before navigation.
func setCookies(cookies []Cookie, domain string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		for _, c := range cookies {
			if err := network.SetCookie(c.Name, c.Value).
				WithDomain(domain).
				WithPath("/").
				Do(ctx); err != nil {
				return fmt.Errorf("setting cookie %s: %w", c.Name, err)
			}
		}
		if len(cookies) > 0 {
			slog.DebugContext(ctx, "cookies injected", "count", len(cookies), "domain", domain)
		}
		return nil
	}
}
