// Package urlutil canonicalizes URLs and decides crawl scope.
//
// Two pages are the same page iff their normalized forms are equal, so
// every URL that enters the crawler, the graph, or the search state goes
// through Normalize first.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for deduplication:
//   - fragment removed
//   - host lowercased (port kept)
//   - empty path becomes "/"
//   - trailing slashes trimmed from non-root paths
//
// The query string is preserved verbatim. Unparsable input is returned
// unchanged; only seed URLs are validated (see ParseSeed).
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	if u.Host != "" {
		host := strings.ToLower(u.Hostname())
		if port := u.Port(); port != "" {
			u.Host = host + ":" + port
		} else {
			u.Host = host
		}
	}
	path := u.Path
	if path == "" && u.Host != "" {
		path = "/"
	}
	if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	u.Path = path
	return u.String()
}

// ParseSeed validates and normalizes a crawl seed. The seed must be an
// absolute http or https URL; everything else is a configuration error.
func ParseSeed(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("seed url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse seed url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("seed url %q must start with http:// or https://", raw)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("seed url %q has no host", raw)
	}
	return Normalize(raw), nil
}

// BaseDomain returns the last two dot-separated labels of a host
// (en.wikipedia.org -> wikipedia.org). Single-label hosts are returned
// as-is. A port, if present, is stripped.
func BaseDomain(host string) string {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i+1:], "]") {
		host = host[:i]
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// SameDomain reports whether rawURL's host shares the given base domain.
func SameDomain(rawURL, base string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return BaseDomain(u.Hostname()) == base
}

// Crawlable reports whether a link is worth following at all: http(s)
// scheme, and not a mailto: or javascript: pseudo-link.
func Crawlable(rawURL string) bool {
	if strings.HasPrefix(rawURL, "mailto:") || strings.HasPrefix(rawURL, "javascript:") {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
