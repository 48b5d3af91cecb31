package search

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a URL for deduplication: the host is lowercased
// and loses any leading "www.", a trailing slash is stripped unless the path
// is the root, the query string is kept, and the scheme is ignored entirely.
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return strings.TrimSpace(rawURL)
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")

	path := parsed.Path
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}

	normalized := host + path
	if parsed.RawQuery != "" {
		normalized += "?" + parsed.RawQuery
	}
	return normalized
}

// HitID returns the stable short hex identifier for a URL. Two URLs that
// normalize equally share an ID, so duplicates across sub-queries collapse.
func HitID(rawURL string) string {
	sum := sha1.Sum([]byte(NormalizeURL(rawURL)))
	return hex.EncodeToString(sum[:6])
}

// Domain extracts the bare hostname from a URL, without any "www." prefix.
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
