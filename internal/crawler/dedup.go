package crawler

import (
	"net/url"
	"sort"
	"strings"
)

// Deduplicator tracks collected listing URLs so each ad is visited once,
// regardless of how many result pages it appeared on.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator creates a Deduplicator sized for the expected crawl.
func NewDeduplicator(estimatedCapacity int) *Deduplicator {
	return &Deduplicator{
		seen: make(map[string]struct{}, estimatedCapacity),
	}
}

// Filter returns the unique URLs from rawURLs in first-occurrence order,
// comparing by canonical form. Filtering an already-filtered list returns
// it unchanged.
func (d *Deduplicator) Filter(rawURLs []string) []string {
	out := make([]string, 0, len(rawURLs))
	for _, raw := range rawURLs {
		key := CanonicalizeURL(raw)
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		out = append(out, raw)
	}
	return out
}

// Seen reports whether a URL's canonical form has been collected.
func (d *Deduplicator) Seen(rawURL string) bool {
	_, ok := d.seen[CanonicalizeURL(rawURL)]
	return ok
}

// Count returns the number of unique URLs collected.
func (d *Deduplicator) Count() int {
	return len(d.seen)
}

// CanonicalizeURL normalizes a URL for deduplication:
// - lowercases scheme and host
// - removes fragment and default ports
// - sorts query parameters
// - removes trailing slash (except root)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
