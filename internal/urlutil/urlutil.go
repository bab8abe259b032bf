// Package urlutil canonicalizes and classifies URLs for the crawl layer.
// Normalize defines the single canonical form used by the visited set and
// the PDF dedup set, so every URL comparison in the pipeline goes through
// it.
package urlutil

import (
	"net/url"
	"strings"
)

// skipExtensions are downloads the crawler never queues as pages. PDFs are
// deliberately absent: they are partitioned into artifacts before the
// frontier is built.
var skipExtensions = []string{
	".zip", ".tar", ".gz", ".rar", ".jar", ".exe", ".iso", ".7z", ".bz2",
}

// Normalize strips the fragment from a URL and changes nothing else.
// Total: unparseable input passes through, and normalizing an
// already-normalized URL is a no-op.
func Normalize(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// IsCrawlable reports whether a URL may enter the crawl frontier: http or
// https scheme, and a path that is not an obvious binary download.
func IsCrawlable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

// IsPDF reports whether the URL path points at a PDF document. Queries and
// fragments do not affect the answer.
func IsPDF(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// Resolve interprets href relative to base, following urljoin semantics:
// absolute hrefs pass through, relative ones are joined against the base.
// If either side fails to parse, href is returned unchanged.
func Resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
