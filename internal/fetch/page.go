package fetch

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is one anchor found on a page. Href is the raw attribute value;
// resolving relative links against the page URL is the caller's concern.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// PageResult is the outcome of fetching one URL. Failures are embedded
// (Success false, Error set) so a batch always yields one result per
// input. The JSON tags exist for the fetch cache.
type PageResult struct {
	URL      string `json:"url"` // Final URL after redirects
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Title    string `json:"title,omitempty"`
	Markdown string `json:"markdown,omitempty"`
	Internal []Link `json:"internal_links,omitempty"` // Same host as URL
	External []Link `json:"external_links,omitempty"` // Everything else
}

// failed builds an unsuccessful result for a URL.
func failed(url string, err error) PageResult {
	return PageResult{URL: url, Error: err.Error()}
}

// pageTitle returns the text of the first <title> element.
func pageTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// collectLinks gathers every anchor with an href attribute, in document
// order.
func collectLinks(doc *html.Node) []Link {
	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					links = append(links, Link{
						Href: strings.TrimSpace(attr.Val),
						Text: strings.TrimSpace(anchorText(n)),
					})
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// anchorText flattens the text content of an anchor element.
func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// invisibleTags never contribute to the page's markdown rendering.
var invisibleTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
}

// removeInvisible prunes non-content elements in place before markdown
// conversion.
func removeInvisible(doc *html.Node) {
	var toRemove []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && invisibleTags[n.Data] {
			toRemove = append(toRemove, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	for _, n := range toRemove {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// renderHTML serializes a parsed document back to HTML.
func renderHTML(doc *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return ""
	}
	return sb.String()
}

// categorizeLinks splits links into same-host and external sets relative
// to pageURL. Links that resolve nowhere are treated as external; the
// crawler's classifier rejects them later.
func categorizeLinks(pageURL string, links []Link) (internal, external []Link) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, links
	}
	for _, link := range links {
		ref, err := url.Parse(link.Href)
		if err != nil {
			external = append(external, link)
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host == base.Host {
			internal = append(internal, link)
		} else {
			external = append(external, link)
		}
	}
	return internal, external
}
