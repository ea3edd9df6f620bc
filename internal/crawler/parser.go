package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts outbound links from HTML content.
//
// Design decision: We use golang.org/x/net/html for parsing rather than
// regex because it correctly handles the malformed HTML common on the web
// and gives us a proper DOM to walk.
type Parser struct {
	// pageURL is the URL the content was fetched from, exactly as requested.
	// The self-reference filters compare links against it.
	pageURL string

	// baseURL is used for resolving relative links. It starts as the page
	// URL and is replaced by the first <base href> in the document.
	baseURL *url.URL

	// baseSeen reports whether a <base> element has already been applied.
	baseSeen bool
}

// ParseResult contains the information extracted from an HTML page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links contains the absolute http(s) links of the page in document
	// order. Duplicates are kept; the engine decides how to count them.
	Links []string
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithBaseURL resolves relative links against u instead of the page URL.
// The extractor uses it when a request was redirected.
func WithBaseURL(u *url.URL) ParserOption {
	return func(p *Parser) {
		if u != nil {
			p.baseURL = u
		}
	}
}

// NewParser creates a parser for content fetched from pageURL.
func NewParser(pageURL string, opts ...ParserOption) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		pageURL: pageURL,
		baseURL: u,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Parse parses HTML content and returns the links that should be followed.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links: make([]string, 0),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult) {
	switch n.Data {
	case "base":
		if p.baseSeen {
			return
		}
		p.baseSeen = true
		if href := strings.TrimSpace(getAttr(n, "href")); href != "" {
			if u, err := url.Parse(href); err == nil {
				p.baseURL = p.baseURL.ResolveReference(u)
			}
		}

	case "title":
		if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "a":
		resolved := p.resolveURL(getAttr(n, "href"))
		if resolved != "" && p.follow(resolved) {
			result.Links = append(result.Links, resolved)
		}
	}
}

// resolveURL resolves a relative URL against the base URL.
// An empty string means the href does not point at a fetchable page.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") ||
		href == "#" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return p.baseURL.ResolveReference(u).String()
}

// follow reports whether a resolved link is worth crawling: it must be an
// http(s) URL and must not point back at the page itself through a fragment
// or a trailing slash.
func (p *Parser) follow(link string) bool {
	if strings.Contains(link, p.pageURL+"#") || link == p.pageURL+"/" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
