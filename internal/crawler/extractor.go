package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
)

// LinkExtractor returns the outbound links of a page.
// Implementations must be safe for concurrent use.
type LinkExtractor interface {
	ExtractLinks(ctx context.Context, pageURL string) ([]string, error)
}

// ExtractorFunc adapts an ordinary function to the LinkExtractor interface.
type ExtractorFunc func(ctx context.Context, pageURL string) ([]string, error)

// ExtractLinks calls f(ctx, pageURL).
func (f ExtractorFunc) ExtractLinks(ctx context.Context, pageURL string) ([]string, error) {
	return f(ctx, pageURL)
}

const (
	// DefaultUserAgent is sent when no User-Agent is configured.
	DefaultUserAgent = "linkcrawl/1.0 (+https://github.com/nao1215/linkcrawl)"

	// DefaultMaxBodySize is the number of body bytes read per page.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024
)

// HTTPExtractor fetches pages over HTTP and extracts their links.
type HTTPExtractor struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	headers     map[string]string
	hostHeaders map[string]map[string]string
}

// ExtractorOption configures an HTTPExtractor.
type ExtractorOption func(*HTTPExtractor)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ExtractorOption {
	return func(x *HTTPExtractor) {
		if ua != "" {
			x.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many bytes of a response body are parsed.
// Zero or a negative size keeps the default.
func WithMaxBodySize(size int64) ExtractorOption {
	return func(x *HTTPExtractor) {
		if size > 0 {
			x.maxBodySize = size
		}
	}
}

// WithHeaders adds extra request headers, e.g. an Authorization header for
// a staging site. They are applied after the defaults and may override them.
func WithHeaders(headers map[string]string) ExtractorOption {
	return func(x *HTTPExtractor) {
		for k, v := range headers {
			x.headers[k] = v
		}
	}
}

// WithHostHeaders adds headers sent only to specific hosts, keyed by
// lower-case host name without port. They override the global headers.
func WithHostHeaders(hosts map[string]map[string]string) ExtractorOption {
	return func(x *HTTPExtractor) {
		for host, headers := range hosts {
			x.hostHeaders[strings.ToLower(host)] = headers
		}
	}
}

// NewHTTPExtractor creates an extractor that uses client for all requests.
// A nil client falls back to http.DefaultClient.
func NewHTTPExtractor(client *http.Client, opts ...ExtractorOption) *HTTPExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	x := &HTTPExtractor{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		headers:     make(map[string]string),
		hostHeaders: make(map[string]map[string]string),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ExtractLinks fetches pageURL and returns its absolute http(s) links.
// Non-2xx responses are errors. Responses that are not HTML have no links.
func (x *HTTPExtractor) ExtractLinks(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", x.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range x.headers {
		req.Header.Set(k, v)
	}
	for k, v := range x.hostHeaders[strings.ToLower(req.URL.Hostname())] {
		req.Header.Set(k, v)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, nil
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, x.maxBodySize), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	opts := make([]ParserOption, 0, 1)
	if resp.Request != nil && resp.Request.URL != nil {
		opts = append(opts, WithBaseURL(resp.Request.URL))
	}
	parser, err := NewParser(pageURL, opts...)
	if err != nil {
		return nil, err
	}
	result, err := parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return result.Links, nil
}

// isHTML reports whether a Content-Type header denotes an HTML document.
// A missing header is treated as HTML since many small servers omit it.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
