package config

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/linkcrawl/internal/crawler"
)

// Default configuration values.
const (
	// DefaultDepth is used when neither the command line nor the config file
	// sets a depth. 1 means the seed page and the pages it links to.
	DefaultDepth = 1

	// DefaultTimeout bounds each HTTP request, including reading the body.
	DefaultTimeout = 30 * time.Second

	// DefaultOutputFile is where the hit counts are written.
	DefaultOutputFile = "result.txt"

	// DefaultUserAgent identifies linkcrawl in HTTP requests so site
	// operators can recognize crawler traffic in their logs.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultMaxBodySize limits the response body size read per page.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize

	// AppName is the application name used for XDG directory paths.
	AppName = "linkcrawl"
)

// Config holds all configuration options for a crawl run.
// It is populated from defaults, the config file, CLI flags and positional
// arguments (in increasing precedence) and passed through the application
// rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs for
// simplicity. The number of options is small.
type Config struct {
	// SeedURL is the URL the crawl starts from.
	SeedURL string

	// Depth is the maximum recursion depth. 0 registers the seed only.
	Depth int

	// OutputFile is the path of the result file ("<count>\t<url>" lines).
	OutputFile string

	// Timeout is the timeout of each HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// ProxyAddress routes all requests through a SOCKS5 proxy at host:port.
	// Empty means direct connections.
	ProxyAddress string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// SiteConfigs holds per-host settings loaded from the config file.
	// Nil when no config file was loaded.
	SiteConfigs *File

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches the default locations (see FindConfigFile).
	ConfigFilePath string

	// JSONReport prints the report as JSON instead of human-readable text.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the report as Markdown instead of human-readable
	// text. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/linkcrawl on Linux).
	DBDir string

	// SaveToDB records the finished run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., depth, timeout).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Depth:       DefaultDepth,
		OutputFile:  DefaultOutputFile,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Headers:     make(map[string]string),
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// ApplyFile copies every value set in the config file into c.
// Values that the file leaves unset keep their current value.
//
// An invalid depth does not stop the file from being applied: c.Depth is
// set to FallbackDepth and the returned error, wrapping ErrInvalidDepth,
// is meant to be reported as a warning.
func (c *Config) ApplyFile(f *File) error {
	if f == nil {
		return nil
	}

	var depthErr error
	if f.URL != "" {
		c.SeedURL = f.URL
	}
	if f.Depth != nil {
		c.Depth, depthErr = ResolveDepth(string(*f.Depth), c.Depth)
	}
	if f.Output != "" {
		c.OutputFile = f.Output
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.MaxBodySize != 0 {
		c.MaxBodySize = f.MaxBodySize
	}
	if f.Proxy != "" {
		c.ProxyAddress = f.Proxy
	}
	if c.Headers == nil {
		c.Headers = make(map[string]string, len(f.Headers))
	}
	for k, v := range f.Headers {
		c.Headers[k] = v
	}
	c.SiteConfigs = f
	return depthErr
}

// HostHeaders returns the extra headers to send per host, built from the
// site sections of the config file. Cookies become a Cookie header.
func (c *Config) HostHeaders() map[string]map[string]string {
	if c.SiteConfigs == nil || len(c.SiteConfigs.Sites) == 0 {
		return nil
	}
	result := make(map[string]map[string]string, len(c.SiteConfigs.Sites))
	for host := range c.SiteConfigs.Sites {
		site := c.SiteConfigs.GetSiteConfig(host)
		headers := make(map[string]string, len(site.Headers)+1)
		for k, v := range site.Headers {
			headers[k] = v
		}
		if site.Cookie != "" {
			headers["Cookie"] = site.Cookie
		}
		if len(headers) > 0 {
			result[strings.ToLower(host)] = headers
		}
	}
	return result
}

// XDGDataDir returns the XDG data directory for linkcrawl.
// On Linux: ~/.local/share/linkcrawl
// On macOS: ~/Library/Application Support/linkcrawl
// On Windows: %LOCALAPPDATA%\linkcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkcrawl.
// On Linux: ~/.config/linkcrawl
// On macOS: ~/Library/Application Support/linkcrawl
// On Windows: %APPDATA%\linkcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SeedURL) == "" {
		return ErrNoSeedURL
	}

	u, err := url.Parse(c.SeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeedURL, c.SeedURL)
	}

	if c.Depth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, c.Depth)
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ProxyAddress != "" && !crawler.IsValidProxyAddress(c.ProxyAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.ProxyAddress)
	}

	for k := range c.Headers {
		if !validHeaderName(k) {
			return fmt.Errorf("%w: %q", ErrInvalidHeader, k)
		}
	}

	return nil
}

// ParseDepth parses a depth given on the command line or in the config file.
func ParseDepth(s string) (int, error) {
	depth, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDepth, s)
	}
	if depth < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	return depth, nil
}

// FallbackDepth returns the depth used in place of an invalid one: the
// configured depth, or DefaultDepth when the configured depth is not
// positive.
func FallbackDepth(configured int) int {
	if configured <= 0 {
		return DefaultDepth
	}
	return configured
}

// ResolveDepth parses s like ParseDepth. When s is not a valid depth it
// returns FallbackDepth(configured) together with the parse error, so the
// caller can warn and carry on.
func ResolveDepth(s string, configured int) (int, error) {
	depth, err := ParseDepth(s)
	if err != nil {
		return FallbackDepth(configured), err
	}
	return depth, nil
}

// ParseHeader parses a "Key: Value" header flag. The key is canonicalized.
func ParseHeader(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, ":")
	key = strings.TrimSpace(key)
	if !ok || !validHeaderName(key) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidHeader, s)
	}
	return http.CanonicalHeaderKey(key), strings.TrimSpace(value), nil
}

// validHeaderName reports whether name is a non-empty HTTP token.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("\"(),/:;<=>?@[\\]{}", r) {
			return false
		}
	}
	return true
}
