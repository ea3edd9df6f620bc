package config

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds settings applied to requests for one host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .linkcrawl configuration file.
type File struct {
	// URL is the seed URL.
	URL string `yaml:"url,omitempty"`

	// Depth is the maximum recursion depth. A pointer so that an explicit
	// "depth: 0" can be told apart from an absent key.
	Depth *DepthValue `yaml:"depth,omitempty"`

	// Output is the result file path.
	Output string `yaml:"output,omitempty"`

	// Timeout is the per-request timeout, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent is the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty"`

	// Proxy is a SOCKS5 proxy address (host:port).
	Proxy string `yaml:"proxy,omitempty"`

	// Headers are extra headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Sites maps host names to host-specific settings.
	// Keys are host names without scheme or port (e.g., "example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains settings applied to every host listed in Sites
	// unless overridden there.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// DepthValue is the depth as written in the config file. It is kept as
// text so that a malformed depth is replaced by a fallback in ApplyFile
// instead of failing the whole file.
type DepthValue string

// UnmarshalYAML stores the scalar text of the node. Non-scalar nodes are
// stored as an empty, and therefore invalid, depth.
func (d *DepthValue) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		*d = ""
		return nil
	}
	*d = DepthValue(value.Value)
	return nil
}

// GetSiteConfig returns the configuration for a host.
// It merges the host-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := SiteConfig{Cookie: cf.Defaults.Cookie}
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		for name, sc := range cf.Sites {
			if strings.EqualFold(name, host) {
				siteConfig, ok = sc, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	return result
}
