// Package proxy resolves the authenticated outbound proxy used for every
// upstream call to the video provider.
package proxy

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is sent upstream when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const clientTimeout = 30 * time.Second

// ErrIncompleteConfig reports proxy settings that were not provided.
type ErrIncompleteConfig struct {
	Missing []string
}

func (e *ErrIncompleteConfig) Error() string {
	return fmt.Sprintf("proxy configuration incomplete: missing %s", strings.Join(e.Missing, ", "))
}

// Config holds the four proxy values plus an optional user agent.
type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	UserAgent string
}

// Endpoint is a resolved proxy: where to connect, how to authenticate and
// which user agent to present.
type Endpoint struct {
	URL             *url.URL
	BasicAuthHeader string
	UserAgent       string
}

// Resolve builds the endpoint without touching the network. When values are
// missing the endpoint is still returned, together with an
// *ErrIncompleteConfig, so failures surface on first use.
func (c Config) Resolve() (Endpoint, error) {
	var missing []string
	for _, v := range []struct{ key, value string }{
		{"PROXY_HOST", c.Host},
		{"PROXY_PORT", c.Port},
		{"PROXY_USERNAME", c.Username},
		{"PROXY_PASSWORD", c.Password},
	} {
		if strings.TrimSpace(v.value) == "" {
			missing = append(missing, v.key)
		}
	}

	userAgent := c.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	ep := Endpoint{
		URL: &url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(c.Host, c.Port),
		},
		BasicAuthHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password)),
		UserAgent:       userAgent,
	}
	if c.Username != "" {
		ep.URL.User = url.UserPassword(c.Username, c.Password)
	}

	if len(missing) > 0 {
		return ep, &ErrIncompleteConfig{Missing: missing}
	}
	return ep, nil
}

// ProxyURL returns the proxy URL with credentials, as accepted by yt-dlp's
// --proxy flag.
func (e Endpoint) ProxyURL() string {
	if e.URL == nil {
		return ""
	}
	return e.URL.String()
}

// Redacted returns the proxy URL with the password masked, for logging.
func (e Endpoint) Redacted() string {
	if e.URL == nil {
		return ""
	}
	return e.URL.Redacted()
}

// Enabled reports whether a proxy host was configured at all.
func (e Endpoint) Enabled() bool {
	return e.URL != nil && e.URL.Hostname() != ""
}

// HTTPClient returns a client whose requests go through the proxy, or nil
// when no proxy is configured so callers keep their default client.
func (e Endpoint) HTTPClient() *http.Client {
	if !e.Enabled() {
		return nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(e.URL)
	transport.ProxyConnectHeader = http.Header{
		"Proxy-Authorization": {e.BasicAuthHeader},
		"User-Agent":          {e.UserAgent},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   clientTimeout,
	}
}
