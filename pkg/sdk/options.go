package findex

import (
	"net/http"
	"time"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey     string
	principal  string
	timeout    time.Duration
	httpClient *http.Client
	userAgent  string
}

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithPrincipal sets the principal identity attached to every search.
// Defaults to "anonymous" on the server when unset.
func WithPrincipal(id string) Option {
	return optionFunc(func(c *clientConfig) {
		c.principal = id
	})
}

// WithTimeout sets the per-request timeout. Defaults to 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithHTTPClient replaces the underlying HTTP client. The client's own
// timeout applies; WithTimeout is ignored when this option is used.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		c.userAgent = ua
	})
}
