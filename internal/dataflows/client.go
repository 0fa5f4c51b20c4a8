package dataflows

import (
	"time"

	"github.com/go-resty/resty/v2"
)

type clientOptions struct {
	baseURL string
	timeout time.Duration
	retry   *RetryConfig
	cache   *CacheManager
}

// ClientOption customizes an HTTP-backed provider client.
type ClientOption func(*clientOptions)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) { o.baseURL = u }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

func WithRetries(n int) ClientOption {
	return func(o *clientOptions) {
		rc := DefaultRetryConfig()
		rc.MaxRetries = n
		o.retry = rc
	}
}

// WithCache enables payload caching for the slow-moving endpoints.
func WithCache(cm *CacheManager) ClientOption {
	return func(o *clientOptions) { o.cache = cm }
}

func buildOptions(defaultBase string, opts []ClientOption) clientOptions {
	o := clientOptions{
		baseURL: defaultBase,
		timeout: 30 * time.Second,
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newRestyClient(o clientOptions) *resty.Client {
	client := resty.New()
	client.SetBaseURL(o.baseURL)
	client.SetTimeout(o.timeout)
	client.SetHeader("Accept", "application/json")
	return client
}
