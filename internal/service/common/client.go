//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/oshokin/app-updater/internal/config"
)

// clientOptions collects the settings applied by NewHTTPClient.
type clientOptions struct {
	// proxy is the user's proxy configuration.
	proxy config.Proxy
	// userAgent is sent with every request when not empty.
	userAgent string
	// headerTimeout bounds the wait for response headers; bodies may stream longer.
	headerTimeout time.Duration
}

// Option configures the HTTP client.
type Option func(*clientOptions)

// WithProxy routes requests through the given proxy settings.
func WithProxy(proxy config.Proxy) Option {
	return func(o *clientOptions) {
		o.proxy = proxy
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// WithHeaderTimeout sets how long to wait for response headers.
func WithHeaderTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.headerTimeout = timeout
		}
	}
}

// errBadHTTPStatus is wrapped by HTTPError so callers can match any status failure.
var errBadHTTPStatus = errors.New("unexpected http status")

// HTTPError is returned for responses with a status other than 200.
type HTTPError struct {
	// URL is the requested address.
	URL string
	// Status is the status line, e.g. "404 Not Found".
	Status string
	// Code is the numeric status code.
	Code int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s, %s: %s", e.URL, e.Status, errBadHTTPStatus)
}

// Unwrap lets errors.Is match errBadHTTPStatus.
func (e *HTTPError) Unwrap() error {
	return errBadHTTPStatus
}

// HTTPStatusCode returns the HTTP status code.
func (e *HTTPError) HTTPStatusCode() int {
	return e.Code
}

// NewHTTPClient builds a client honoring the proxy, user agent and header timeout.
// Downloads stream for as long as needed, so no overall client timeout is set.
func NewHTTPClient(opts ...Option) (*http.Client, error) {
	options := &clientOptions{
		headerTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(options)
	}

	proxyFunc, err := proxyFunc(options.proxy)
	if err != nil {
		return nil, err
	}

	//nolint:forcetypeassert // DefaultTransport is always *http.Transport.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxyFunc
	transport.ResponseHeaderTimeout = options.headerTimeout

	var roundTripper http.RoundTripper = transport
	if options.userAgent != "" {
		roundTripper = &userAgentTransport{
			base:      transport,
			userAgent: options.userAgent,
		}
	}

	return &http.Client{Transport: roundTripper}, nil
}

// proxyFunc converts proxy settings into an http.Transport proxy function.
func proxyFunc(proxy config.Proxy) (func(*http.Request) (*url.URL, error), error) {
	if proxy.Disabled {
		return nil, nil
	}

	if proxy.URL == "" {
		return http.ProxyFromEnvironment, nil
	}

	proxyURL, err := url.Parse(proxy.URL)
	if err != nil {
		return nil, fmt.Errorf("parse proxy URL: %w", err)
	}

	if proxy.Username != "" {
		proxyURL.User = url.UserPassword(proxy.Username, proxy.Password)
	}

	return http.ProxyURL(proxyURL), nil
}

// userAgentTransport sets the User-Agent header before delegating.
type userAgentTransport struct {
	// base performs the actual round trip.
	base http.RoundTripper
	// userAgent is the header value.
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("User-Agent", t.userAgent)

	return t.base.RoundTrip(cloned)
}

// Get issues a GET request and checks the response status.
// On a non-200 status the body is closed and an *HTTPError returned.
func Get(ctx context.Context, client *http.Client, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()

		return nil, &HTTPError{
			URL:    uri,
			Status: response.Status,
			Code:   response.StatusCode,
		}
	}

	return response, nil
}

// CallContext returns a context bounded by timeout when it is positive,
// otherwise a cancellable child context without a deadline.
func CallContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}
