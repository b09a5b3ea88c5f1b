package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oshokin/app-updater/internal/domain/release"
	"github.com/oshokin/app-updater/internal/logger"
	"github.com/oshokin/app-updater/internal/service/common"
)

// ErrTransport wraps network and HTTP status failures while fetching a feed.
var ErrTransport = errors.New("feed transport error")

// Client fetches feeds over HTTP(S).
type Client struct {
	// httpClient carries the proxy and User-Agent settings.
	httpClient *http.Client
	// timeout bounds a whole fetch including reading the body.
	timeout time.Duration
	// namespace restricts accepted entries when not empty.
	namespace string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds each fetch.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithNamespace only accepts entries bound to the given namespace URI.
func WithNamespace(namespace string) ClientOption {
	return func(c *Client) {
		c.namespace = namespace
	}
}

// NewClient creates a feed client using httpClient for requests.
func NewClient(httpClient *http.Client, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	client := &Client{httpClient: httpClient}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Fetch downloads and parses the feed at uri. Transport failures are the only
// fatal path; no partial result is returned with an error.
func (c *Client) Fetch(ctx context.Context, uri string) ([]*release.Record, error) {
	ctx = logger.WithKV(ctx, "feed", uri)

	callCtx, cancel := common.CallContext(ctx, c.timeout)
	defer cancel()

	logger.Debug(ctx, "Requesting feed")

	response, err := common.Get(callCtx, c.httpClient, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	records, err := ParseNamespace(ctx, response.Body, c.namespace)
	if err != nil {
		// A body cut off mid-stream surfaces as a parse error; report the cause.
		if ctxErr := callCtx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, ctxErr)
		}

		return nil, err
	}

	logger.InfoKV(ctx, "Fetched feed", "records", len(records))

	return records, nil
}
