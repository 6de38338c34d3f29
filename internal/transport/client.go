package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/retry"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// DefaultUserAgent identifies the synchroniser to both remote systems.
const DefaultUserAgent = "SyncFromSpond"

// Client performs authenticated JSON requests against a single service.
type Client struct {
	service   string
	http      *http.Client
	auth      Authenticator
	userAgent string
	retry     *retry.Config
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRetry overrides the retry policy used for idempotent requests.
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) {
		if cfg != nil {
			c.retry = cfg
		}
	}
}

// New creates a new transport client for service with the specified authenticator.
func New(service string, auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		service:   service,
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      auth,
		userAgent: DefaultUserAgent,
		retry:     retry.HTTPDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuth swaps the authenticator, e.g. after a login exchange.
func (c *Client) SetAuth(auth Authenticator) {
	c.auth = auth
}

// Do sends body (if non-nil) as JSON and decodes a 2xx response into out (if
// non-nil). GET requests are retried on transient failures; other methods are
// attempted exactly once. The returned response has its body already consumed.
func (c *Client) Do(ctx context.Context, method, url string, body, out any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode %s request body: %w", c.service, err)
		}
	}

	var resp *http.Response
	attempt := func() error {
		var err error
		resp, err = c.once(ctx, method, url, payload, out)
		return err
	}

	if method != http.MethodGet {
		return resp, attempt()
	}
	err := retry.WithClassifiedOperation(ctx, c.retry, attempt, c.service+" "+method, IsRetryable)
	return resp, err
}

func (c *Client) once(ctx context.Context, method, url string, payload []byte, out any) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", c.service, err)
	}
	c.auth.Apply(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logrus.WithFields(logrus.Fields{
		"service": c.service,
		"method":  method,
		"url":     url,
	}).Debug("Sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", c.service, method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("failed to read %s response body: %w", c.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, &APIError{
			Service:    c.service,
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, &DecodeError{Service: c.service, URL: url, Err: err}
		}
	}
	return resp, nil
}
