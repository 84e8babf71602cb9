// Package httpclient is the HTTP layer for book sources: one client per
// source carrying its base URL, default headers, timeout, cookie jar, and
// optional rate limit.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultTimeout applies when a source does not configure one.
const DefaultTimeout = 30 * time.Second

// HTTPError reports a failed request with the status or cause preserved.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request %s: %s", e.URL, e.Status)
}

// Unwrap returns the underlying transport error, if any.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Options configures a Client beyond its base URL.
type Options struct {
	Headers map[string]string
	Timeout time.Duration
	Rate    *TokenBucket
}

// Client issues requests for one book source. Safe for concurrent use.
type Client struct {
	base    string
	headers map[string]string
	rate    *TokenBucket
	http    *http.Client
}

// New creates a client rooted at baseURL. Cookies are kept in an
// in-memory jar for the lifetime of the client.
func New(baseURL string, opts Options) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		headers: opts.Headers,
		rate:    opts.Rate,
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

// Resolve turns a rule-produced URL into an absolute one: absolute URLs
// pass through, a leading slash appends to the base URL, and bare paths
// get a separating slash.
func (c *Client) Resolve(u string) string {
	switch {
	case strings.Contains(u, "://"):
		return u
	case strings.HasPrefix(u, "/"):
		return c.base + u
	default:
		return c.base + "/" + u
	}
}

// Get fetches u and returns the body as text.
func (c *Client) Get(ctx context.Context, u string) (string, error) {
	return c.do(ctx, http.MethodGet, u, "")
}

// Post sends body to u and returns the response as text. The content
// type, if any, comes from the configured headers.
func (c *Client) Post(ctx context.Context, u, body string) (string, error) {
	return c.do(ctx, http.MethodPost, u, body)
}

// Close releases the rate limiter, if any.
func (c *Client) Close() {
	if c.rate != nil {
		c.rate.Close()
	}
}

func (c *Client) do(ctx context.Context, method, u, body string) (string, error) {
	target := c.Resolve(u)

	if c.rate != nil {
		if err := c.rate.Acquire(ctx); err != nil {
			return "", err
		}
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return "", &HTTPError{URL: target, Err: err}
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &HTTPError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &HTTPError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &HTTPError{URL: target, Err: err}
	}
	return string(data), nil
}
