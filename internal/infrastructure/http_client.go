package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yourusername/offline-player-go/internal/domain"
)

// DefaultUserAgent is sent with every request unless overridden
const DefaultUserAgent = "offline-player-go/1.0"

// HTTPClient issues context-bound requests and turns network failures into transport errors
type HTTPClient struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// HTTPClientOption configures an HTTPClient
type HTTPClientOption func(c *HTTPClient)

// WithTimeout bounds buffered requests end to end. Streamed bodies are only bounded
// until the response headers arrive, so long segment downloads are not cut off.
func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// NewHTTPClient creates an HTTP client configured by opts
func NewHTTPClient(opts ...HTTPClientOption) *HTTPClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	c := &HTTPClient{
		client:    &http.Client{Transport: transport},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		transport.ResponseHeaderTimeout = c.timeout
		transport.TLSHandshakeTimeout = c.timeout
	}
	return c
}

// HTTPResponse is a fully read response
type HTTPResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status
func (r *HTTPResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do sends a request and reads the whole body
func (c *HTTPClient) Do(ctx context.Context, method, url, contentType string, body []byte) (*HTTPResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: method + " " + url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: "read " + url, Err: err}
	}

	return &HTTPResponse{StatusCode: resp.StatusCode, Body: data}, nil
}

// Get fetches url and fails on non-2xx statuses
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &domain.TransportError{Op: "GET " + url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return resp.Body, nil
}

// Stream opens url for reading; the caller closes the body
func (c *HTTPClient) Stream(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, &domain.TransportError{Op: "GET " + url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, &domain.TransportError{Op: "GET " + url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return resp.Body, resp.ContentLength, nil
}
