// Package http is the transport capability used by workers. It wraps
// net/http with base-URL resolution, fixed headers and per-call timing.
package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/pingcap/errors"
)

// Transport performs one remote call. A non-nil error means no response
// was obtained (connection failure, timeout, unreadable body); any
// response, whatever its status, is returned with a nil error.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Client represents an HTTP client with customizable options
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithBaseURL sets the base URL for the client
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the timeout for the client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to every request sent by the client
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHeaders adds several headers to every request sent by the client
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// Timeout returns the per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Do executes an HTTP request and returns the fully read response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.Build(ctx, c.baseURL)
	if err != nil {
		return nil, errors.Annotatef(err, "build %s %s", req.Method, req.Path)
	}

	// Client headers are defaults; request headers win.
	for key, value := range c.headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	timing := TimingInfo{StartTime: time.Now()}
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			timing.TimeToFirstByte = time.Since(timing.StartTime)
		},
	}
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), trace))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Annotatef(err, "read %s %s response", req.Method, req.Path)
	}
	timing.TotalTime = time.Since(timing.StartTime)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Timing:     timing,
		rawBody:    bodyBytes,
	}, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// TimingInfo holds timing of a single call
type TimingInfo struct {
	StartTime       time.Time
	TimeToFirstByte time.Duration
	TotalTime       time.Duration
}
