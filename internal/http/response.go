package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wesleyorama2/volley/pkg/jsonpath"
)

// detailPaths are tried in order when summarising an error body.
var detailPaths = []string{
	"$.message",
	"$.error.message",
	"$.errors[0].message",
	"$.description",
	"$.error",
	"$.code",
}

// Response represents an HTTP response whose body has been fully read
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Timing     TimingInfo
	rawBody    []byte
}

// NewResponse builds a Response, mainly for transports that do not speak HTTP.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Headers:    make(http.Header),
		rawBody:    body,
	}
}

// GetBody returns the response body
func (r *Response) GetBody() []byte {
	return r.rawBody
}

// GetBodyAsString returns the response body as a string
func (r *Response) GetBodyAsString() string {
	return string(r.rawBody)
}

// GetBodyAsJSON unmarshals the response body into the provided interface
func (r *Response) GetBodyAsJSON(v interface{}) error {
	return json.Unmarshal(r.rawBody, v)
}

// GetHeader returns the value of the specified header
func (r *Response) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsAuthFailure reports a 401 or 403.
func (r *Response) IsAuthFailure() bool {
	return r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden
}

// IsClientError returns true if the response status code is in the 4xx range
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// Duration is the total time spent on the call.
func (r *Response) Duration() time.Duration {
	return r.Timing.TotalTime
}

// Detail returns a short human-readable reason taken from a JSON error
// body, or "" when none is present.
func (r *Response) Detail() string {
	detail, _ := jsonpath.FirstOf(string(r.rawBody), detailPaths...)
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return detail
}
