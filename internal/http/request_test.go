package http

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Build(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		path        string
		query       map[string]string
		body        interface{}
		expectedURL string
		expectedCT  string
		expectBody  string
	}{
		{
			name:        "root base URL",
			baseURL:     "http://api.test",
			path:        "/handles",
			query:       map[string]string{"include": "relatedInfo"},
			expectedURL: "http://api.test/handles?include=relatedInfo",
		},
		{
			name:        "base URL with path prefix",
			baseURL:     "http://api.test/v2/",
			path:        "/sessions/1",
			expectedURL: "http://api.test/v2/sessions/1",
		},
		{
			name:        "escaped segment is preserved",
			baseURL:     "http://api.test",
			path:        "/sessiontemplates/global%28lfg%29/sessions/1",
			expectedURL: "http://api.test/sessiontemplates/global%28lfg%29/sessions/1",
		},
		{
			name:        "literal sub-delimiters are preserved",
			baseURL:     "http://api.test",
			path:        "/sessiontemplates/global(lfg)/sessions/1",
			expectedURL: "http://api.test/sessiontemplates/global(lfg)/sessions/1",
		},
		{
			name:        "json body",
			baseURL:     "http://api.test",
			path:        "/x",
			body:        map[string]string{"k": "v"},
			expectedURL: "http://api.test/x",
			expectedCT:  "application/json",
			expectBody:  `{"k":"v"}`,
		},
		{
			name:        "string body",
			baseURL:     "http://api.test",
			path:        "/x",
			body:        "raw",
			expectedURL: "http://api.test/x",
			expectBody:  "raw",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("POST", tt.path)
			for k, v := range tt.query {
				req.WithQueryParam(k, v)
			}
			if tt.body != nil {
				req.WithBody(tt.body)
			}

			httpReq, err := req.Build(context.Background(), tt.baseURL)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedURL, httpReq.URL.String())
			assert.Equal(t, tt.expectedCT, httpReq.Header.Get("Content-Type"))
			if tt.expectBody != "" {
				body, err := io.ReadAll(httpReq.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.expectBody, string(body))
			}
		})
	}
}

func TestRequest_BuildBindsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpReq, err := NewRequest("GET", "/").Build(ctx, "http://api.test")
	require.NoError(t, err)
	assert.Equal(t, ctx, httpReq.Context())
}

func TestRequest_BuildInvalidBaseURL(t *testing.T) {
	_, err := NewRequest("GET", "/").Build(context.Background(), "://nope")
	assert.Error(t, err)
}

func TestRequest_WithMethods(t *testing.T) {
	req := NewRequest("DELETE", "/members/me").
		WithHeader("Authorization", "t").
		WithQueryParam("a", "1").
		WithQueryParam("a", "2")

	assert.Equal(t, "t", req.Headers["Authorization"])
	assert.Equal(t, []string{"1", "2"}, req.QueryParams["a"])
	assert.Nil(t, req.Body)
}
