package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_StatusMethods(t *testing.T) {
	tests := []struct {
		status      int
		success     bool
		auth        bool
		clientError bool
		serverError bool
	}{
		{200, true, false, false, false},
		{204, true, false, false, false},
		{401, false, true, true, false},
		{403, false, true, true, false},
		{404, false, false, true, false},
		{429, false, false, true, false},
		{503, false, false, false, true},
		{0, false, false, false, false},
	}

	for _, tt := range tests {
		resp := NewResponse(tt.status, nil)
		assert.Equal(t, tt.success, resp.IsSuccess(), "IsSuccess(%d)", tt.status)
		assert.Equal(t, tt.auth, resp.IsAuthFailure(), "IsAuthFailure(%d)", tt.status)
		assert.Equal(t, tt.clientError, resp.IsClientError(), "IsClientError(%d)", tt.status)
		assert.Equal(t, tt.serverError, resp.IsServerError(), "IsServerError(%d)", tt.status)
	}
}

func TestResponse_Body(t *testing.T) {
	resp := NewResponse(200, []byte(`{"id":"abc","count":2}`))

	assert.Equal(t, `{"id":"abc","count":2}`, string(resp.GetBody()))

	var v struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	require.NoError(t, resp.GetBodyAsJSON(&v))
	assert.Equal(t, "abc", v.ID)
	assert.Equal(t, 2, v.Count)
}

func TestResponse_Detail(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"message", `{"message":"slow down"}`, "slow down"},
		{"nested error", `{"error":{"message":"bad token"}}`, "bad token"},
		{"error list", `{"errors":[{"message":"first"}]}`, "first"},
		{"code only", `{"code":"Throttled"}`, "Throttled"},
		{"not json", `Service Unavailable`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewResponse(400, []byte(tt.body)).Detail())
		})
	}
}

func TestResponse_Duration(t *testing.T) {
	resp := NewResponse(200, nil)
	resp.Timing.TotalTime = 150 * time.Millisecond
	assert.Equal(t, 150*time.Millisecond, resp.Duration())
}
