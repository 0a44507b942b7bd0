// Package fakeapi is a local stand-in for the session API, used by tests
// and by scripts/test-server for manual runs.
package fakeapi

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Server answers the create, announce and delete calls a worker makes.
// Safe for concurrent use.
type Server struct {
	createPrefix string
	deletePrefix string
	latency      time.Duration

	mu       sync.RWMutex
	rejected map[string]bool
	lastUA   string

	creates   atomic.Int64
	announces atomic.Int64
	deletes   atomic.Int64
	unauth    atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithRejectedTokens answers 401 to every call whose Authorization header
// is one of tokens.
func WithRejectedTokens(tokens ...string) Option {
	return func(s *Server) {
		for _, t := range tokens {
			s.rejected[t] = true
		}
	}
}

// WithLatency delays every response.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		s.latency = d
	}
}

// New creates a server for the given service ids.
func New(createServiceID, deleteServiceID string, opts ...Option) *Server {
	s := &Server{
		createPrefix: "/serviceconfigs/" + createServiceID + "/",
		deletePrefix: "/serviceconfigs/" + deleteServiceID + "/",
		rejected:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	s.mu.Lock()
	s.lastUA = r.UserAgent()
	rejected := s.rejected[r.Header.Get("Authorization")]
	s.mu.Unlock()

	if rejected {
		s.unauth.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, s.createPrefix):
		s.creates.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"created":true}`))
	case r.Method == http.MethodPost && r.URL.Path == "/handles":
		s.announces.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"handle"}`))
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, s.deletePrefix):
		s.deletes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/health":
		w.Write([]byte("healthy"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Counts holds call totals.
type Counts struct {
	Creates      int64
	Announces    int64
	Deletes      int64
	Unauthorized int64
}

// Counts returns how many calls of each kind succeeded, plus rejected calls.
func (s *Server) Counts() Counts {
	return Counts{
		Creates:      s.creates.Load(),
		Announces:    s.announces.Load(),
		Deletes:      s.deletes.Load(),
		Unauthorized: s.unauth.Load(),
	}
}

// LastUserAgent returns the User-Agent of the most recent call.
func (s *Server) LastUserAgent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUA
}
