package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vhttp "github.com/wesleyorama2/volley/internal/http"
)

func TestRunState(t *testing.T) {
	r := NewRunState()
	assert.True(t, r.Active())

	select {
	case <-r.Done():
		t.Fatal("done closed before stop")
	default:
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Stop()
		}()
	}
	wg.Wait()

	assert.False(t, r.Active())
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after stop")
	}
}

func TestCounters(t *testing.T) {
	var c Counters

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(4000), c.Total())
}

func TestEndpoints(t *testing.T) {
	e := Endpoints{
		CreateServiceID: "create-svc",
		DeleteServiceID: "delete-svc",
		TemplateName:    "global(lfg)",
	}

	assert.Equal(t, "/serviceconfigs/create-svc/sessiontemplates/global(lfg)/sessions/abc", e.CreatePath("abc"))
	assert.Equal(t, "/serviceconfigs/delete-svc/sessiontemplates/global(lfg)/sessions/abc/members/me", e.DeletePath("abc"))
	assert.Equal(t, "/serviceconfigs/create-svc/sessiontemplates/global(lfg)/sessions/a%2Fb", e.CreatePath("a/b"))
	assert.Equal(t, "/serviceconfigs/create-svc/sessiontemplates/global(lfg)/sessions/a%20b%3Fc%23d", e.CreatePath("a b?c#d"))
}

func TestEscapeSegment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"global(lfg)", "global(lfg)"},
		{"!$&'()*+,;=:@", "!$&'()*+,;=:@"},
		{"-._~AZaz09", "-._~AZaz09"},
		{"a/b", "a%2Fb"},
		{"50%", "50%25"},
		{"é", "%C3%A9"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeSegment(tt.in), tt.in)
	}
}

func TestEndpoints_TemplateNameIsLiteralOnTheWire(t *testing.T) {
	var mu sync.Mutex
	var uris []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		uris = append(uris, r.RequestURI)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	e := Endpoints{CreateServiceID: "c", DeleteServiceID: "d", TemplateName: "global(lfg)"}
	client := vhttp.NewClient(vhttp.WithBaseURL(server.URL))
	defer client.Close()

	_, err := client.Do(context.Background(), vhttp.NewRequest(http.MethodPut, e.CreatePath("id-1")))
	require.NoError(t, err)
	_, err = client.Do(context.Background(), vhttp.NewRequest(http.MethodDelete, e.DeletePath("id-1")))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/serviceconfigs/c/sessiontemplates/global(lfg)/sessions/id-1",
		"/serviceconfigs/d/sessiontemplates/global(lfg)/sessions/id-1/members/me",
	}, uris)
}

func TestDeleteScheduler_Drain(t *testing.T) {
	var observed []int64
	var mu sync.Mutex
	s := NewDeleteScheduler(func(n int64) {
		mu.Lock()
		observed = append(observed, n)
		mu.Unlock()
	})

	ran := make(chan struct{}, 2)
	s.Schedule(10*time.Millisecond, func() { ran <- struct{}{} })
	s.Schedule(20*time.Millisecond, func() { ran <- struct{}{} })
	assert.Equal(t, int64(2), s.Pending())

	assert.Equal(t, int64(0), s.Drain(time.Second))
	assert.Len(t, ran, 2)
	assert.Equal(t, int64(0), s.Pending())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2, 1, 0}, observed)
}

func TestDeleteScheduler_DrainTimesOut(t *testing.T) {
	s := NewDeleteScheduler(nil)
	s.Schedule(time.Hour, func() {})

	start := time.Now()
	assert.Equal(t, int64(1), s.Drain(20*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func TestDeleteScheduler_UsesDelay(t *testing.T) {
	s := NewDeleteScheduler(nil)
	var got time.Duration
	s.afterFunc = func(d time.Duration, f func()) {
		got = d
		f()
	}

	called := false
	s.Schedule(500*time.Millisecond, func() { called = true })
	assert.True(t, called)
	assert.Equal(t, 500*time.Millisecond, got)
	assert.Equal(t, int64(0), s.Pending())
}
