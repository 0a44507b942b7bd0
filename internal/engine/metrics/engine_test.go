package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RecordResponse(t *testing.T) {
	e := NewEngine()

	e.RecordResponse(OpCreate, 201, 10*time.Millisecond)
	e.RecordResponse(OpCreate, 401, 20*time.Millisecond)
	e.RecordResponse(OpCreate, 403, 30*time.Millisecond)
	e.RecordResponse(OpAnnounce, 200, 5*time.Millisecond)

	snap := e.GetSnapshot()
	create := snap.Operations[OpCreate]
	assert.Equal(t, int64(3), create.Latency.Count)
	assert.Equal(t, map[string]int64{"2xx": 1, "4xx": 2}, create.Statuses)
	assert.InDelta(t, float64(10*time.Millisecond), float64(create.Latency.Min), float64(100*time.Microsecond))
	assert.InDelta(t, float64(30*time.Millisecond), float64(create.Latency.Max), float64(100*time.Microsecond))

	assert.Equal(t, int64(1), snap.Operations[OpAnnounce].Latency.Count)
	assert.Equal(t, int64(0), snap.Operations[OpDelete].Latency.Count)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.responsesVec.WithLabelValues("create", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.responsesVec.WithLabelValues("announce", "2xx")))
}

func TestEngine_SnapshotIsACopy(t *testing.T) {
	e := NewEngine()
	e.RecordResponse(OpDelete, 204, time.Millisecond)

	snap := e.GetSnapshot()
	snap.Operations[OpDelete].Statuses["2xx"] = 99

	assert.Equal(t, int64(1), e.GetSnapshot().Operations[OpDelete].Statuses["2xx"])
}

func TestEngine_Counters(t *testing.T) {
	e := NewEngine()

	e.RecordFault(OpCreate)
	e.RecordFault(OpDelete)
	e.RecordRotation()
	e.SetPendingDeletes(4)
	e.SetActiveWorkers(3)

	snap := e.GetSnapshot()
	assert.Equal(t, int64(2), snap.Faults)
	assert.Equal(t, int64(1), snap.Rotations)
	assert.Equal(t, int64(4), snap.PendingDeletes)
	assert.Equal(t, 3, snap.ActiveWorkers)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.faultsVec.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.rotationsCount))
	assert.Equal(t, 4.0, testutil.ToFloat64(e.pendingGauge))
	assert.Equal(t, 3.0, testutil.ToFloat64(e.workersGauge))
}

func TestEngine_ConcurrentRecording(t *testing.T) {
	e := NewEngine()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e.RecordResponse(OpCreate, 200, time.Millisecond)
				e.RecordFault(OpAnnounce)
			}
		}()
	}
	wg.Wait()

	snap := e.GetSnapshot()
	assert.Equal(t, int64(1000), snap.Operations[OpCreate].Latency.Count)
	assert.Equal(t, int64(1000), snap.Faults)
}

func TestEngine_Handler(t *testing.T) {
	e := NewEngine()
	e.RecordResponse(OpCreate, 201, time.Millisecond)

	server := httptest.NewServer(e.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `volley_responses_total{class="2xx",operation="create"} 1`)
	assert.Contains(t, string(body), "volley_request_duration_seconds_bucket")
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(204))
	assert.Equal(t, "4xx", StatusClass(429))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, "other", StatusClass(0))
	assert.Equal(t, "other", StatusClass(600))
}
