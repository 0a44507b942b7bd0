package pacer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestNextSpacesSlotsAtRate(t *testing.T) {
	clock := newClock()
	lb := NewLeakyBucket(10, 1, WithClock(clock.Now))

	start := clock.Now()
	first := lb.Next()
	assert.Equal(t, start, first, "first slot is immediate")

	second := lb.Next()
	third := lb.Next()
	assert.Equal(t, 100*time.Millisecond, second.Sub(start))
	assert.Equal(t, 200*time.Millisecond, third.Sub(start))
}

func TestNextImmediateWhenBehindSchedule(t *testing.T) {
	clock := newClock()
	lb := NewLeakyBucket(10, 1, WithClock(clock.Now))

	lb.Next()
	clock.Advance(time.Second)

	assert.Equal(t, clock.Now(), lb.Next())
}

func TestBurstCapsAccumulatedSlots(t *testing.T) {
	clock := newClock()
	lb := NewLeakyBucket(10, 3, WithClock(clock.Now))

	lb.Next()
	clock.Advance(10 * time.Second)

	now := clock.Now()
	for i := 0; i < 3; i++ {
		assert.Equal(t, now, lb.Next(), "slot %d within burst", i)
	}
	assert.True(t, lb.Next().After(now), "burst exhausted")
}

func TestSetRateDiscardsAccumulation(t *testing.T) {
	clock := newClock()
	lb := NewLeakyBucket(10, 5, WithClock(clock.Now))

	lb.Next()
	clock.Advance(time.Second)
	lb.SetRate(2)
	assert.Equal(t, 2.0, lb.Rate())

	next := lb.Next()
	assert.Equal(t, 500*time.Millisecond, next.Sub(clock.Now()))
}

func TestInvalidRateFallsBackToOne(t *testing.T) {
	lb := NewLeakyBucket(0, 0)
	assert.Equal(t, 1.0, lb.Rate())
}

func TestWaitReturnsFalseWhenDone(t *testing.T) {
	lb := NewLeakyBucket(0.5, 1)
	require.True(t, lb.Wait(nil), "first slot is immediate")

	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(done)
	}()

	start := time.Now()
	assert.False(t, lb.Wait(done))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitClosedBeforeCall(t *testing.T) {
	lb := NewLeakyBucket(100, 1)
	done := make(chan struct{})
	close(done)

	assert.False(t, lb.Wait(done))
	assert.Equal(t, int64(0), lb.Stats().Granted)
}

func TestConcurrentWaitersShareRate(t *testing.T) {
	lb := NewLeakyBucket(200, 1)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				lb.Wait(nil)
			}
		}()
	}
	wg.Wait()

	// 20 slots at 200/s: the last starts roughly 95ms after the first.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	stats := lb.Stats()
	assert.Equal(t, int64(20), stats.Granted)
	assert.Greater(t, stats.AverageWait, time.Duration(0))
}
