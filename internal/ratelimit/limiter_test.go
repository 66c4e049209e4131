package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_AllowsBudgetThenRejects(t *testing.T) {
	clock := newManualClock()
	l := NewLimiter(WithClock(clock.Now))

	for i := 1; i <= DefaultMaxRequests; i++ {
		dec := l.Allow("10.0.0.1")
		require.True(t, dec.Allowed, "request %d", i)
		assert.Equal(t, DefaultMaxRequests-i, dec.Remaining)
	}

	dec := l.Allow("10.0.0.1")
	assert.False(t, dec.Allowed)
	assert.Equal(t, DefaultMaxRequests+1, dec.Count)
	assert.Equal(t, 0, dec.Remaining)
	assert.Equal(t, clock.Now().Add(DefaultWindow), dec.ResetAt)
}

func TestLimiter_WindowResetsOnlyAfterFullWindow(t *testing.T) {
	clock := newManualClock()
	l := NewLimiter(WithClock(clock.Now), WithMaxRequests(2))

	assert.True(t, l.Allow("k").Allowed)
	assert.True(t, l.Allow("k").Allowed)
	assert.False(t, l.Allow("k").Allowed)

	clock.Advance(DefaultWindow)
	assert.False(t, l.Allow("k").Allowed, "exactly one window later still belongs to the same window")

	clock.Advance(time.Millisecond)
	dec := l.Allow("k")
	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, dec.Count)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := newManualClock()
	l := NewLimiter(WithClock(clock.Now), WithMaxRequests(1))

	assert.True(t, l.Allow("a").Allowed)
	assert.False(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("b").Allowed)
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_ConcurrentSameKeyAllowsExactlyBudget(t *testing.T) {
	l := NewLimiter(WithWindow(time.Hour))

	const callers = 500
	var allowed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if l.Allow("203.0.113.9").Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(DefaultMaxRequests), allowed.Load())
}

func TestLimiter_ConcurrentKeysDoNotInterfere(t *testing.T) {
	l := NewLimiter(WithWindow(time.Hour))

	keys := []string{"198.51.100.1", "198.51.100.2"}
	counts := make([]atomic.Int64, len(keys))

	var wg sync.WaitGroup
	for i, key := range keys {
		i, key := i, key
		for j := 0; j < 150; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if l.Allow(key).Allowed {
					counts[i].Add(1)
				}
			}()
		}
	}
	wg.Wait()

	for i := range keys {
		assert.Equal(t, int64(DefaultMaxRequests), counts[i].Load(), keys[i])
	}
}

func TestLimiter_SweepDropsIdleCounters(t *testing.T) {
	clock := newManualClock()
	l := NewLimiter(WithClock(clock.Now), WithIdleWindows(2), WithMaxRequests(1))

	l.Allow("idle")
	clock.Advance(15 * time.Second)
	l.Allow("active")
	clock.Advance(10 * time.Second)

	// idle's window started 25s ago, active's 10s ago; cutoff is 20s
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	// a swept key starts afresh
	assert.True(t, l.Allow("idle").Allowed)
	assert.False(t, l.Allow("active").Allowed)
}

func TestLimiter_SweepNeverLosesActiveCounts(t *testing.T) {
	clock := newManualClock()
	l := NewLimiter(WithClock(clock.Now), WithIdleWindows(1), WithMaxRequests(3))

	for i := 0; i < 3; i++ {
		l.Allow("k")
	}
	assert.Equal(t, 0, l.Sweep())
	assert.False(t, l.Allow("k").Allowed)
}

func TestLimiter_OptionsIgnoreNonPositive(t *testing.T) {
	l := NewLimiter(WithWindow(0), WithMaxRequests(-1), WithIdleWindows(0))
	assert.Equal(t, DefaultWindow, l.Window())
	assert.Equal(t, DefaultMaxRequests, l.Limit())
}

func TestLimiter_ConcurrentAllowAndSweepKeepExactTotal(t *testing.T) {
	clock := newManualClock()
	l := NewLimiter(WithClock(clock.Now), WithIdleWindows(1), WithMaxRequests(1<<20))

	for i := 0; i < 64; i++ {
		l.Allow(fmt.Sprintf("idle-%d", i))
	}
	clock.Advance(10 * DefaultWindow)

	const workers, perWorker = 16, 200
	stop := make(chan struct{})
	var sweeps sync.WaitGroup
	sweeps.Add(1)
	go func() {
		defer sweeps.Done()
		for {
			select {
			case <-stop:
				return
			default:
				l.Sweep()
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				l.Allow("k")
			}
		}()
	}
	wg.Wait()
	close(stop)
	sweeps.Wait()

	l.Sweep()
	assert.Equal(t, 1, l.Len(), "only the idle keys are swept")
	assert.Equal(t, workers*perWorker+1, l.Allow("k").Count)
}

func TestLimiter_AllowRetriesWhenCounterEvictedUnderIt(t *testing.T) {
	clock := newManualClock()
	l := NewLimiter(WithClock(clock.Now), WithIdleWindows(1))

	l.Allow("k")
	l.mu.RLock()
	c := l.counters["k"]
	l.mu.RUnlock()

	// park an Allow on the counter's lock, then let Sweep queue behind it too
	c.mu.Lock()
	allowed := make(chan Decision, 1)
	go func() { allowed <- l.Allow("k") }()
	time.Sleep(20 * time.Millisecond)

	clock.Advance(3 * DefaultWindow)
	swept := make(chan int, 1)
	go func() { swept <- l.Sweep() }()
	time.Sleep(20 * time.Millisecond)
	c.mu.Unlock()

	dec := <-allowed
	<-swept

	// whichever side won the lock, the increment must land in the live counter
	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, dec.Count)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, 2, l.Allow("k").Count)
}
