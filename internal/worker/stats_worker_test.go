package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/northwind-service/internal/ratelimit"
)

type memoryRecorder struct {
	mu     sync.Mutex
	events []ratelimit.Event
	err    error
}

func (m *memoryRecorder) Record(_ context.Context, ev ratelimit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *memoryRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestStatsWorker_OfferDropsWhenFull(t *testing.T) {
	w := NewStatsWorker(&memoryRecorder{}, 2, nil)

	assert.True(t, w.Offer(ratelimit.Event{Key: "a"}))
	assert.True(t, w.Offer(ratelimit.Event{Key: "b"}))
	assert.False(t, w.Offer(ratelimit.Event{Key: "c"}))
	assert.Equal(t, int64(1), w.Dropped())
}

func TestStatsWorker_RunRecordsAndDrainsOnCancel(t *testing.T) {
	rec := &memoryRecorder{}
	w := NewStatsWorker(rec, 16, nil)
	for i := 0; i < 5; i++ {
		require.True(t, w.Offer(ratelimit.Event{Key: "k", Allowed: i%2 == 0}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	require.Eventually(t, func() bool { return rec.count() == 5 }, time.Second, 5*time.Millisecond)

	w.Offer(ratelimit.Event{Key: "late"})
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 6, rec.count())
}

func TestStatsWorker_LogsRecorderErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &memoryRecorder{err: errors.New("redis down")}
	w := NewStatsWorker(rec, 4, zap.New(core))
	w.Offer(ratelimit.Event{Key: "10.0.0.1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	entries := logs.FilterMessage("record rate limit stats").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "10.0.0.1", entries[0].ContextMap()["key"])
}

func TestStatsWorker_WritesToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	w := NewStatsWorker(ratelimit.NewRedisStats(rdb, "", 0), 8, nil)
	w.Offer(ratelimit.Event{Key: "1.2.3.4", Allowed: true, Method: "GET", Route: "/api/products"})
	w.Offer(ratelimit.Event{Key: "1.2.3.4", Allowed: false, Method: "GET", Route: "/api/products"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)

	assert.Equal(t, "1", mr.HGet("ratelimit:stats:total", "allowed"))
	assert.Equal(t, "1", mr.HGet("ratelimit:stats:total", "denied"))
}
