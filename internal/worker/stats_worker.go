package worker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/northwind-service/internal/ratelimit"
)

const recordTimeout = 2 * time.Second

// StatsWorker buffers limiter decisions and writes them to a recorder off the request
// path. When the buffer is full new events are dropped.
type StatsWorker struct {
	events   chan ratelimit.Event
	recorder ratelimit.StatsRecorder
	logger   *zap.Logger
	dropped  atomic.Int64
}

// NewStatsWorker creates a worker with the given buffer size.
func NewStatsWorker(recorder ratelimit.StatsRecorder, buffer int, logger *zap.Logger) *StatsWorker {
	if buffer <= 0 {
		buffer = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsWorker{
		events:   make(chan ratelimit.Event, buffer),
		recorder: recorder,
		logger:   logger,
	}
}

// Offer implements ratelimit.Sink and never blocks.
func (w *StatsWorker) Offer(ev ratelimit.Event) bool {
	select {
	case w.events <- ev:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (w *StatsWorker) Dropped() int64 {
	return w.dropped.Load()
}

// Run drains events until ctx is cancelled, then flushes whatever is still buffered.
func (w *StatsWorker) Run(ctx context.Context) {
	for {
		select {
		case ev := <-w.events:
			w.record(ev)
		case <-ctx.Done():
			w.drain()
			return
		}
	}
}

func (w *StatsWorker) drain() {
	for {
		select {
		case ev := <-w.events:
			w.record(ev)
		default:
			if n := w.Dropped(); n > 0 {
				w.logger.Warn("rate limit stats dropped", zap.Int64("count", n))
			}
			return
		}
	}
}

func (w *StatsWorker) record(ev ratelimit.Event) {
	if w.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := w.recorder.Record(ctx, ev); err != nil {
		w.logger.Warn("record rate limit stats", zap.String("key", ev.Key), zap.Error(err))
	}
}
