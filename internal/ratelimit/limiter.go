package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultWindow      = 10 * time.Second
	DefaultMaxRequests = 100
	DefaultIdleWindows = 6
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per key in fixed windows. A window starts with the first
// request after the previous one has been open longer than the window length.
//
// The map lock is held only to find or insert a counter; the count itself is guarded
// by the counter's own mutex so distinct keys never wait on each other.
type Limiter struct {
	window      time.Duration
	max         int
	idleWindows int
	now         func() time.Time

	mu       sync.RWMutex
	counters map[string]*counter
}

type counter struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
	evicted     bool
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithWindow sets the window length.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithMaxRequests sets how many requests a key may make per window.
func WithMaxRequests(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.max = n
		}
	}
}

// WithIdleWindows sets how many windows a counter may sit untouched before Sweep drops it.
func WithIdleWindows(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.idleWindows = n
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter builds a limiter, 100 requests per 10s unless overridden.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		window:      DefaultWindow,
		max:         DefaultMaxRequests,
		idleWindows: DefaultIdleWindows,
		now:         time.Now,
		counters:    make(map[string]*counter),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Limit returns the per-window request budget.
func (l *Limiter) Limit() int { return l.max }

// Allow records one request for key and reports whether it is within budget.
func (l *Limiter) Allow(key string) Decision {
	for {
		c := l.lookup(key)

		c.mu.Lock()
		if c.evicted {
			// swept between lookup and lock; take the live counter instead
			c.mu.Unlock()
			continue
		}
		now := l.now()
		if now.Sub(c.windowStart) > l.window {
			c.windowStart = now
			c.count = 0
		}
		c.count++
		dec := Decision{
			Allowed:   c.count <= l.max,
			Count:     c.count,
			Limit:     l.max,
			Remaining: max(l.max-c.count, 0),
			ResetAt:   c.windowStart.Add(l.window),
		}
		c.mu.Unlock()
		return dec
	}
}

func (l *Limiter) lookup(key string) *counter {
	l.mu.RLock()
	c, ok := l.counters[key]
	l.mu.RUnlock()
	if ok {
		return c
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok = l.counters[key]; ok {
		return c
	}
	c = &counter{windowStart: l.now()}
	l.counters[key] = c
	return c
}

// Sweep drops counters whose window started more than idleWindows windows ago and
// returns how many were removed.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-time.Duration(l.idleWindows) * l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, c := range l.counters {
		c.mu.Lock()
		if c.windowStart.Before(cutoff) {
			c.evicted = true
			delete(l.counters, key)
			removed++
		}
		c.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.counters)
}

// StartJanitor sweeps idle counters every interval until ctx is done. The callback,
// when non-nil, receives the number of counters removed by each sweep.
func (l *Limiter) StartJanitor(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := l.Sweep()
				if onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()
}
