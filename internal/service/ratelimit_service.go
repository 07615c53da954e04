package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WindowCounter increments the hit count of key in a fixed window and reports
// the time left until the window resets.
type WindowCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitDecision is the outcome of one Allow call.
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimitService applies a fixed window limit per client key.
type RateLimitService struct {
	counter WindowCounter
	window  time.Duration
	max     int
	logger  *zap.Logger
}

// NewRateLimitService constructs a limiter. A nil counter falls back to an
// in-process MemoryCounter.
func NewRateLimitService(counter WindowCounter, window time.Duration, max int, logger *zap.Logger) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if max <= 0 {
		max = 100
	}
	if counter == nil {
		counter = NewMemoryCounter(nil)
	}
	return &RateLimitService{counter: counter, window: window, max: max, logger: logger}
}

// Allow records a hit for key. Counter failures let the request through.
func (s *RateLimitService) Allow(ctx context.Context, key string) RateLimitDecision {
	count, ttl, err := s.counter.Increment(ctx, key, s.window)
	if err != nil {
		s.logger.Warn("rate limit counter unavailable", zap.String("key", key), zap.Error(err))
		return RateLimitDecision{Allowed: true, Limit: s.max, Remaining: s.max}
	}

	remaining := s.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	decision := RateLimitDecision{Allowed: int(count) <= s.max, Limit: s.max, Remaining: remaining}
	if !decision.Allowed {
		if ttl <= 0 {
			ttl = s.window
		}
		decision.RetryAfter = ttl
	}
	return decision
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter is a WindowCounter for single-instance deployments.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryCounter builds an empty counter. now defaults to time.Now.
func NewMemoryCounter(now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{windows: make(map[string]*memoryWindow), now: now}
}

// Increment implements WindowCounter.
func (m *MemoryCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		m.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// Sweep drops expired windows.
func (m *MemoryCounter) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryCounter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
