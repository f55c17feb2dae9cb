package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Mutating requests allowed per client IP within one window.
	mutationLimit  = 60
	mutationWindow = time.Minute
)

// rateLimiter counts mutating requests per client IP over a fixed window.
// Reads are never limited; the server only consults it for writes.
type rateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	stopOnce sync.Once
	done     chan struct{}
}

// window is one client's counter, reset when the window elapses.
type window struct {
	startedAt time.Time
	count     int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// allow records one mutating request for the client and reports whether it
// stays under the per-window limit.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[clientIP]
	if !ok || now.Sub(w.startedAt) > mutationWindow {
		rl.windows[clientIP] = &window{startedAt: now, count: 1}
		return true
	}

	w.count++
	if w.count > mutationLimit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// sweepLoop drops windows whose clients went quiet, keeping the map from
// growing with one-off IPs.
func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, w := range rl.windows {
		if w.startedAt.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}
