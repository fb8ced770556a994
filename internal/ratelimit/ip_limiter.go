package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiterEntry tracks a rate limiter and its last use time, so Cleanup
// can evict IPs that haven't connected in a while instead of wiping the
// whole map.
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter rate-limits incoming connection attempts per client IP, ahead
// of the WebSocket upgrade. Adapted from the teacher's
// middleware/ip_limiter.go.
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiterEntry
	every    time.Duration
	burst    int
}

// NewIPLimiter builds a limiter allowing one connection every `every`,
// with the given burst, per IP.
func NewIPLimiter(every time.Duration, burst int) *IPLimiter {
	return &IPLimiter{
		limiters: make(map[string]*ipLimiterEntry),
		every:    every,
		burst:    burst,
	}
}

// Allow reports whether ip may open another connection right now.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.limiters[ip]
	if !exists {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// Cleanup evicts limiters unused for longer than staleAfter.
func (l *IPLimiter) Cleanup(staleAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > staleAfter {
			delete(l.limiters, ip)
		}
	}
}
