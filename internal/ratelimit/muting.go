package ratelimit

import (
	"sync"
	"time"
)

// MutingLimiter wraps a TokenBucket with escalation: after a run of
// consecutive rejected consumes it mutes the caller for muteDuration,
// during which TryConsume fails fast without touching the bucket.
type MutingLimiter struct {
	mu               sync.Mutex
	bucket           *TokenBucket
	violationLimit   int
	muteDuration     time.Duration
	violationCount   int
	mutedUntil       time.Time
}

// NewMutingLimiter builds a limiter that mutes after violationLimit
// consecutive rejections, for muteDuration.
func NewMutingLimiter(bucket *TokenBucket, violationLimit int, muteDuration time.Duration) *MutingLimiter {
	return &MutingLimiter{
		bucket:         bucket,
		violationLimit: violationLimit,
		muteDuration:   muteDuration,
	}
}

// TryConsume returns false without consulting the bucket while muted;
// otherwise delegates to the bucket and tracks consecutive rejections.
func (m *MutingLimiter) TryConsume(n int) bool {
	m.mu.Lock()
	if now := time.Now(); now.Before(m.mutedUntil) {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	if m.bucket.TryConsume(n) {
		m.mu.Lock()
		m.violationCount = 0
		m.mu.Unlock()
		return true
	}

	m.mu.Lock()
	m.violationCount++
	if m.violationCount >= m.violationLimit {
		m.mutedUntil = time.Now().Add(m.muteDuration)
		m.violationCount = 0
	}
	m.mu.Unlock()
	return false
}

// Muted reports whether the caller is currently muted.
func (m *MutingLimiter) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Now().Before(m.mutedUntil)
}
