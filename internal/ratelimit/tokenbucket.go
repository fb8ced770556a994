// Package ratelimit provides the per-user token-bucket and per-IP
// connection limiters the server uses to bound message and connection
// throughput. The underlying refill arithmetic is golang.org/x/time/rate's,
// the same library the teacher uses for both its per-session and per-IP
// limiters.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket is a per-user rate limiter: rate tokens/sec, capped at burst.
// rate.Limiter is already safe for concurrent use, so TryConsume needs no
// lock of its own.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket builds a bucket that refills at ratePerSec tokens/sec,
// capped at burst.
func NewTokenBucket(ratePerSec float64, burst int) *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// TryConsume attempts to take n tokens, returning false without side
// effects if the bucket can't cover it right now.
func (b *TokenBucket) TryConsume(n int) bool {
	return b.limiter.AllowN(time.Now(), n)
}
