// Package presence implements cursor broadcast, per-user rate gating with
// muting, and ghost-user detection. Grounded on the teacher's
// handlers/cursor.go (throttle-then-broadcast) and user/session_manager.go
// (per-user state keyed by userId), generalized from a fixed 33ms
// throttle to the spec's token-bucket-with-mute rate limiter.
package presence

import (
	"sync"
	"time"

	"github.com/arjunxplorer/sketch/internal/codec"
	"github.com/arjunxplorer/sketch/internal/config"
	"github.com/arjunxplorer/sketch/internal/ratelimit"
	"github.com/arjunxplorer/sketch/internal/wbroom"
)

// Subsystem owns the per-room, per-user cursor rate limiters. A Subsystem
// is shared across all rooms in the process; limiters are created lazily
// and torn down on RemoveUser.
type Subsystem struct {
	mu       sync.Mutex
	limiters map[string]map[string]*ratelimit.MutingLimiter
}

// NewSubsystem constructs an empty presence subsystem.
func NewSubsystem() *Subsystem {
	return &Subsystem{limiters: make(map[string]map[string]*ratelimit.MutingLimiter)}
}

func (p *Subsystem) limiterFor(roomID, uid string) *ratelimit.MutingLimiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	byUser, ok := p.limiters[roomID]
	if !ok {
		byUser = make(map[string]*ratelimit.MutingLimiter)
		p.limiters[roomID] = byUser
	}
	l, ok := byUser[uid]
	if !ok {
		bucket := ratelimit.NewTokenBucket(config.CursorUpdatesPerSecond, config.RateLimitBurstSize)
		l = ratelimit.NewMutingLimiter(bucket, 3, time.Duration(config.RateLimitMuteDurationMs)*time.Millisecond)
		byUser[uid] = l
	}
	return l
}

// CursorMove gates uid's move against its rate limiter; if allowed, it
// updates room state and broadcasts cursor_move to peers. If the room
// has no such member, NotInRoom is returned instead of broadcasting.
func (p *Subsystem) CursorMove(room *wbroom.Room, uid string, x, y float64) codec.ErrorCode {
	limiter := p.limiterFor(room.RoomID, uid)
	if !limiter.TryConsume(1) {
		return codec.ErrRateLimited
	}

	if !room.UpdateCursor(uid, x, y) {
		return codec.ErrNotInRoom
	}

	seq := room.NextSequence()
	msg := codec.NewCursorMove(seq, uid, x, y)
	raw, err := codec.Serialize(msg)
	if err != nil {
		return codec.ErrInternal
	}
	room.Broadcast(raw, uid)
	return ""
}

// Touch updates uid's LastActivity for a non-presence mutation.
func (p *Subsystem) Touch(room *wbroom.Room, uid string) {
	room.Touch(uid)
}

// GhostUsers returns members whose LastActivity predates timeoutMs.
func (p *Subsystem) GhostUsers(room *wbroom.Room, timeoutMs int64) []*wbroom.UserInfo {
	return room.GhostUsers(timeoutMs)
}

// RemoveUser drops uid's rate-limit bucket for roomID on disconnect.
func (p *Subsystem) RemoveUser(roomID, uid string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	byUser, ok := p.limiters[roomID]
	if !ok {
		return
	}
	delete(byUser, uid)
	if len(byUser) == 0 {
		delete(p.limiters, roomID)
	}
}
