// Package wbroom implements the authoritative per-room state container:
// members, cursors, and strokes, guarded by one lock per room plus an
// independent atomic sequence counter, following the locking discipline
// in spec §5. Grounded on the teacher's internal/room/room.go and
// internal/domain/room.go (member map keyed by user id, RWMutex-guarded
// broadcast with snapshot-then-iterate).
package wbroom

import "time"

// SessionHandle is a non-owning reference to a connection. A UserInfo
// never owns its session; if the underlying connection has died,
// TrySend must return false so broadcast can skip it transparently
// instead of erroring.
type SessionHandle interface {
	TrySend(msg []byte) bool
}

// UserInfo is one room member.
type UserInfo struct {
	UserID       string
	UserName     string
	Color        string
	Session      SessionHandle // weak/non-owning
	LastActivity time.Time
	active       bool
}

// IsGhost reports whether this user's last activity is older than
// timeoutMs.
func (u *UserInfo) IsGhost(timeoutMs int64) bool {
	return time.Since(u.LastActivity) > time.Duration(timeoutMs)*time.Millisecond
}

// IsActive reports whether the member is still considered connected.
func (u *UserInfo) IsActive() bool { return u.active }

// CursorState is the latest cursor position for one user in one room;
// at most one per userId, overwritten on every move, no history.
type CursorState struct {
	UserID     string
	X, Y       float64
	LastUpdate time.Time
	Visible    bool
}

// Point is a single stroke coordinate.
type Point struct {
	X, Y float64
}

// Stroke is one owner's ordered polyline.
//
// Invariants (spec §3):
//   - OwnerID is immutable after creation.
//   - Points may only grow while Complete==false.
//   - once Complete, only whole-stroke translation (Move) is allowed.
//   - len(Points) <= MaxPointsPerStroke.
//   - Seq is assigned once at creation from the room counter, never reused.
type Stroke struct {
	StrokeID string
	OwnerID  string
	Points   []Point
	Color    string
	Width    float64
	Complete bool
	Seq      uint64
}
