package wbroom

import (
	"sync"
	"sync/atomic"
	"time"
)

// Room is the authoritative state container for one collaboration space.
// All member/cursor/stroke operations take mu; NextSequence is atomic and
// lock-free so message construction never has to hold the room lock to
// get a seq, per spec §5.
type Room struct {
	RoomID   string
	password string
	hasPass  bool

	mu      sync.RWMutex
	members map[string]*UserInfo
	cursors map[string]*CursorState
	strokes []*Stroke          // insertion order, FIFO-evicted from the front
	byID    map[string]*Stroke // secondary index, kept in sync with strokes

	seqCounter atomic.Uint64

	maxUsers   int
	maxStrokes int
}

// NewRoom constructs an empty room. An empty password means "no
// password gate" per spec §4.2's validatePassword.
func NewRoom(roomID, password string, maxUsers, maxStrokes int) *Room {
	return &Room{
		RoomID:     roomID,
		password:   password,
		hasPass:    password != "",
		members:    make(map[string]*UserInfo),
		cursors:    make(map[string]*CursorState),
		byID:       make(map[string]*Stroke),
		maxUsers:   maxUsers,
		maxStrokes: maxStrokes,
	}
}

// ValidatePassword reports true if the room has no password, else
// whether p string-equals the room's password.
func (r *Room) ValidatePassword(p string) bool {
	if !r.hasPass {
		return true
	}
	return p == r.password
}

// AddParticipant inserts u and an origin cursor entry, failing if the
// room is already at capacity.
func (r *Room) AddParticipant(u *UserInfo) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.members) >= r.maxUsers {
		return false
	}
	u.active = true
	u.LastActivity = time.Now()
	r.members[u.UserID] = u
	r.cursors[u.UserID] = &CursorState{UserID: u.UserID, LastUpdate: time.Now(), Visible: true}
	return true
}

// RemoveParticipant removes a member and its cursor. Idempotent.
func (r *Room) RemoveParticipant(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.members[uid]; ok {
		u.active = false
	}
	delete(r.members, uid)
	delete(r.cursors, uid)
}

// UpdateCursor overwrites the cursor entry and touches the member's
// LastActivity. No-op if uid isn't a member.
func (r *Room) UpdateCursor(uid string, x, y float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.members[uid]
	if !ok {
		return false
	}
	now := time.Now()
	u.LastActivity = now
	r.cursors[uid] = &CursorState{UserID: uid, X: x, Y: y, LastUpdate: now, Visible: true}
	return true
}

// Touch updates a member's LastActivity without touching cursor state,
// for non-presence mutations (drawing actions).
func (r *Room) Touch(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.members[uid]; ok {
		u.LastActivity = time.Now()
	}
}

// Member returns the member uid, if present.
func (r *Room) Member(uid string) (*UserInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.members[uid]
	return u, ok
}

// Members returns a snapshot slice of current members, safe to iterate
// without holding the room lock.
func (r *Room) Members() []*UserInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*UserInfo, 0, len(r.members))
	for _, u := range r.members {
		out = append(out, u)
	}
	return out
}

// MemberCount returns the current member count.
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// GhostUsers returns members whose LastActivity is older than timeoutMs.
func (r *Room) GhostUsers(timeoutMs int64) []*UserInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*UserInfo
	for _, u := range r.members {
		if u.IsGhost(timeoutMs) {
			out = append(out, u)
		}
	}
	return out
}

// AddStroke appends s, evicting from the front while over maxStrokes
// (insertion-order FIFO eviction, per spec R2).
func (r *Room) AddStroke(s *Stroke) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.strokes = append(r.strokes, s)
	r.byID[s.StrokeID] = s

	for len(r.strokes) > r.maxStrokes {
		evicted := r.strokes[0]
		r.strokes = r.strokes[1:]
		if r.byID[evicted.StrokeID] == evicted {
			delete(r.byID, evicted.StrokeID)
		}
	}
}

// GetStroke looks a stroke up by id and returns a value copy, safe to
// inspect without holding the room lock.
func (r *Room) GetStroke(id string) (Stroke, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return Stroke{}, false
	}
	return copyStroke(s), true
}

// GetStrokesSnapshot returns value copies of the last `limit` strokes in
// insertion order. Copies (including Points) are taken under the room
// lock so the result is safe to read without racing a concurrent
// AppendStrokePoints/TranslateStroke on the same stroke.
func (r *Room) GetStrokesSnapshot(limit int) []Stroke {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.strokes)
	if limit <= 0 || limit > n {
		limit = n
	}
	start := n - limit
	out := make([]Stroke, limit)
	for i, s := range r.strokes[start:] {
		out[i] = copyStroke(s)
	}
	return out
}

func copyStroke(s *Stroke) Stroke {
	cp := *s
	cp.Points = make([]Point, len(s.Points))
	copy(cp.Points, s.Points)
	return cp
}

// MutationResult reports the outcome of a stroke mutation attempt.
type MutationResult int

const (
	MutationOK MutationResult = iota
	MutationNotFound
	MutationWrongOwner
	MutationAlreadyComplete
	MutationNotComplete
	MutationTooLarge
)

// AppendStrokePoints appends points to the stroke strokeID if uid owns it
// and it isn't yet complete, atomically checking the MaxPointsPerStroke
// bound against the combined length.
func (r *Room) AppendStrokePoints(strokeID, uid string, points []Point, maxPoints int) MutationResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[strokeID]
	if !ok {
		return MutationNotFound
	}
	if s.OwnerID != uid {
		return MutationWrongOwner
	}
	if s.Complete {
		return MutationAlreadyComplete
	}
	if len(s.Points)+len(points) > maxPoints {
		return MutationTooLarge
	}
	s.Points = append(s.Points, points...)
	return MutationOK
}

// CompleteStroke marks strokeID complete if uid owns it. Returns
// MutationAlreadyComplete (not an error — callers treat this as a no-op
// success) if it was already complete.
func (r *Room) CompleteStroke(strokeID, uid string) MutationResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[strokeID]
	if !ok {
		return MutationNotFound
	}
	if s.OwnerID != uid {
		return MutationWrongOwner
	}
	if s.Complete {
		return MutationAlreadyComplete
	}
	s.Complete = true
	return MutationOK
}

// TranslateStroke shifts every point of strokeID by (dx, dy) if uid owns
// it and it is already complete.
func (r *Room) TranslateStroke(strokeID, uid string, dx, dy float64) MutationResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[strokeID]
	if !ok {
		return MutationNotFound
	}
	if s.OwnerID != uid {
		return MutationWrongOwner
	}
	if !s.Complete {
		return MutationNotComplete
	}
	for i := range s.Points {
		s.Points[i].X += dx
		s.Points[i].Y += dy
	}
	return MutationOK
}

// StrokeCount returns the current stroke count.
func (r *Room) StrokeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strokes)
}

// NextSequence fetches-and-increments the room's sequence counter. It is
// intentionally outside mu so broadcast construction never has to take
// the room lock just to stamp a seq.
func (r *Room) NextSequence() uint64 {
	return r.seqCounter.Add(1)
}

// CurrentSequence reads the room's sequence counter without advancing
// it, for snapshot payloads that report "the current seqCounter" rather
// than consuming a fresh value.
func (r *Room) CurrentSequence() uint64 {
	return r.seqCounter.Load()
}

// Broadcast collects every member other than excludeUID under the room
// read lock, then releases the lock and calls TrySend on each collected
// session; the sends do not happen under the room lock. A dead handle
// (TrySend returns false) is skipped transparently;
// callers don't need to clean anything up here, since session teardown
// is driven by the session's own close path (RemoveParticipant).
func (r *Room) Broadcast(msg []byte, excludeUID string) {
	r.mu.RLock()
	recipients := make([]*UserInfo, 0, len(r.members))
	for uid, u := range r.members {
		if uid == excludeUID {
			continue
		}
		recipients = append(recipients, u)
	}
	r.mu.RUnlock()

	for _, u := range recipients {
		if u.Session == nil {
			continue
		}
		u.Session.TrySend(msg)
	}
}
