// Package registry implements the process-wide roomId -> Room map: lazy
// room creation, join/leave composition, the rotating color palette
// allocator, and grace-period deletion of empty rooms. Grounded on the
// teacher's internal/room/room_manager.go (lazy CreateRoom, "rejoin last
// room" handling) and main.go's cleanupRooms ticker, reworked from a
// periodic sweep into a per-room deletion timer so grace-period
// cancellation (spec §3) is exact rather than tick-granular.
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/arjunxplorer/sketch/internal/board"
	"github.com/arjunxplorer/sketch/internal/codec"
	"github.com/arjunxplorer/sketch/internal/config"
	"github.com/arjunxplorer/sketch/internal/idgen"
	"github.com/arjunxplorer/sketch/internal/presence"
	"github.com/arjunxplorer/sketch/internal/wbroom"
)

// Registry owns every live Room in the process. Join and Leave finish
// with the registry lock before touching room internals. scheduleDeletion
// and finalizeDeletion do not: they read the room's member count (taking
// the room's read lock) while holding the registry lock.
type Registry struct {
	mu              sync.Mutex
	rooms           map[string]*wbroom.Room
	pendingDeletion map[string]*time.Timer
	colorIndex      atomic.Uint64

	maxUsers    int
	maxStrokes  int
	snapshotLim int
	gracePeriod time.Duration
}

// New constructs an empty registry.
func New(maxUsers, maxStrokes, snapshotLimit int, gracePeriod time.Duration) *Registry {
	return &Registry{
		rooms:           make(map[string]*wbroom.Room),
		pendingDeletion: make(map[string]*time.Timer),
		maxUsers:        maxUsers,
		maxStrokes:      maxStrokes,
		snapshotLim:     snapshotLimit,
		gracePeriod:     gracePeriod,
	}
}

// NewDefault builds a registry using the spec's normative constants.
func NewDefault() *Registry {
	return New(config.MaxUsersPerRoom, config.MaxStrokesPerRoom, config.SnapshotStrokeLimit, config.RoomGracePeriod)
}

// nextColor returns the next palette entry, advancing a monotonic,
// process-wide index that cycles modulo len(palette) — colors are never
// reused-on-free, only rotated.
func (reg *Registry) nextColor() string {
	idx := reg.colorIndex.Add(1) - 1
	return config.ColorPalette[idx%uint64(len(config.ColorPalette))]
}

// GetOrCreate returns the existing room, or creates one with the given
// password if none exists yet. If roomId was pending grace-period
// deletion, that timer is cancelled. A password supplied to an existing
// room here is NOT a replacement — the room's password is fixed at
// creation time.
func (reg *Registry) GetOrCreate(roomID, password string) *wbroom.Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if timer, ok := reg.pendingDeletion[roomID]; ok {
		timer.Stop()
		delete(reg.pendingDeletion, roomID)
	}

	if r, ok := reg.rooms[roomID]; ok {
		return r
	}
	r := wbroom.NewRoom(roomID, password, reg.maxUsers, reg.maxStrokes)
	reg.rooms[roomID] = r
	return r
}

// Get returns the room roomId, if it currently exists.
func (reg *Registry) Get(roomID string) (*wbroom.Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	return r, ok
}

// RoomCount returns the number of currently live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// JoinResult is the outcome of a successful Join.
type JoinResult struct {
	Room   *wbroom.Room
	UserID string
	Color  string
}

// Join creates-or-finds roomID, validates password, checks capacity,
// assigns a fresh userId and rotating color, installs the member, sends
// welcome + room_state to the joiner, and broadcasts user_joined to
// existing peers.
func (reg *Registry) Join(roomID, userName, password string, session wbroom.SessionHandle) (JoinResult, codec.ErrorCode) {
	room := reg.GetOrCreate(roomID, password)

	if !room.ValidatePassword(password) {
		return JoinResult{}, codec.ErrInvalidPassword
	}

	existing := room.Members()

	userID := idgen.NewUserID()
	color := reg.nextColor()
	u := &wbroom.UserInfo{UserID: userID, UserName: userName, Color: color, Session: session}

	if !room.AddParticipant(u) {
		return JoinResult{}, codec.ErrRoomFull
	}

	users := make([]codec.UserSummary, len(existing))
	for i, m := range existing {
		users[i] = codec.UserSummary{UserID: m.UserID, Name: m.UserName, Color: m.Color}
	}
	welcome := codec.NewWelcome(room.NextSequence(), userID, color, users)
	if raw, err := codec.Serialize(welcome); err == nil {
		session.TrySend(raw)
	}

	snapshot := board.Snapshot(room, reg.snapshotLim)
	if raw, err := codec.Serialize(snapshot); err == nil {
		session.TrySend(raw)
	}

	joined := codec.NewUserJoined(room.NextSequence(), userID, userName, color)
	if raw, err := codec.Serialize(joined); err == nil {
		room.Broadcast(raw, userID)
	}

	return JoinResult{Room: room, UserID: userID, Color: color}, ""
}

// Leave removes userID from room, drops its presence rate-limit state,
// broadcasts user_left to remaining peers, and schedules grace-period
// deletion if the room is now empty.
func (reg *Registry) Leave(room *wbroom.Room, userID string, presenceSub *presence.Subsystem) {
	room.RemoveParticipant(userID)
	presenceSub.RemoveUser(room.RoomID, userID)

	left := codec.NewUserLeft(room.NextSequence(), userID)
	if raw, err := codec.Serialize(left); err == nil {
		room.Broadcast(raw, userID)
	}

	if room.MemberCount() == 0 {
		reg.scheduleDeletion(room.RoomID)
	}
}

// scheduleDeletion arms a grace-period timer for an empty room, unless
// one is already pending.
func (reg *Registry) scheduleDeletion(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, pending := reg.pendingDeletion[roomID]; pending {
		return
	}
	room, ok := reg.rooms[roomID]
	if !ok || room.MemberCount() != 0 {
		return
	}

	reg.pendingDeletion[roomID] = time.AfterFunc(reg.gracePeriod, func() {
		reg.finalizeDeletion(roomID)
	})
}

// finalizeDeletion removes roomID if it's still empty when its grace
// timer fires. A join that races in first will have already cancelled
// the timer via GetOrCreate, so this check is just a defensive
// double-take against that race.
func (reg *Registry) finalizeDeletion(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.pendingDeletion, roomID)
	if room, ok := reg.rooms[roomID]; ok && room.MemberCount() == 0 {
		delete(reg.rooms, roomID)
	}
}
