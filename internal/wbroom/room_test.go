package wbroom

import (
	"sync"
	"testing"
)

type fakeSession struct {
	mu    sync.Mutex
	alive bool
	sent  [][]byte
}

func newFakeSession() *fakeSession { return &fakeSession{alive: true} }

func (f *fakeSession) TrySend(msg []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.alive {
		return false
	}
	f.sent = append(f.sent, msg)
	return true
}

func (f *fakeSession) kill() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = false
}

func (f *fakeSession) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestAddParticipantCapacity(t *testing.T) {
	r := NewRoom("room-1", "", 2, 100)
	u1 := &UserInfo{UserID: "u1", Session: newFakeSession()}
	u2 := &UserInfo{UserID: "u2", Session: newFakeSession()}
	u3 := &UserInfo{UserID: "u3", Session: newFakeSession()}

	if !r.AddParticipant(u1) || !r.AddParticipant(u2) {
		t.Fatalf("expected first two joins to succeed")
	}
	if r.AddParticipant(u3) {
		t.Fatalf("expected 3rd join to fail at capacity 2")
	}
	if r.MemberCount() != 2 {
		t.Fatalf("expected 2 members, got %d", r.MemberCount())
	}
}

func TestValidatePassword(t *testing.T) {
	open := NewRoom("room-1", "", 15, 1000)
	if !open.ValidatePassword("anything") {
		t.Fatalf("expected passwordless room to accept any password")
	}

	gated := NewRoom("room-2", "p", 15, 1000)
	if !gated.ValidatePassword("p") {
		t.Fatalf("expected correct password to validate")
	}
	if gated.ValidatePassword("") || gated.ValidatePassword("x") {
		t.Fatalf("expected wrong/empty password to fail")
	}
}

func TestRemoveParticipantIdempotent(t *testing.T) {
	r := NewRoom("room-1", "", 15, 1000)
	u := &UserInfo{UserID: "u1", Session: newFakeSession()}
	r.AddParticipant(u)
	r.RemoveParticipant("u1")
	r.RemoveParticipant("u1") // idempotent, must not panic
	if r.MemberCount() != 0 {
		t.Fatalf("expected 0 members after remove")
	}
	if _, ok := r.Member("u1"); ok {
		t.Fatalf("expected member to be gone")
	}
}

func TestUpdateCursorNoopForUnknownUser(t *testing.T) {
	r := NewRoom("room-1", "", 15, 1000)
	if r.UpdateCursor("ghost", 1, 1) {
		t.Fatalf("expected no-op for unknown user")
	}
}

func TestStrokeFIFOEviction(t *testing.T) {
	r := NewRoom("room-1", "", 15, 3)
	for i := 0; i < 5; i++ {
		r.AddStroke(&Stroke{StrokeID: string(rune('a' + i)), OwnerID: "u1"})
	}
	if r.StrokeCount() != 3 {
		t.Fatalf("expected 3 strokes after eviction, got %d", r.StrokeCount())
	}
	if _, ok := r.GetStroke("a"); ok {
		t.Fatalf("expected oldest stroke 'a' to have been evicted")
	}
	if _, ok := r.GetStroke("e"); !ok {
		t.Fatalf("expected newest stroke 'e' to remain")
	}
}

func TestGetStrokesSnapshotRespectsLimit(t *testing.T) {
	r := NewRoom("room-1", "", 15, 1000)
	for i := 0; i < 10; i++ {
		r.AddStroke(&Stroke{StrokeID: string(rune('a' + i)), OwnerID: "u1"})
	}
	snap := r.GetStrokesSnapshot(3)
	if len(snap) != 3 {
		t.Fatalf("expected 3 strokes, got %d", len(snap))
	}
	if snap[2].StrokeID != "j" {
		t.Fatalf("expected last stroke to be most recent ('j'), got %s", snap[2].StrokeID)
	}
}

func TestNextSequenceStrictlyIncreasing(t *testing.T) {
	r := NewRoom("room-1", "", 15, 1000)
	prev := uint64(0)
	for i := 0; i < 100; i++ {
		next := r.NextSequence()
		if next <= prev {
			t.Fatalf("expected strictly increasing sequence, got %d after %d", next, prev)
		}
		prev = next
	}
}

func TestBroadcastExcludesSenderAndSkipsDeadHandles(t *testing.T) {
	r := NewRoom("room-1", "", 15, 1000)
	alice := newFakeSession()
	bob := newFakeSession()
	carol := newFakeSession()

	r.AddParticipant(&UserInfo{UserID: "alice", Session: alice})
	r.AddParticipant(&UserInfo{UserID: "bob", Session: bob})
	r.AddParticipant(&UserInfo{UserID: "carol", Session: carol})

	carol.kill()

	r.Broadcast([]byte("hi"), "alice")

	if alice.count() != 0 {
		t.Fatalf("expected sender to be excluded from broadcast")
	}
	if bob.count() != 1 {
		t.Fatalf("expected bob to receive the broadcast, got %d sends", bob.count())
	}
	if carol.count() != 0 {
		t.Fatalf("expected dead handle to be silently skipped")
	}
}

func TestRemoveParticipantStopsFutureBroadcasts(t *testing.T) {
	r := NewRoom("room-1", "", 15, 1000)
	bob := newFakeSession()
	r.AddParticipant(&UserInfo{UserID: "bob", Session: bob})
	r.RemoveParticipant("bob")

	r.Broadcast([]byte("hi"), "")
	if bob.count() != 0 {
		t.Fatalf("expected removed participant to receive no further broadcasts")
	}
}
