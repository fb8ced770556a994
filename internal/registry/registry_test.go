package registry

import (
	"testing"
	"time"

	"github.com/arjunxplorer/sketch/internal/codec"
	"github.com/arjunxplorer/sketch/internal/presence"
)

type fakeSession struct{ sent [][]byte }

func (f *fakeSession) TrySend(msg []byte) bool {
	f.sent = append(f.sent, msg)
	return true
}

func newTestRegistry() *Registry {
	return New(2, 1000, 500, 50*time.Millisecond)
}

func TestJoinCreatesRoomAndSendsWelcomeAndSnapshot(t *testing.T) {
	reg := newTestRegistry()
	alice := &fakeSession{}

	res, code := reg.Join("room-1", "Alice", "", alice)
	if code != "" {
		t.Fatalf("unexpected error joining empty room: %v", code)
	}
	if res.UserID == "" || res.Color == "" {
		t.Fatalf("expected a userId and color to be assigned")
	}
	if len(alice.sent) != 2 {
		t.Fatalf("expected joiner to receive welcome + room_state, got %d messages", len(alice.sent))
	}

	env, err := codec.Parse(alice.sent[0])
	if err != nil || codec.GetType(env) != codec.TypeWelcome {
		t.Fatalf("expected first message to be welcome, got %v err=%v", env, err)
	}
	env2, err := codec.Parse(alice.sent[1])
	if err != nil || codec.GetType(env2) != codec.TypeRoomState {
		t.Fatalf("expected second message to be room_state, got %v err=%v", env2, err)
	}
}

func TestSecondJoinerReceivesExistingMemberInWelcomeAndFirstGetsUserJoined(t *testing.T) {
	reg := newTestRegistry()
	alice := &fakeSession{}
	bob := &fakeSession{}

	if _, code := reg.Join("room-1", "Alice", "", alice); code != "" {
		t.Fatalf("alice join failed: %v", code)
	}
	if _, code := reg.Join("room-1", "Bob", "", bob); code != "" {
		t.Fatalf("bob join failed: %v", code)
	}

	if len(alice.sent) != 3 {
		t.Fatalf("expected alice to receive welcome+room_state+user_joined, got %d", len(alice.sent))
	}
	env, _ := codec.Parse(alice.sent[2])
	if codec.GetType(env) != codec.TypeUserJoined {
		t.Fatalf("expected alice's third message to be user_joined, got %v", codec.GetType(env))
	}
}

func TestJoinWrongPasswordRejected(t *testing.T) {
	reg := newTestRegistry()
	owner := &fakeSession{}
	if _, code := reg.Join("room-1", "Alice", "secret", owner); code != "" {
		t.Fatalf("unexpected error creating password room: %v", code)
	}

	intruder := &fakeSession{}
	_, code := reg.Join("room-1", "Eve", "wrong", intruder)
	if code != codec.ErrInvalidPassword {
		t.Fatalf("expected InvalidPassword, got %v", code)
	}
}

func TestJoinRoomFullRejected(t *testing.T) {
	reg := newTestRegistry()
	reg.Join("room-1", "Alice", "", &fakeSession{})
	reg.Join("room-1", "Bob", "", &fakeSession{})

	_, code := reg.Join("room-1", "Carl", "", &fakeSession{})
	if code != codec.ErrRoomFull {
		t.Fatalf("expected RoomFull (maxUsers=2), got %v", code)
	}
}

func TestLeaveBroadcastsUserLeftAndSchedulesDeletion(t *testing.T) {
	reg := newTestRegistry()
	alice := &fakeSession{}
	bob := &fakeSession{}
	resAlice, _ := reg.Join("room-1", "Alice", "", alice)
	resBob, _ := reg.Join("room-1", "Bob", "", bob)

	room, ok := reg.Get("room-1")
	if !ok {
		t.Fatalf("expected room to exist")
	}

	presenceSub := presence.NewSubsystem()
	beforeAliceCount := len(alice.sent)
	reg.Leave(room, resBob.UserID, presenceSub)

	if len(alice.sent) != beforeAliceCount+1 {
		t.Fatalf("expected alice to receive one user_left broadcast")
	}
	env, _ := codec.Parse(alice.sent[len(alice.sent)-1])
	if codec.GetType(env) != codec.TypeUserLeft {
		t.Fatalf("expected user_left, got %v", codec.GetType(env))
	}

	reg.Leave(room, "Alice-never-joined-bogus-id", presenceSub)
	// room still has alice, so it isn't empty yet and deletion isn't armed
	if _, pending := reg.pendingDeletion["room-1"]; pending {
		t.Fatalf("did not expect deletion scheduled while alice remains")
	}

	reg.Leave(room, resAlice.UserID, presenceSub)
	reg.mu.Lock()
	_, pending := reg.pendingDeletion["room-1"]
	reg.mu.Unlock()
	if !pending {
		t.Fatalf("expected deletion scheduled once the last member leaves")
	}
}

func TestEmptyRoomDeletedAfterGracePeriod(t *testing.T) {
	reg := newTestRegistry()
	alice := &fakeSession{}
	res, _ := reg.Join("room-1", "Alice", "", alice)
	room, _ := reg.Get("room-1")

	presenceSub := presence.NewSubsystem()
	reg.Leave(room, res.UserID, presenceSub)

	if reg.RoomCount() != 1 {
		t.Fatalf("expected room to still exist immediately after last member leaves")
	}

	time.Sleep(150 * time.Millisecond)
	if reg.RoomCount() != 0 {
		t.Fatalf("expected room to be deleted after grace period elapses")
	}
}

func TestRejoinBeforeGraceDeadlineCancelsDeletion(t *testing.T) {
	reg := newTestRegistry()
	alice := &fakeSession{}
	res, _ := reg.Join("room-1", "Alice", "", alice)
	room, _ := reg.Get("room-1")

	presenceSub := presence.NewSubsystem()
	reg.Leave(room, res.UserID, presenceSub)

	bob := &fakeSession{}
	if _, code := reg.Join("room-1", "Bob", "", bob); code != "" {
		t.Fatalf("unexpected error rejoining room before grace deadline: %v", code)
	}

	time.Sleep(150 * time.Millisecond)
	if reg.RoomCount() != 1 {
		t.Fatalf("expected room to survive past the original grace deadline once rejoined")
	}
}

func TestColorsRotateAcrossJoins(t *testing.T) {
	reg := New(20, 1000, 500, time.Second)
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		res, code := reg.Join("room-1", "User", "", &fakeSession{})
		if code != "" {
			t.Fatalf("unexpected join error: %v", code)
		}
		if seen[res.Color] {
			t.Fatalf("expected distinct colors across first 5 joins, got repeat %s", res.Color)
		}
		seen[res.Color] = true
	}
}
