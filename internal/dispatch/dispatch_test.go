package dispatch

import (
	"testing"
	"time"

	"github.com/arjunxplorer/sketch/internal/codec"
	"github.com/arjunxplorer/sketch/internal/presence"
	"github.com/arjunxplorer/sketch/internal/registry"
)

type fakeSession struct{ sent [][]byte }

func (f *fakeSession) TrySend(msg []byte) bool {
	f.sent = append(f.sent, msg)
	return true
}

func (f *fakeSession) lastType(t *testing.T) codec.MessageType {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatalf("expected at least one sent message")
	}
	env, err := codec.Parse(f.sent[len(f.sent)-1])
	if err != nil {
		t.Fatalf("failed to parse last sent message: %v", err)
	}
	return codec.GetType(env)
}

func newDispatcher() *Dispatcher {
	reg := registry.New(2, 1000, 500, 50*time.Millisecond)
	pres := presence.NewSubsystem()
	return New(reg, pres)
}

func frame(typ string, data string) []byte {
	return []byte(`{"type":"` + typ + `","seq":1,"timestamp":0,"data":` + data + `}`)
}

func TestDispatchMalformedEnvelope(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}

	d.Dispatch(state, session, []byte(`not json`))

	if session.lastType(t) != codec.TypeError {
		t.Fatalf("expected error frame for malformed envelope")
	}
}

func TestDispatchUnknownTypeYieldsInvalidMessageType(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}
	d.joinRoomForTest(t, state, session, "room-1", "Alice", "")
	before := len(session.sent)

	d.Dispatch(state, session, frame("frobnicate", `{}`))

	if len(session.sent) != before+1 {
		t.Fatalf("expected exactly one reply for unknown type")
	}
	if session.lastType(t) != codec.TypeError {
		t.Fatalf("expected error frame for unknown type")
	}
}

func TestDispatchNonJoinWithoutMembershipIsSilentlyIgnored(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}

	d.Dispatch(state, session, frame("cursor_move", `{"x":1,"y":1}`))

	if len(session.sent) != 0 {
		t.Fatalf("expected no reply for a pre-join non-join message, got %d", len(session.sent))
	}
}

func TestDispatchJoinRoomSendsWelcomeAndRoomState(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}

	d.Dispatch(state, session, frame("join_room", `{"roomId":"room-1","userName":"Alice"}`))

	if !state.Joined() {
		t.Fatalf("expected state to be joined after successful join_room")
	}
	if len(session.sent) != 2 {
		t.Fatalf("expected welcome + room_state, got %d messages", len(session.sent))
	}
}

func TestDispatchSecondJoinRoomRejectedAlreadyInRoom(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}
	d.joinRoomForTest(t, state, session, "room-1", "Alice", "")
	before := len(session.sent)

	d.Dispatch(state, session, frame("join_room", `{"roomId":"room-2","userName":"Alice"}`))

	if len(session.sent) != before+1 {
		t.Fatalf("expected exactly one error reply")
	}
	env, _ := codec.Parse(session.sent[len(session.sent)-1])
	if codec.GetType(env) != codec.TypeError {
		t.Fatalf("expected error frame for duplicate join_room")
	}
}

func TestDispatchJoinRoomMissingFieldsYieldsError(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}

	d.Dispatch(state, session, frame("join_room", `{"roomId":"room-1"}`))

	if state.Joined() {
		t.Fatalf("expected join to fail validation, not succeed")
	}
	if session.lastType(t) != codec.TypeError {
		t.Fatalf("expected error frame for missing userName")
	}
}

func TestDispatchPingAnswersPongWithSameSeq(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}
	d.joinRoomForTest(t, state, session, "room-1", "Alice", "")

	d.Dispatch(state, session, []byte(`{"type":"ping","seq":42,"timestamp":0,"data":{}}`))

	env, _ := codec.Parse(session.sent[len(session.sent)-1])
	if codec.GetType(env) != codec.TypePong {
		t.Fatalf("expected pong reply")
	}
	if env.Seq != 42 {
		t.Fatalf("expected pong to carry the same seq, got %d", env.Seq)
	}
}

func TestDispatchInvalidStrokeFieldsAreSilentlyDropped(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}
	d.joinRoomForTest(t, state, session, "room-1", "Alice", "")
	before := len(session.sent)

	d.Dispatch(state, session, frame("stroke_start", `{"strokeId":"s1"}`))

	if len(session.sent) != before {
		t.Fatalf("expected no reply for invalid stroke_start fields, got %d new messages", len(session.sent)-before)
	}
}

func TestDispatchStrokeLifecycleDrawsForSecondMember(t *testing.T) {
	d := newDispatcher()
	aliceState := &ConnState{}
	alice := &fakeSession{}
	d.joinRoomForTest(t, aliceState, alice, "room-1", "Alice", "")

	bobState := &ConnState{}
	bob := &fakeSession{}
	d.joinRoomForTest(t, bobState, bob, "room-1", "Bob", "")

	aliceBefore := len(alice.sent)
	bobBefore := len(bob.sent)
	d.Dispatch(aliceState, alice, frame("stroke_start", `{"strokeId":"s1","color":"#000000","width":2}`))
	d.Dispatch(aliceState, alice, frame("stroke_add", `{"strokeId":"s1","points":[[1,1],[2,2]]}`))
	d.Dispatch(aliceState, alice, frame("stroke_end", `{"strokeId":"s1"}`))

	if len(alice.sent)-aliceBefore != 0 {
		t.Fatalf("expected no replies sent back to the drawing sender")
	}
	if len(bob.sent)-bobBefore != 3 {
		t.Fatalf("expected bob to receive stroke_start/add/end, got %d messages", len(bob.sent)-bobBefore)
	}
}

func TestLeaveReleasesMembership(t *testing.T) {
	d := newDispatcher()
	state := &ConnState{}
	session := &fakeSession{}
	d.joinRoomForTest(t, state, session, "room-1", "Alice", "")

	d.Leave(state)

	if state.Joined() {
		t.Fatalf("expected state to be cleared after Leave")
	}

	// Leave on an already-left connection must be a safe no-op.
	d.Leave(state)
}

// joinRoomForTest drives a join_room round trip and fails the test on
// any unexpected error reply.
func (d *Dispatcher) joinRoomForTest(t *testing.T, state *ConnState, session *fakeSession, roomID, userName, password string) {
	t.Helper()
	body := `{"roomId":"` + roomID + `","userName":"` + userName + `"`
	if password != "" {
		body += `,"password":"` + password + `"`
	}
	body += `}`
	d.Dispatch(state, session, frame("join_room", body))
	if !state.Joined() {
		session.lastType(t)
		t.Fatalf("expected join_room to succeed for %s/%s", roomID, userName)
	}
}
