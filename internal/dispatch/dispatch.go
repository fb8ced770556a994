// Package dispatch implements the single entry point for inbound frames:
// parse, route by type to the owning subsystem, and translate failures
// into either an outbound error frame or a silent drop per spec §7's
// taxonomy. Grounded on the teacher's websocket/handler.go central
// switch-on-type dispatch loop, generalized from per-object-type CRUD
// routing to this spec's fixed six-message-plus-ping surface.
package dispatch

import (
	"log"

	"github.com/arjunxplorer/sketch/internal/board"
	"github.com/arjunxplorer/sketch/internal/codec"
	"github.com/arjunxplorer/sketch/internal/config"
	"github.com/arjunxplorer/sketch/internal/presence"
	"github.com/arjunxplorer/sketch/internal/registry"
	"github.com/arjunxplorer/sketch/internal/wbroom"
)

// ConnState is the per-connection membership the dispatcher reads and
// mutates across calls: nothing until join_room succeeds, then the
// joined room and assigned userId for the life of the session.
type ConnState struct {
	Room   *wbroom.Room
	UserID string
}

// Joined reports whether this connection has completed join_room.
func (s *ConnState) Joined() bool { return s.UserID != "" }

// Dispatcher routes decoded frames to the registry, board, and presence
// subsystems and owns translating their results into wire responses.
type Dispatcher struct {
	registry *registry.Registry
	presence *presence.Subsystem
}

// New builds a Dispatcher over the given registry and presence subsystem.
func New(reg *registry.Registry, pres *presence.Subsystem) *Dispatcher {
	return &Dispatcher{registry: reg, presence: pres}
}

// Dispatch decodes and routes one inbound frame for state's connection,
// sending any direct reply (error, pong, or registry.Join's
// welcome/room_state) via send. It never blocks on peer delivery beyond
// what send itself does.
func (d *Dispatcher) Dispatch(state *ConnState, send wbroom.SessionHandle, raw []byte) {
	env, err := codec.Parse(raw)
	if err != nil {
		d.sendError(send, 0, codec.ErrMalformedMessage)
		return
	}

	msgType := codec.GetType(env)

	if msgType != codec.TypeJoinRoom && !state.Joined() {
		return
	}

	switch msgType {
	case codec.TypeJoinRoom:
		d.handleJoinRoom(state, send, env)
	case codec.TypePing:
		d.handlePing(send, env)
	case codec.TypeCursorMove:
		d.handleCursorMove(state, env)
	case codec.TypeStrokeStart:
		d.handleStrokeStart(state, env)
	case codec.TypeStrokeAdd:
		d.handleStrokeAdd(state, env)
	case codec.TypeStrokeEnd:
		d.handleStrokeEnd(state, env)
	case codec.TypeStrokeMove:
		d.handleStrokeMove(state, env)
	default:
		d.sendError(send, env.Seq, codec.ErrInvalidMessageType)
	}
}

// Leave releases state's room membership, if any, via the registry. Safe
// to call on a connection that never joined.
func (d *Dispatcher) Leave(state *ConnState) {
	if !state.Joined() {
		return
	}
	d.registry.Leave(state.Room, state.UserID, d.presence)
	state.Room = nil
	state.UserID = ""
}

func (d *Dispatcher) handleJoinRoom(state *ConnState, send wbroom.SessionHandle, env *codec.Envelope) {
	if state.Joined() {
		d.sendError(send, env.Seq, codec.ErrAlreadyInRoom)
		return
	}

	data, code := codec.DecodeJoinRoom(env.Data)
	if code != "" {
		d.sendError(send, env.Seq, code)
		return
	}

	result, code := d.registry.Join(data.RoomID, data.UserName, data.Password, send)
	if code != "" {
		d.sendError(send, env.Seq, code)
		return
	}

	state.Room = result.Room
	state.UserID = result.UserID
}

func (d *Dispatcher) handlePing(send wbroom.SessionHandle, env *codec.Envelope) {
	msg := codec.NewPong(env.Seq)
	if raw, err := codec.Serialize(msg); err == nil {
		send.TrySend(raw)
	}
}

func (d *Dispatcher) handleCursorMove(state *ConnState, env *codec.Envelope) {
	data, code := codec.DecodeCursorMove(env.Data)
	if code != "" {
		return
	}
	d.presence.CursorMove(state.Room, state.UserID, *data.X, *data.Y)
}

func (d *Dispatcher) handleStrokeStart(state *ConnState, env *codec.Envelope) {
	data, code := codec.DecodeStrokeStart(env.Data)
	if code != "" {
		return
	}
	board.StrokeStart(state.Room, state.UserID, data.StrokeID, data.Color, *data.Width)
}

func (d *Dispatcher) handleStrokeAdd(state *ConnState, env *codec.Envelope) {
	data, code := codec.DecodeStrokeAdd(env.Data)
	if code != "" {
		return
	}
	points := make([]wbroom.Point, len(data.Points))
	for i, p := range data.Points {
		points[i] = wbroom.Point{X: p.X(), Y: p.Y()}
	}
	board.StrokeAdd(state.Room, state.UserID, data.StrokeID, points, config.MaxPointsPerStroke)
}

func (d *Dispatcher) handleStrokeEnd(state *ConnState, env *codec.Envelope) {
	data, code := codec.DecodeStrokeEnd(env.Data)
	if code != "" {
		return
	}
	board.StrokeEnd(state.Room, state.UserID, data.StrokeID)
}

func (d *Dispatcher) handleStrokeMove(state *ConnState, env *codec.Envelope) {
	data, code := codec.DecodeStrokeMove(env.Data)
	if code != "" {
		return
	}
	board.StrokeMove(state.Room, state.UserID, data.StrokeID, *data.DX, *data.DY)
}

func (d *Dispatcher) sendError(send wbroom.SessionHandle, seq uint64, code codec.ErrorCode) {
	msg := codec.NewError(seq, code, codec.FieldError(code))
	raw, err := codec.Serialize(msg)
	if err != nil {
		log.Printf("dispatch: failed to serialize error frame: %v", err)
		return
	}
	send.TrySend(raw)
}
