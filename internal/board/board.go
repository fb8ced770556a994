// Package board implements the stroke drawing subsystem: start/add/end/move
// on the authoritative Stroke FSM (Drawing -> Complete -> (Moved)*), plus
// the room_state snapshot sent to new joiners. Grounded on the teacher's
// internal/handlers/object.go (add/update/delete against room state,
// broadcast-after-mutate shape), generalized from free-form drawing
// objects to the spec's single stroke primitive.
package board

import (
	"github.com/arjunxplorer/sketch/internal/codec"
	"github.com/arjunxplorer/sketch/internal/wbroom"
)

// StrokeStart creates a stroke owned by uid and broadcasts stroke_start
// to every other member. Always succeeds: any strokeId is accepted, even
// one colliding with an existing stroke owned by someone else — lookups by
// that id then resolve to the new stroke, so a subsequent add from the old
// owner will fail ownership check against the new one. The earlier stroke
// is not removed: it stays in the room's stroke history and snapshots.
func StrokeStart(room *wbroom.Room, uid, strokeID, color string, width float64) {
	room.Touch(uid)

	s := &wbroom.Stroke{
		StrokeID: strokeID,
		OwnerID:  uid,
		Color:    color,
		Width:    width,
		Seq:      room.NextSequence(),
	}
	room.AddStroke(s)

	broadcastSeq := room.NextSequence()
	msg := codec.NewStrokeStart(broadcastSeq, uid, strokeID, color, width)
	raw, err := codec.Serialize(msg)
	if err != nil {
		return
	}
	room.Broadcast(raw, uid)
}

// StrokeAdd appends points to strokeID, failing with InvalidStroke on an
// unknown id, wrong owner, or an already-complete stroke; failing with
// StrokeTooLarge if the combined length would exceed maxPoints.
func StrokeAdd(room *wbroom.Room, uid, strokeID string, points []wbroom.Point, maxPoints int) codec.ErrorCode {
	switch room.AppendStrokePoints(strokeID, uid, points, maxPoints) {
	case wbroom.MutationNotFound, wbroom.MutationWrongOwner, wbroom.MutationAlreadyComplete:
		return codec.ErrInvalidStroke
	case wbroom.MutationTooLarge:
		return codec.ErrStrokeTooLarge
	}

	room.Touch(uid)
	seq := room.NextSequence()
	msg := codec.NewStrokeAdd(seq, uid, strokeID, toCodecPoints(points))
	raw, err := codec.Serialize(msg)
	if err != nil {
		return codec.ErrInternal
	}
	room.Broadcast(raw, uid)
	return ""
}

// StrokeEnd marks strokeID complete, failing with InvalidStroke on an
// unknown id or wrong owner. A second call on an already-complete stroke
// is a permitted no-op: no error, no broadcast.
func StrokeEnd(room *wbroom.Room, uid, strokeID string) codec.ErrorCode {
	switch room.CompleteStroke(strokeID, uid) {
	case wbroom.MutationNotFound, wbroom.MutationWrongOwner:
		return codec.ErrInvalidStroke
	case wbroom.MutationAlreadyComplete:
		return ""
	}

	room.Touch(uid)
	seq := room.NextSequence()
	msg := codec.NewStrokeEnd(seq, uid, strokeID)
	raw, err := codec.Serialize(msg)
	if err != nil {
		return codec.ErrInternal
	}
	room.Broadcast(raw, uid)
	return ""
}

// StrokeMove translates every point of strokeID by (dx, dy), failing
// with InvalidStroke on an unknown id, wrong owner, or a stroke that
// isn't complete yet.
func StrokeMove(room *wbroom.Room, uid, strokeID string, dx, dy float64) codec.ErrorCode {
	switch room.TranslateStroke(strokeID, uid, dx, dy) {
	case wbroom.MutationNotFound, wbroom.MutationWrongOwner, wbroom.MutationNotComplete:
		return codec.ErrInvalidStroke
	}

	room.Touch(uid)
	seq := room.NextSequence()
	msg := codec.NewStrokeMove(seq, uid, strokeID, dx, dy)
	raw, err := codec.Serialize(msg)
	if err != nil {
		return codec.ErrInternal
	}
	room.Broadcast(raw, uid)
	return ""
}

// Snapshot builds the room_state message for a joiner: the most recent
// snapshotLimit strokes and the current sequence counter as snapshotSeq.
func Snapshot(room *wbroom.Room, snapshotLimit int) codec.OutEnvelope {
	strokes := room.GetStrokesSnapshot(snapshotLimit)
	summaries := make([]codec.StrokeSummary, len(strokes))
	for i, s := range strokes {
		summaries[i] = codec.StrokeSummary{
			StrokeID: s.StrokeID,
			UserID:   s.OwnerID,
			Points:   toCodecPoints(s.Points),
			Color:    s.Color,
			Width:    s.Width,
			Complete: s.Complete,
		}
	}
	return codec.NewRoomState(room.NextSequence(), summaries, room.CurrentSequence())
}

func toCodecPoints(points []wbroom.Point) []codec.Point {
	out := make([]codec.Point, len(points))
	for i, p := range points {
		out[i] = codec.Point{p.X, p.Y}
	}
	return out
}
