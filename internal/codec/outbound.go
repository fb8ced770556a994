package codec

import (
	"encoding/json"
	"time"
)

// OutEnvelope is the shape every server->client message is constructed
// into before Serialize. Data holds one of the concrete payload structs
// below.
type OutEnvelope struct {
	Type      MessageType `json:"type"`
	Seq       uint64      `json:"seq"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func envelope(t MessageType, seq uint64, data interface{}) OutEnvelope {
	return OutEnvelope{Type: t, Seq: seq, Timestamp: nowMillis(), Data: data}
}

// Serialize marshals an outbound envelope to wire bytes.
func Serialize(env OutEnvelope) ([]byte, error) {
	return json.Marshal(env)
}

// --- payload shapes ---

type welcomeData struct {
	UserID string        `json:"userId"`
	Color  string        `json:"color"`
	Users  []UserSummary `json:"users"`
}

type userJoinedData struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

type userLeftData struct {
	UserID string `json:"userId"`
}

type cursorMoveOutData struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type strokeStartOutData struct {
	UserID   string  `json:"userId"`
	StrokeID string  `json:"strokeId"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
}

type strokeAddOutData struct {
	UserID   string  `json:"userId"`
	StrokeID string  `json:"strokeId"`
	Points   []Point `json:"points"`
}

type strokeEndOutData struct {
	UserID   string `json:"userId"`
	StrokeID string `json:"strokeId"`
}

type strokeMoveOutData struct {
	UserID   string  `json:"userId"`
	StrokeID string  `json:"strokeId"`
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
}

type roomStateData struct {
	Strokes     []StrokeSummary `json:"strokes"`
	SnapshotSeq uint64          `json:"snapshotSeq"`
}

type pongData struct{}

type errorData struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// --- constructors ---

func NewWelcome(seq uint64, userID, color string, users []UserSummary) OutEnvelope {
	if users == nil {
		users = []UserSummary{}
	}
	return envelope(TypeWelcome, seq, welcomeData{UserID: userID, Color: color, Users: users})
}

func NewUserJoined(seq uint64, userID, name, color string) OutEnvelope {
	return envelope(TypeUserJoined, seq, userJoinedData{UserID: userID, Name: name, Color: color})
}

func NewUserLeft(seq uint64, userID string) OutEnvelope {
	return envelope(TypeUserLeft, seq, userLeftData{UserID: userID})
}

func NewCursorMove(seq uint64, userID string, x, y float64) OutEnvelope {
	return envelope(TypeCursorMove, seq, cursorMoveOutData{UserID: userID, X: x, Y: y})
}

func NewStrokeStart(seq uint64, userID, strokeID, color string, width float64) OutEnvelope {
	return envelope(TypeStrokeStart, seq, strokeStartOutData{UserID: userID, StrokeID: strokeID, Color: color, Width: width})
}

func NewStrokeAdd(seq uint64, userID, strokeID string, points []Point) OutEnvelope {
	if points == nil {
		points = []Point{}
	}
	return envelope(TypeStrokeAdd, seq, strokeAddOutData{UserID: userID, StrokeID: strokeID, Points: points})
}

func NewStrokeEnd(seq uint64, userID, strokeID string) OutEnvelope {
	return envelope(TypeStrokeEnd, seq, strokeEndOutData{UserID: userID, StrokeID: strokeID})
}

func NewStrokeMove(seq uint64, userID, strokeID string, dx, dy float64) OutEnvelope {
	return envelope(TypeStrokeMove, seq, strokeMoveOutData{UserID: userID, StrokeID: strokeID, DX: dx, DY: dy})
}

func NewRoomState(seq uint64, strokes []StrokeSummary, snapshotSeq uint64) OutEnvelope {
	if strokes == nil {
		strokes = []StrokeSummary{}
	}
	return envelope(TypeRoomState, seq, roomStateData{Strokes: strokes, SnapshotSeq: snapshotSeq})
}

func NewPong(seq uint64) OutEnvelope {
	return envelope(TypePong, seq, pongData{})
}

func NewError(seq uint64, code ErrorCode, message string) OutEnvelope {
	return envelope(TypeError, seq, errorData{Code: code, Message: message})
}
