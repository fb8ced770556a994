// Package codec implements the wire protocol: parsing and validating
// inbound envelopes, and constructing every outbound message variant.
// Validation reuses the teacher's go-playground/validator struct-tag
// idiom (see object_schema.go's BrushData in the teacher repo) and its
// bluemonday sanitization of free-text string fields.
package codec

// MessageType is the tagged "type" field of the envelope.
type MessageType string

const (
	TypeJoinRoom    MessageType = "join_room"
	TypeCursorMove  MessageType = "cursor_move"
	TypeStrokeStart MessageType = "stroke_start"
	TypeStrokeAdd   MessageType = "stroke_add"
	TypeStrokeEnd   MessageType = "stroke_end"
	TypeStrokeMove  MessageType = "stroke_move"
	TypePing        MessageType = "ping"
	TypeUnknown     MessageType = "unknown"

	TypeWelcome    MessageType = "welcome"
	TypeUserJoined MessageType = "user_joined"
	TypeUserLeft   MessageType = "user_left"
	TypeRoomState  MessageType = "room_state"
	TypePong       MessageType = "pong"
	TypeError      MessageType = "error"
)

// inboundTypes is the whitelist GetType checks unrecognized strings against.
var inboundTypes = map[string]MessageType{
	string(TypeJoinRoom):    TypeJoinRoom,
	string(TypeCursorMove):  TypeCursorMove,
	string(TypeStrokeStart): TypeStrokeStart,
	string(TypeStrokeAdd):   TypeStrokeAdd,
	string(TypeStrokeEnd):   TypeStrokeEnd,
	string(TypeStrokeMove):  TypeStrokeMove,
	string(TypePing):        TypePing,
}

// ErrorCode enumerates the wire-level error codes from spec §6.
type ErrorCode string

const (
	ErrRoomNotFound        ErrorCode = "ROOM_NOT_FOUND"
	ErrRoomFull            ErrorCode = "ROOM_FULL"
	ErrInvalidPassword     ErrorCode = "INVALID_PASSWORD"
	ErrMalformedMessage    ErrorCode = "MALFORMED_MESSAGE"
	ErrInvalidMessageType  ErrorCode = "INVALID_MESSAGE_TYPE"
	ErrMissingField        ErrorCode = "MISSING_FIELD"
	ErrInvalidField        ErrorCode = "INVALID_FIELD"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
	ErrInvalidStroke       ErrorCode = "INVALID_STROKE"
	ErrStrokeTooLarge      ErrorCode = "STROKE_TOO_LARGE"
	ErrNotInRoom           ErrorCode = "NOT_IN_ROOM"
	ErrAlreadyInRoom       ErrorCode = "ALREADY_IN_ROOM"
	ErrInternal            ErrorCode = "INTERNAL_ERROR"
)

// Point is a single drawing coordinate. Serialized as [x, y], never as
// an object, per spec §4.1.
type Point [2]float64

func (p Point) X() float64 { return p[0] }
func (p Point) Y() float64 { return p[1] }

// UserSummary is the shape of one entry in welcome.users.
type UserSummary struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// StrokeSummary is the shape of one stroke inside a room_state payload.
type StrokeSummary struct {
	StrokeID string  `json:"strokeId"`
	UserID   string  `json:"userId"`
	Points   []Point `json:"points"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	Complete bool    `json:"complete"`
}
