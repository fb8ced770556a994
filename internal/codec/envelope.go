package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrMalformed is returned by Parse when the frame isn't a JSON object.
var ErrMalformed = errors.New("malformed message")

// Envelope is the inbound wire shape: {"type","seq","timestamp","data"}.
// Data is kept raw until the dispatcher knows which typed struct to
// decode it into.
type Envelope struct {
	Type      string          `json:"type"`
	Seq       uint64          `json:"seq"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse decodes raw bytes into an Envelope. It fails only on invalid JSON
// or a non-object root; a missing/garbage "type" is left to GetType.
func Parse(raw []byte) (*Envelope, error) {
	var probe interface{}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, ErrMalformed
	}
	if _, ok := probe.(map[string]interface{}); !ok {
		return nil, ErrMalformed
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformed
	}
	return &env, nil
}

// GetType returns the envelope's recognized message type, or TypeUnknown
// if the type string is missing or not one the server understands.
func GetType(env *Envelope) MessageType {
	t, ok := inboundTypes[env.Type]
	if !ok {
		return TypeUnknown
	}
	return t
}

// GetSeq returns the envelope's client-supplied seq, defaulting to 0 —
// already the zero value, so this is a thin, self-documenting accessor.
func GetSeq(env *Envelope) uint64 {
	return env.Seq
}

// JoinRoomData is the required data shape for join_room.
type JoinRoomData struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password"`
}

// CursorMoveData is the required data shape for cursor_move. X/Y are
// pointers so a legitimate 0 coordinate isn't mistaken for an absent
// field by validator's "required" tag.
type CursorMoveData struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

// StrokeStartData is the required data shape for stroke_start.
type StrokeStartData struct {
	StrokeID string   `json:"strokeId" validate:"required"`
	Color    string   `json:"color" validate:"required"`
	Width    *float64 `json:"width" validate:"required"`
}

// StrokeAddData is the required data shape for stroke_add. Points adapts
// the teacher's BrushData bound (min=2,max=10000,dive) with the minimum
// lowered to 1, so a single-point add is accepted.
type StrokeAddData struct {
	StrokeID string  `json:"strokeId" validate:"required"`
	Points   []Point `json:"points" validate:"required,min=1,max=10000"`
}

// StrokeEndData is the required data shape for stroke_end.
type StrokeEndData struct {
	StrokeID string `json:"strokeId" validate:"required"`
}

// StrokeMoveData is the required data shape for stroke_move.
type StrokeMoveData struct {
	StrokeID string   `json:"strokeId" validate:"required"`
	DX       *float64 `json:"dx" validate:"required"`
	DY       *float64 `json:"dy" validate:"required"`
}

// DecodeJoinRoom decodes and validates data as JoinRoomData, additionally
// sanitizing UserName against HTML/script injection.
func DecodeJoinRoom(data json.RawMessage) (*JoinRoomData, ErrorCode) {
	var d JoinRoomData
	if err := decodeAndValidate(data, &d); err != "" {
		return nil, err
	}
	d.UserName = SanitizeText(d.UserName)
	if d.UserName == "" {
		return nil, ErrMissingField
	}
	return &d, ""
}

// DecodeCursorMove decodes and validates data as CursorMoveData.
func DecodeCursorMove(data json.RawMessage) (*CursorMoveData, ErrorCode) {
	var d CursorMoveData
	if err := decodeAndValidate(data, &d); err != "" {
		return nil, err
	}
	return &d, ""
}

// DecodeStrokeStart decodes and validates data as StrokeStartData,
// additionally verifying Color parses as a real color via go-colorful.
func DecodeStrokeStart(data json.RawMessage) (*StrokeStartData, ErrorCode) {
	var d StrokeStartData
	if err := decodeAndValidate(data, &d); err != "" {
		return nil, err
	}
	normalized, ok := NormalizeColor(d.Color)
	if !ok {
		return nil, ErrInvalidField
	}
	d.Color = normalized
	return &d, ""
}

// DecodeStrokeAdd decodes and validates data as StrokeAddData.
func DecodeStrokeAdd(data json.RawMessage) (*StrokeAddData, ErrorCode) {
	var d StrokeAddData
	if err := decodeAndValidate(data, &d); err != "" {
		return nil, err
	}
	return &d, ""
}

// DecodeStrokeEnd decodes and validates data as StrokeEndData.
func DecodeStrokeEnd(data json.RawMessage) (*StrokeEndData, ErrorCode) {
	var d StrokeEndData
	if err := decodeAndValidate(data, &d); err != "" {
		return nil, err
	}
	return &d, ""
}

// DecodeStrokeMove decodes and validates data as StrokeMoveData.
func DecodeStrokeMove(data json.RawMessage) (*StrokeMoveData, ErrorCode) {
	var d StrokeMoveData
	if err := decodeAndValidate(data, &d); err != "" {
		return nil, err
	}
	return &d, ""
}

// decodeAndValidate unmarshals data into target and runs struct tag
// validation, mapping failures to MISSING_FIELD (a required field was
// absent) or INVALID_FIELD (present but shaped wrong).
func decodeAndValidate(data json.RawMessage, target interface{}) ErrorCode {
	if len(data) == 0 {
		return ErrMissingField
	}
	if err := json.Unmarshal(data, target); err != nil {
		return ErrInvalidField
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" {
					return ErrMissingField
				}
			}
		}
		return ErrInvalidField
	}
	return ""
}

// FieldError renders a human-readable message for an ErrorCode produced
// by this package, for inclusion in an outbound error frame.
func FieldError(code ErrorCode) string {
	switch code {
	case ErrMissingField:
		return "a required field was missing"
	case ErrInvalidField:
		return "a field was present but invalid"
	case ErrRoomFull:
		return "room is at capacity"
	case ErrInvalidPassword:
		return "incorrect room password"
	case ErrMalformedMessage:
		return "envelope is not valid JSON"
	case ErrInvalidMessageType:
		return "unrecognized message type"
	case ErrAlreadyInRoom:
		return "connection has already joined a room"
	default:
		return fmt.Sprintf("request failed: %s", code)
	}
}
