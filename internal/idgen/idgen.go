// Package idgen generates the ids the rest of the server treats as opaque
// strings: user ids, room-scoped short ids, and stroke ids.
package idgen

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// UUIDv4 returns a fresh RFC 4122 version-4 UUID string.
func UUIDv4() string {
	return uuid.New().String()
}

// ShortHex8 returns 8 hex characters of crypto-random entropy, used for
// ids that don't need full UUID width (e.g. display-facing room codes).
func ShortHex8() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is broken;
		// there's nothing this layer can do to recover, so fall back to
		// the front bytes of a fresh UUID rather than panic.
		u := uuid.New()
		return hex.EncodeToString(u[:4])
	}
	return hex.EncodeToString(b)
}

// NewUserID returns a fresh "user-" prefixed id.
func NewUserID() string { return "user-" + UUIDv4() }

// NewStrokeID returns a fresh "stroke-" prefixed id.
func NewStrokeID() string { return "stroke-" + UUIDv4() }

// NewRoomID returns a fresh "room-" prefixed short id, suitable for
// human-typed room codes.
func NewRoomID() string { return "room-" + ShortHex8() }
