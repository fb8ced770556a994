// Package config holds the normative protocol constants from spec §6, the
// room grace period, and the fixed cursor-color palette. Process bootstrap
// settings (port, origin allowlist) are not here: cmd/server resolves the
// port and internal/transport reads the DOMAINS allowlist.
package config

import "time"

const (
	MaxUsersPerRoom      = 15
	MaxStrokesPerRoom    = 1000
	SnapshotStrokeLimit  = 500
	MaxMessageSize       = 65536
	MaxPointsPerStroke   = 10000
	HeartbeatIntervalMs  = 10000
	HeartbeatTimeoutMs   = 30000
	GhostCursorTimeoutMs = 3000

	RateLimitMuteDurationMs = 10000
	CursorUpdatesPerSecond  = 20.0
	RateLimitBurstSize      = 5

	RoomGracePeriod = 60 * time.Second
)

// ColorPalette is the fixed 15-entry cursor-color palette. Colors cycle
// by a monotonically advancing, process-wide index — never reused on
// free, per spec §3.
var ColorPalette = [15]string{
	"#FF5733", "#33FF57", "#3357FF", "#FF33F5", "#F5FF33",
	"#33FFF5", "#FF8C33", "#8C33FF", "#33FF8C", "#FF338C",
	"#338CFF", "#8CFF33", "#FF3333", "#33FF33", "#3333FF",
}
