package codec

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/microcosm-cc/bluemonday"
)

// sanitizer strips all HTML/script content from free-text fields before
// they're echoed back to other peers, matching the teacher's
// bluemonday.StrictPolicy() use in object_validator.go.
var sanitizer = bluemonday.StrictPolicy()

// SanitizeText removes HTML/script content and trims whitespace from a
// user-supplied string such as a display name.
func SanitizeText(s string) string {
	return strings.TrimSpace(sanitizer.Sanitize(s))
}

// NormalizeColor validates a client-supplied color string using
// go-colorful's hex parser and returns it re-rendered in canonical
// lowercase "#rrggbb" form, or ok=false if it isn't parseable.
func NormalizeColor(s string) (string, bool) {
	c, err := colorful.Hex(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return c.Hex(), true
}
