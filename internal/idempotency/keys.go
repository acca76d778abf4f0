package idempotency

import (
	"fmt"
	"strings"
)

// Action identifies the kind of idempotent side effect being tracked.
// Each action gets its own key namespace, so liking and viewing the
// same resource from the same client are tracked independently.
type Action string

const (
	ActionView    Action = "view"
	ActionLike    Action = "like"
	ActionDislike Action = "dislike"
)

// Key builds the composite cache key {action, resource, client identity}.
// Segments are escaped so a client-controlled identifier containing ':'
// cannot collide with an adjacent key.
func Key(action Action, resourceID, clientIP string) string {
	return fmt.Sprintf("%s:%s:%s", action, sanitizeKeySegment(resourceID), sanitizeKeySegment(clientIP))
}

// sanitizeKeySegment escapes delimiter characters in key segments.
// Escape order matters: the escape character first, then the delimiter.
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
