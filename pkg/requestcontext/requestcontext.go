// Package requestcontext carries per-request values that cross layer
// boundaries: the request clock and client metadata extracted by
// transport middleware.
//
// Services read time through Now(ctx) instead of calling time.Now
// directly, so tests can pin the clock and exercise expiry boundaries
// deterministically.
package requestcontext

import (
	"context"
	"time"
)

type nowKey struct{}

type clientMetadataKey struct{}

// ClientMetadata holds the caller's network identity and user agent
// as extracted by the metadata middleware.
type ClientMetadata struct {
	IP        string
	UserAgent string
}

// WithNow pins the request clock to a fixed instant.
func WithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, now)
}

// Now returns the pinned request clock, or time.Now if none is set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithClientMetadata stores the caller's IP and User-Agent in the context.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientMetadataKey{}, ClientMetadata{IP: ip, UserAgent: userAgent})
}

// ClientIP returns the caller's network identity, or "unknown" if the
// metadata middleware did not run.
func ClientIP(ctx context.Context) string {
	if md, ok := ctx.Value(clientMetadataKey{}).(ClientMetadata); ok && md.IP != "" {
		return md.IP
	}
	return "unknown"
}

// UserAgent returns the caller's User-Agent header, possibly empty.
func UserAgent(ctx context.Context) string {
	if md, ok := ctx.Value(clientMetadataKey{}).(ClientMetadata); ok {
		return md.UserAgent
	}
	return ""
}
