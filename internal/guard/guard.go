// Package guard composes the trust layer in front of the route
// handlers: bearer credential checks for admin routes, and rate
// limiting plus idempotency for public counter mutations. The guard
// itself is stateless; it only consults its dependencies and yields
// allow/deny decisions before any record store access occurs.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"inkwell/internal/guard/metrics"
	"inkwell/internal/idempotency"
	"inkwell/internal/ratelimit"
	"inkwell/pkg/requestcontext"
)

// TokenVerifier validates a serialized bearer credential and returns
// its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (string, error)
}

// Limiter bounds public mutation frequency per client identity.
type Limiter interface {
	Allow(ctx context.Context, identity string, category ratelimit.Category) *ratelimit.Result
}

// MarkerCache suppresses repeated idempotent actions within a window.
type MarkerCache interface {
	CheckAndMark(ctx context.Context, key string) bool
}

// Guard intercepts requests and routes them to the token service or to
// the rate limiter / idempotency cache pair.
type Guard struct {
	tokens  TokenVerifier
	limiter Limiter
	cache   MarkerCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(tokens TokenVerifier, limiter Limiter, cache MarkerCache, m *metrics.Metrics, logger *slog.Logger) *Guard {
	return &Guard{
		tokens:  tokens,
		limiter: limiter,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

type subjectKey struct{}

// Subject returns the verified admin identity stored by RequireAdmin.
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}

// RequireAdmin rejects requests without a valid bearer credential
// before the handler runs. The response carries no hint about which
// validation check failed.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tokenString, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			g.unauthorized(w, ctx, "missing bearer token")
			return
		}

		subject, err := g.tokens.Verify(ctx, tokenString)
		if err != nil {
			g.unauthorized(w, ctx, "invalid bearer token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, subjectKey{}, subject)))
	})
}

// PublicMutation gates a public counter route on the rate limiter. A
// denial answers 429 without touching the idempotency cache or the
// record store; rate limit headers are set on every response.
func (g *Guard) PublicMutation(category ratelimit.Category) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result := g.limiter.Allow(ctx, ip, category)
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				if g.metrics != nil {
					g.metrics.IncrementRateLimited(string(category))
				}
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// FirstOccurrence reports whether this client performs the action on
// the resource for the first time within the idempotency window. The
// caller applies the side effect only on true; either way it returns
// current resource state to the client.
func (g *Guard) FirstOccurrence(ctx context.Context, action idempotency.Action, resourceID string) bool {
	ip := requestcontext.ClientIP(ctx)
	first := g.cache.CheckAndMark(ctx, idempotency.Key(action, resourceID, ip))
	if !first {
		if g.metrics != nil {
			g.metrics.IncrementDuplicateSuppressed(string(action))
		}
		if g.logger != nil {
			g.logger.Info("duplicate action suppressed",
				"action", action,
				"resource", resourceID,
			)
		}
	}
	return first
}

// RecordAuthSuccess counts an issued token.
func (g *Guard) RecordAuthSuccess() {
	if g.metrics != nil {
		g.metrics.IncrementTokensIssued()
	}
}

// RecordAuthFailure counts a rejected credential at issuance time.
func (g *Guard) RecordAuthFailure() {
	if g.metrics != nil {
		g.metrics.IncrementAuthFailures()
	}
}

func (g *Guard) unauthorized(w http.ResponseWriter, ctx context.Context, reason string) {
	if g.metrics != nil {
		g.metrics.IncrementAuthFailures()
	}
	if g.logger != nil {
		g.logger.WarnContext(ctx, "unauthorized admin request", "reason", reason)
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}

func bearerToken(authHeader string) (string, bool) {
	const prefix = "Bearer "
	after, ok := strings.CutPrefix(authHeader, prefix)
	if !ok || after == "" {
		return "", false
	}
	return after, true
}

func addRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
