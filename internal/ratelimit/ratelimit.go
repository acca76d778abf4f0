// Package ratelimit bounds the frequency of sensitive public mutations
// per client identity. Each route category carries several fixed
// windows that are all consulted on every call; exceeding any one of
// them denies the request.
//
// Policy: denied attempts still consume a count in every window, so a
// flood of rejected retries cannot keep the effective cap from
// applying.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"inkwell/pkg/requestcontext"
)

// Category identifies a class of protected route.
type Category string

const (
	// CategoryComment covers comment creation.
	CategoryComment Category = "comment"
	// CategoryReaction covers like/dislike and view counting.
	CategoryReaction Category = "reaction"
)

// Window is a cap over a fixed time span.
type Window struct {
	Cap  int
	Span time.Duration
}

// Config holds the windows applied to each category.
type Config struct {
	Limits map[Category][]Window
}

// DefaultConfig returns the reference thresholds: comment creation
// 3/minute and 20/hour, reactions 10/minute and 100/hour.
func DefaultConfig() *Config {
	return &Config{
		Limits: map[Category][]Window{
			CategoryComment: {
				{Cap: 3, Span: time.Minute},
				{Cap: 20, Span: time.Hour},
			},
			CategoryReaction: {
				{Cap: 10, Span: time.Minute},
				{Cap: 100, Span: time.Hour},
			},
		},
	}
}

// Result reports a rate limit decision. Limit and Remaining reflect the
// most restrictive window consulted.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds; zero when allowed
}

// counter tracks one fixed window for one (identity, category) pair.
// The count resets when the window elapses.
type counter struct {
	count     int
	windowEnd time.Time
}

// Limiter is the in-memory rate limiter. A single mutex guards the
// counter map; increment-then-compare is atomic under it.
type Limiter struct {
	mu       sync.Mutex
	config   *Config
	counters map[string]*counter
	logger   *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the structured logger for denial audit logging.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// New creates a limiter with the given config, or the defaults if nil.
func New(cfg *Config, opts ...Option) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Limiter{
		config:   cfg,
		counters: make(map[string]*counter),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow increments every window for (identity, category) and reports
// whether all of them are still within their caps. Categories with no
// configured windows are denied outright.
func (l *Limiter) Allow(ctx context.Context, identity string, category Category) *Result {
	now := requestcontext.Now(ctx)

	windows, ok := l.config.Limits[category]
	if !ok || len(windows) == 0 {
		// Default-deny: an unconfigured category is a wiring bug, not an
		// open gate.
		if l.logger != nil {
			l.logger.Error("rate limit category not configured", "category", category)
		}
		return &Result{Allowed: false, ResetAt: now, RetryAfter: 60}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	result := &Result{Allowed: true}
	for _, w := range windows {
		key := counterKey(identity, category, w.Span)
		c, found := l.counters[key]
		if !found || !now.Before(c.windowEnd) {
			c = &counter{windowEnd: now.Add(w.Span)}
			l.counters[key] = c
		}
		c.count++

		remaining := w.Cap - c.count
		if remaining < 0 {
			remaining = 0
		}

		if result.ResetAt.IsZero() || remaining < result.Remaining ||
			(remaining == result.Remaining && c.windowEnd.Before(result.ResetAt)) {
			result.Limit = w.Cap
			result.Remaining = remaining
			result.ResetAt = c.windowEnd
		}

		if c.count > w.Cap {
			result.Allowed = false
			result.Limit = w.Cap
			result.Remaining = 0
			result.ResetAt = c.windowEnd
			result.RetryAfter = retryAfterSeconds(now, c.windowEnd)
		}
	}

	if !result.Allowed && l.logger != nil {
		l.logger.Warn("rate limit exceeded",
			"identity", identity,
			"category", category,
			"retry_after", result.RetryAfter,
		)
	}
	return result
}

// Reset clears all counters for an identity and category. Used by tests
// and operational tooling.
func (l *Limiter) Reset(identity string, category Category) {
	l.mu.Lock()
	defer l.mu.Unlock()

	windows := l.config.Limits[category]
	for _, w := range windows {
		delete(l.counters, counterKey(identity, category, w.Span))
	}
}

// RunSweeper periodically drops counters whose window has elapsed so
// one-off clients do not accumulate forever. Runs until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.sweep(time.Now())
		}
	}
}

func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, c := range l.counters {
		if !now.Before(c.windowEnd) {
			delete(l.counters, key)
		}
	}
}

func counterKey(identity string, category Category, span time.Duration) string {
	return fmt.Sprintf("%s:%s:%d", category, sanitizeKeySegment(identity), int(span.Seconds()))
}

// sanitizeKeySegment escapes delimiter characters so a client-supplied
// identity cannot collide with an adjacent counter key.
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}

func retryAfterSeconds(now, resetAt time.Time) int {
	seconds := int(resetAt.Sub(now).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}
