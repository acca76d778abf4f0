package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/idempotency"
	"inkwell/internal/ratelimit"
	"inkwell/pkg/requestcontext"
)

type fakeVerifier struct {
	subject string
	err     error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (string, error) {
	return f.subject, f.err
}

type fakeLimiter struct {
	result      *ratelimit.Result
	gotIdentity string
	gotCategory ratelimit.Category
}

func (f *fakeLimiter) Allow(_ context.Context, identity string, category ratelimit.Category) *ratelimit.Result {
	f.gotIdentity = identity
	f.gotCategory = category
	return f.result
}

func nextRecorder(called *bool, capture *context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if capture != nil {
			*capture = r.Context()
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAdminMissingToken(t *testing.T) {
	g := New(&fakeVerifier{}, nil, nil, nil, nil)

	called := false
	handler := g.RequireAdmin(nextRecorder(&called, nil))

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic dXNlcg=="} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.False(t, called)
	}
}

func TestRequireAdminInvalidToken(t *testing.T) {
	g := New(&fakeVerifier{err: errors.New("invalid authentication")}, nil, nil, nil, nil)

	called := false
	handler := g.RequireAdmin(nextRecorder(&called, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.Header.Set("Authorization", "Bearer forged-token")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	assert.False(t, called)
}

func TestRequireAdminValidToken(t *testing.T) {
	g := New(&fakeVerifier{subject: "admin"}, nil, nil, nil, nil)

	called := false
	var gotCtx context.Context
	handler := g.RequireAdmin(nextRecorder(&called, &gotCtx))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/posts", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	handler.ServeHTTP(rec, req)

	require.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", Subject(gotCtx))
}

func TestPublicMutationAllowed(t *testing.T) {
	limiter := &fakeLimiter{result: &ratelimit.Result{
		Allowed:   true,
		Limit:     10,
		Remaining: 9,
		ResetAt:   time.Unix(1770000000, 0),
	}}
	g := New(nil, limiter, nil, nil, nil)

	called := false
	handler := g.PublicMutation(ratelimit.CategoryReaction)(nextRecorder(&called, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/comments/1/like", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "1.2.3.4", ""))
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, "1.2.3.4", limiter.gotIdentity)
	assert.Equal(t, ratelimit.CategoryReaction, limiter.gotCategory)
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "1770000000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestPublicMutationDenied(t *testing.T) {
	limiter := &fakeLimiter{result: &ratelimit.Result{
		Allowed:    false,
		Limit:      10,
		Remaining:  0,
		ResetAt:    time.Unix(1770000000, 0),
		RetryAfter: 42,
	}}
	g := New(nil, limiter, nil, nil, nil)

	called := false
	handler := g.PublicMutation(ratelimit.CategoryComment)(nextRecorder(&called, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/comments", nil)
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limited"}`, rec.Body.String())
}

func TestFirstOccurrence(t *testing.T) {
	cache := idempotency.New(time.Hour, 100)
	g := New(nil, nil, cache, nil, nil)

	ctx := requestcontext.WithClientMetadata(context.Background(), "1.2.3.4", "")

	assert.True(t, g.FirstOccurrence(ctx, idempotency.ActionLike, "42"))
	assert.False(t, g.FirstOccurrence(ctx, idempotency.ActionLike, "42"))

	// Different client, same action and resource: tracked independently.
	other := requestcontext.WithClientMetadata(context.Background(), "5.6.7.8", "")
	assert.True(t, g.FirstOccurrence(other, idempotency.ActionLike, "42"))
}
