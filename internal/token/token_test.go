package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "inkwell/pkg/domain-errors"
	"inkwell/pkg/requestcontext"
)

const (
	testSecret   = "test-signing-key"
	testAdmin    = "test_admin"
	testPassword = "correct-password"
	testIssuer   = "test-issuer"
	testAudience = "test-audience"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	svc, err := New(testSecret, "HS256", testAdmin, string(hash), testIssuer, testAudience, ttl)
	require.NoError(t, err)
	return svc
}

func assertAuthFailure(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.EqualError(t, err, "invalid authentication")
}

func TestNewRejectsUnsupportedAlgorithm(t *testing.T) {
	_, err := New(testSecret, "RS256", testAdmin, "hash", testIssuer, testAudience, time.Minute)
	require.Error(t, err)

	_, err = New(testSecret, "none", testAdmin, "hash", testIssuer, testAudience, time.Minute)
	require.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	signed, err := svc.Issue(ctx, testAdmin, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	subject, err := svc.Verify(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, testAdmin, subject)
}

func TestIssueRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong username", "wrong_user", testPassword},
		{"wrong password", testAdmin, "wrong-password"},
		{"empty username", "", testPassword},
		{"empty password", testAdmin, ""},
		{"both empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Issue(ctx, tc.username, tc.password)
			assertAuthFailure(t, err)
		})
	}
}

func TestIssueSetsExpectedClaims(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithNow(context.Background(), now)

	signed, err := svc.Issue(ctx, testAdmin, testPassword)
	require.NoError(t, err)

	claims := new(jwt.RegisteredClaims)
	_, err = jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)

	assert.Equal(t, testAdmin, claims.Subject)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{testAudience}, claims.Audience)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IssuedAt.Time.Equal(now))
	assert.True(t, claims.NotBefore.Time.Equal(now))
	assert.True(t, claims.ExpiresAt.Time.Equal(now.Add(30*time.Minute)))
}

func TestIssueGeneratesFreshTokenID(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithNow(context.Background(), now)

	first, err := svc.Issue(ctx, testAdmin, testPassword)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, testAdmin, testPassword)
	require.NoError(t, err)

	// Same claims and clock, but the jti must differ.
	assert.NotEqual(t, first, second)
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	signed, err := svc.Issue(requestcontext.WithNow(context.Background(), issuedAt), testAdmin, testPassword)
	require.NoError(t, err)

	// Still valid one second before expiry.
	beforeExpiry := requestcontext.WithNow(context.Background(), issuedAt.Add(30*time.Minute-time.Second))
	_, err = svc.Verify(beforeExpiry, signed)
	require.NoError(t, err)

	// Rejected once the window has elapsed.
	afterExpiry := requestcontext.WithNow(context.Background(), issuedAt.Add(30*time.Minute+time.Second))
	_, err = svc.Verify(afterExpiry, signed)
	assertAuthFailure(t, err)
}

func TestVerifyTokenBeforeNotBefore(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	signed, err := svc.Issue(requestcontext.WithNow(context.Background(), issuedAt), testAdmin, testPassword)
	require.NoError(t, err)

	past := requestcontext.WithNow(context.Background(), issuedAt.Add(-time.Minute))
	_, err = svc.Verify(past, signed)
	assertAuthFailure(t, err)
}

func TestVerifyTamperedToken(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	signed, err := svc.Issue(ctx, testAdmin, testPassword)
	require.NoError(t, err)

	tampered := signed[:len(signed)-5] + "AAAAA"
	_, err = svc.Verify(ctx, tampered)
	assertAuthFailure(t, err)
}

func TestVerifyMalformedToken(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	ctx := context.Background()

	for _, input := range []string{"", "garbage", "this.is.not.a.valid.jwt"} {
		_, err := svc.Verify(ctx, input)
		assertAuthFailure(t, err)
	}
}

// signWithClaims builds a token outside the service to exercise
// rejection of forged or mis-scoped claims.
func signWithClaims(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestVerifyRejectsWrongClaims(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithNow(context.Background(), now)

	base := jwt.RegisteredClaims{
		Subject:   testAdmin,
		Issuer:    testIssuer,
		Audience:  []string{testAudience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Minute)),
	}

	t.Run("wrong issuer", func(t *testing.T) {
		claims := base
		claims.Issuer = "wrong-issuer"
		_, err := svc.Verify(ctx, signWithClaims(t, claims))
		assertAuthFailure(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := base
		claims.Audience = []string{"wrong-audience"}
		_, err := svc.Verify(ctx, signWithClaims(t, claims))
		assertAuthFailure(t, err)
	})

	t.Run("wrong subject", func(t *testing.T) {
		claims := base
		claims.Subject = "wrong_user"
		_, err := svc.Verify(ctx, signWithClaims(t, claims))
		assertAuthFailure(t, err)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := base
		claims.ExpiresAt = nil
		_, err := svc.Verify(ctx, signWithClaims(t, claims))
		assertAuthFailure(t, err)
	})
}

func TestVerifyRejectsAlgorithmConfusion(t *testing.T) {
	svc := newTestService(t, 30*time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithNow(context.Background(), now)

	claims := jwt.RegisteredClaims{
		Subject:   testAdmin,
		Issuer:    testIssuer,
		Audience:  []string{testAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Minute)),
	}

	t.Run("hs512 header rejected", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = svc.Verify(ctx, signed)
		assertAuthFailure(t, err)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Verify(ctx, signed)
		assertAuthFailure(t, err)
	})
}
