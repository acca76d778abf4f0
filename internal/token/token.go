// Package token issues and verifies the signed bearer credentials that
// gate administrative writes. Verification is stateless: there is no
// session store and no revocation list, expiry is the only termination
// mechanism.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dErrors "inkwell/pkg/domain-errors"
	"inkwell/pkg/requestcontext"
)

// Service signs and validates admin access tokens. There is exactly one
// privileged principal, configured out-of-band as a username plus a
// bcrypt password hash.
type Service struct {
	signingKey        []byte
	adminUsername     string
	adminPasswordHash string
	issuer            string
	audience          string
	tokenTTL          time.Duration
}

// New creates a token service. Only HS256 is supported; any other
// configured algorithm is rejected at startup rather than silently
// falling back.
func New(signingSecret, algorithm, adminUsername, adminPasswordHash, issuer, audience string, tokenTTL time.Duration) (*Service, error) {
	if algorithm != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return &Service{
		signingKey:        []byte(signingSecret),
		adminUsername:     adminUsername,
		adminPasswordHash: adminPasswordHash,
		issuer:            issuer,
		audience:          audience,
		tokenTTL:          tokenTTL,
	}, nil
}

// authFailure is the single opaque outcome for every credential or token
// problem. Callers never learn which check failed.
func authFailure() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid authentication")
}

// Issue authenticates the admin credentials and returns a signed token.
// The username check fails fast; bcrypt verification is the only
// latency-notable step and is intentionally slow.
func (s *Service) Issue(ctx context.Context, username, password string) (string, error) {
	if username == "" || username != s.adminUsername {
		return "", authFailure()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password)); err != nil {
		return "", authFailure()
	}

	now := requestcontext.Now(ctx)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// Verify validates signature, expiry, not-before, issuer, audience, and
// subject, and returns the subject on success. Every failure collapses
// to the same generic unauthorized error.
func (s *Service) Verify(ctx context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", authFailure()
	}

	claims := new(jwt.RegisteredClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }),
	)
	if err != nil || !parsed.Valid {
		return "", authFailure()
	}

	if claims.Subject != s.adminUsername {
		return "", authFailure()
	}
	return claims.Subject, nil
}

// TTL reports the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.tokenTTL
}
