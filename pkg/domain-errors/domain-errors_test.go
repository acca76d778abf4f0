package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// These are used at every trust boundary, so invariants like "wrapped
// domain errors preserve the original code" must hold.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "post not found"}
		s.Equal("post not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeRateLimited}
		s.Equal("rate_limited", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	inner := errors.New("db closed")
	err := Wrap(inner, CodeInternal, "store failure")
	s.ErrorIs(err, inner)
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	inner := New(CodeUnauthorized, "bad token")
	wrapped := Wrap(inner, CodeInternal, "verify failed")
	s.True(HasCode(wrapped, CodeUnauthorized))
	s.False(HasCode(wrapped, CodeInternal))
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.True(HasCode(New(CodeConflict, "duplicate slug"), CodeConflict))
	s.False(HasCode(errors.New("plain"), CodeConflict))
	s.False(HasCode(nil, CodeConflict))
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	a := New(CodeRateLimited, "too many likes")
	b := New(CodeRateLimited, "too many comments")
	s.ErrorIs(a, b)
}
