package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type AppErrorsSuite struct {
	suite.Suite
}

func TestAppErrorsSuite(t *testing.T) {
	suite.Run(t, new(AppErrorsSuite))
}

func (s *AppErrorsSuite) TestErrorMessage() {
	s.Run("returns message when present", func() {
		s.Equal("issuer is not accredited", ErrIssuerNotAccredited.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Kind: KindConflict, Code: "already_voted"}
		s.Equal("already_voted", err.Error())
	})
}

func (s *AppErrorsSuite) TestIsMatchesByCode() {
	s.Run("matches through fmt wrapping", func() {
		err := fmt.Errorf("submit: %w", ErrAlreadyRevoked)
		s.True(errors.Is(err, ErrAlreadyRevoked))
		s.False(errors.Is(err, ErrNotRevocable))
	})

	s.Run("matches copies with different message", func() {
		err := &Error{Kind: KindConflict, Code: ErrAlreadyQueued.Code, Message: "queued at eta 10"}
		s.True(errors.Is(err, ErrAlreadyQueued))
	})

	s.Run("does not match plain errors", func() {
		s.False(ErrNotIssuer.Is(errors.New("not_issuer")))
	})
}

func (s *AppErrorsSuite) TestWrap() {
	s.Run("preserves domain kind and code", func() {
		wrapped := Wrap(ErrProposalNotActive, CodeInternal, "cast vote")
		s.True(errors.Is(wrapped, ErrProposalNotActive))
		s.Equal(KindTemporal, KindOf(wrapped))
		s.Equal(Code("proposal_not_active"), CodeOf(wrapped))
	})

	s.Run("classifies foreign errors as internal", func() {
		inner := errors.New("leveldb: closed")
		wrapped := Wrap(inner, CodeInternal, "read issuer")
		s.Equal(KindInternal, KindOf(wrapped))
		s.Equal(CodeInternal, CodeOf(wrapped))
		s.ErrorIs(wrapped, inner)
	})
}

func (s *AppErrorsSuite) TestKindOfPlainError() {
	s.Equal(KindInternal, KindOf(errors.New("boom")))
	s.Equal(CodeInternal, CodeOf(nil))
}
