package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError(t *testing.T) {
	t.Run("message formatting", func(t *testing.T) {
		err := NewDomainError(ErrorTypeRateLimited, "slow down", nil)
		assert.Equal(t, "rate_limited: slow down", err.Error())

		wrapped := NewDomainError(ErrorTypeInternal, "boom", errors.New("root cause"))
		assert.Contains(t, wrapped.Error(), "root cause")
	})

	t.Run("unwrap exposes the cause", func(t *testing.T) {
		cause := errors.New("root cause")
		err := NewDomainError(ErrorTypeInternal, "boom", cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("errors.Is matches on type", func(t *testing.T) {
		err := NewDomainError(ErrorTypeBudgetExceeded, "cap reached for provider x", nil)
		assert.ErrorIs(t, err, ErrBudgetExceeded)
		assert.NotErrorIs(t, err, ErrRateLimited)
	})

	t.Run("details accumulate", func(t *testing.T) {
		err := NewDomainError(ErrorTypeNoProvider, "nothing matched", nil).
			WithDetail("capability", "creative").
			WithDetail("token_ceiling", 2048)

		require.Len(t, err.Details, 2)
		assert.Equal(t, "creative", err.Details["capability"])
		assert.Equal(t, 2048, err.Details["token_ceiling"])
	})
}

func TestTypeOf(t *testing.T) {
	t.Run("domain error", func(t *testing.T) {
		err := NewDomainError(ErrorTypeTimeout, "too slow", nil)
		assert.Equal(t, ErrorTypeTimeout, TypeOf(err))
	})

	t.Run("wrapped domain error", func(t *testing.T) {
		inner := NewDomainError(ErrorTypeAuthentication, "bad key", nil)
		assert.Equal(t, ErrorTypeAuthentication, TypeOf(NewDomainError(ErrorTypeAllProvidersFailed, "all failed", inner).Unwrap()))
	})

	t.Run("plain error is internal", func(t *testing.T) {
		assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("whatever")))
	})
}
