package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMapsStatus(t *testing.T) {
	cases := map[ErrorType]int{
		ErrInvalidAction:       http.StatusBadRequest,
		ErrInvalidAddress:      http.StatusBadRequest,
		ErrEncodingFailed:      http.StatusBadRequest,
		ErrSigningFailed:       http.StatusInternalServerError,
		ErrTransactionRejected: http.StatusBadGateway,
		ErrTransactionReverted: http.StatusUnprocessableEntity,
		ErrEventNotFound:       http.StatusUnprocessableEntity,
		ErrReadOnly:            http.StatusForbidden,
		ErrForbidden:           http.StatusForbidden,
		ErrQuotaExceeded:       http.StatusTooManyRequests,
	}
	for typ, status := range cases {
		assert.Equal(t, status, New(typ, "x", nil).HTTPStatus, typ)
	}
}

func TestRevertedCarriesReason(t *testing.T) {
	cause := errors.New("execution reverted")
	err := NewReverted("tx 0xabc reverted", "InvalidNonce", cause)

	assert.Equal(t, "InvalidNonce", err.RevertReason)
	assert.Contains(t, err.Error(), "revert: InvalidNonce")
	assert.ErrorIs(t, err, cause)
}

func TestIsFollowsWrappedChain(t *testing.T) {
	base := New(ErrEventNotFound, "no deploy event", nil)
	wrapped := fmt.Errorf("provision: %w", base)

	assert.True(t, Is(wrapped, ErrEventNotFound))
	assert.False(t, Is(wrapped, ErrSigningFailed))
	assert.False(t, Is(errors.New("plain"), ErrInternal))
	assert.Same(t, base, Wrap(wrapped))
}

func TestIsMatchesOutermostAppError(t *testing.T) {
	inner := New(ErrEncodingFailed, "typed data hash failed", nil)
	outer := New(ErrSigningFailed, "hash ExecuteTransaction", inner)

	assert.True(t, Is(outer, ErrSigningFailed))
	assert.False(t, Is(outer, ErrEncodingFailed))
	assert.ErrorIs(t, outer, inner)
}
