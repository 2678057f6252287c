package osiris

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuntimeErrorErrorIncludesOpAndErrno(t *testing.T) {
	err := NewErrnoError("read_at", 110)
	require.Contains(t, err.Error(), "read_at")
	require.Contains(t, err.Error(), "errno 110")
}

func TestRuntimeErrorErrorWithoutOp(t *testing.T) {
	err := &RuntimeError{Msg: "ring closed"}
	require.Equal(t, "osiris: ring closed", err.Error())
}

func TestNewErrnoErrorMapsKnownCodes(t *testing.T) {
	require.Equal(t, ErrCodeTimeout, NewErrnoError("op", 110).Code)
	require.Equal(t, ErrCodeCancelled, NewErrnoError("op", 125).Code)
	require.Equal(t, ErrCodeInvalidArgument, NewErrnoError("op", 22).Code)
	require.Equal(t, ErrCodeUnsupportedOp, NewErrnoError("op", 95).Code)
	require.Equal(t, ErrCodeIO, NewErrnoError("op", 5).Code)
}

func TestWrapErrorPreservesRuntimeErrorCode(t *testing.T) {
	inner := NewErrnoError("recv", 110)
	wrapped := WrapError("handle_client", inner)
	require.Equal(t, ErrCodeTimeout, wrapped.Code)
	require.Equal(t, "handle_client", wrapped.Op)
	require.Equal(t, 110, wrapped.Errno)
}

func TestWrapErrorWrapsPlainError(t *testing.T) {
	wrapped := WrapError("connect", errors.New("boom"))
	require.Equal(t, ErrCodeIO, wrapped.Code)
	require.ErrorContains(t, wrapped, "boom")
}

func TestWrapErrorNilIsNil(t *testing.T) {
	require.Nil(t, WrapError("op", nil))
}

func TestRuntimeErrorIsMatchesByCode(t *testing.T) {
	a := NewRuntimeError("op", ErrCodeClosed, "closed")
	b := NewRuntimeError("other_op", ErrCodeClosed, "closed again")
	require.True(t, a.Is(b))
	require.True(t, errors.Is(a, b))
}

func TestRuntimeErrorIsRejectsDifferentCode(t *testing.T) {
	a := NewRuntimeError("op", ErrCodeClosed, "closed")
	b := NewRuntimeError("op", ErrCodeTimeout, "timed out")
	require.False(t, a.Is(b))
}

func TestIsCodeFindsWrappedRuntimeError(t *testing.T) {
	inner := NewRuntimeError("submit", ErrCodeBackendMissing, "no ring")
	wrapped := errors.New("outer: " + inner.Error())
	require.False(t, IsCode(wrapped, ErrCodeBackendMissing))
	require.True(t, IsCode(inner, ErrCodeBackendMissing))
	require.True(t, IsCode(WrapError("outer", inner), ErrCodeBackendMissing))
}

func TestRuntimeErrorUnwrapReturnsInner(t *testing.T) {
	cause := errors.New("underlying")
	wrapped := WrapError("op", cause)
	require.Equal(t, cause, errors.Unwrap(wrapped))
}
