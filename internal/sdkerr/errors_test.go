package sdkerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Transport, "Pool.Get", cause)
	require.ErrorIs(t, err, cause)
	require.True(t, Is(err, Transport))
	require.Equal(t, Transport, KindOf(err))
}

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(Transport, "op", nil))
}

func TestNewHasNoCause(t *testing.T) {
	err := New(Validation, "Upload", "empty file name")
	require.True(t, Is(err, Validation))
	require.Nil(t, errors.Unwrap(err))
}

func TestKindOfUntaggedError(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
