package util

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	require.Equal(t, time.Duration(0), Backoff(time.Second, time.Minute, 0))
	require.Equal(t, time.Second, Backoff(time.Second, time.Minute, 1))
	require.Equal(t, 2*time.Second, Backoff(time.Second, time.Minute, 2))
	require.Equal(t, 8*time.Second, Backoff(time.Second, time.Minute, 4))
	require.Equal(t, time.Minute, Backoff(time.Second, time.Minute, 20))
	require.Equal(t, time.Minute, Backoff(time.Second, time.Minute, 200))
}

func TestSafeCall(t *testing.T) {
	panicked, err := SafeCall(func() error { return nil })
	require.Nil(t, err)
	require.False(t, panicked)

	sentinel := errors.New("boom")
	panicked, err = SafeCall(func() error { return sentinel })
	require.Equal(t, sentinel, err)
	require.False(t, panicked)

	panicked, err = SafeCall(func() error { panic(sentinel) })
	require.True(t, panicked)
	require.True(t, errors.Is(err, sentinel))

	panicked, err = SafeCall(func() error { panic("not an error") })
	require.True(t, panicked)
	require.Contains(t, err.Error(), "not an error")
}

func TestFormatMultiError(t *testing.T) {
	msg := FormatMultiError([]error{errors.New("first"), errors.New("second")})
	require.Equal(t, "2 error(s) occurred:\n\t1. first\n\t2. second\n", msg)
}
