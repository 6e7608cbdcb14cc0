package retry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retorded/chordring/internal/retry"
)

func TestDo_SucceedsWithoutRetryingOnFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(func() error {
		calls++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := retry.Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_ReturnsLastErrorAfterExhaustingAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("still down")
	err := retry.Do(func() error {
		calls++
		return sentinel
	}, 4, time.Millisecond)

	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 4, calls)
}
