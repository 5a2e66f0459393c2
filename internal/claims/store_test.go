package claims

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tidalswap/engine/internal/obs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(obs.NewNopLogger())
}

func TestCreate_StartsUnclaimedAndPickable(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")

	c, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusUnclaimed, c.Status)
	require.True(t, c.IsPickable())
	require.Equal(t, 0, c.Attempts())
}

func TestGet_UnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBeginAttempt_TransitionsToClaiming(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")

	c, err := s.BeginAttempt(id, false, 5, 2, 3, time.Hour)
	require.NoError(t, err)
	require.Equal(t, StatusClaiming, c.Status)

	// A claim currently Claiming is no longer pickable, so a concurrent pass
	// must be rejected rather than double-attempting it.
	_, err = s.BeginAttempt(id, false, 5, 2, 3, time.Hour)
	require.ErrorIs(t, err, ErrNotPickable)
}

func TestBeginAttempt_ExceedsBudgetMarksTooManyAttempts(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")

	// A threshold of 2 permits exactly 2 attempts; once the claim has
	// accumulated that many, the next pickup trips TooManyAttempts rather
	// than allowing a 3rd try (spec's "after 2 prior attempts" is inclusive
	// of the threshold itself).
	for i := 0; i < 2; i++ {
		c, err := s.BeginAttempt(id, false, 2, 1, 10, time.Hour)
		require.NoError(t, err)
		require.NoError(t, s.CompleteFailure(c.ID, uint64(i+1)))
	}

	_, err := s.BeginAttempt(id, false, 2, 1, 10, time.Hour)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	c, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusTooManyAttempts, c.Status)
	require.False(t, c.IsPickable())
}

func TestBeginAttempt_UsesRemovedThresholdWhenTokenRemoved(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")

	c, err := s.BeginAttempt(id, false, 5, 1, 10, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.CompleteFailure(c.ID, 1))

	// One attempt so far; the removed-token threshold of 1 is already
	// reached even though the live-token threshold of 5 is not.
	_, err = s.BeginAttempt(id, true, 5, 1, 10, time.Hour)
	require.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestBeginAttempt_BackoffBlocksRetryBeforeDurationElapses(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")

	c, err := s.BeginAttempt(id, false, 10, 10, 1, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.CompleteFailure(c.ID, 1))

	// Attempts() is now 1, at the backoff threshold of 1, and the last
	// attempt was just now, so the hour-long backoff should block a retry.
	_, err = s.BeginAttempt(id, false, 10, 10, 1, time.Hour)
	require.ErrorIs(t, err, ErrNotPickable)
}

func TestBeginAttempt_BackoffAllowsRetryAfterDurationElapses(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")

	for i := 0; i < 2; i++ {
		c, err := s.BeginAttempt(id, false, 10, 10, 1, time.Nanosecond)
		require.NoError(t, err)
		require.NoError(t, s.CompleteFailure(c.ID, uint64(i+1)))
	}

	time.Sleep(time.Millisecond)
	_, err := s.BeginAttempt(id, false, 10, 10, 1, time.Nanosecond)
	require.NoError(t, err)
}

func TestCompleteSuccess_RecordsTransferAndMarksClaimed(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")
	_, err := s.BeginAttempt(id, false, 5, 2, 3, time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.CompleteSuccess(id, 42, 99))

	c, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusClaimed, c.Status)
	require.Equal(t, []uint64{42}, c.AttemptRequestIDs)
	require.Equal(t, []uint64{99}, c.TransferIDs)
	require.False(t, c.IsPickable())
}

func TestCompleteFailure_RevertsToUnclaimedForRetry(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")
	_, err := s.BeginAttempt(id, false, 5, 2, 3, time.Hour)
	require.NoError(t, err)

	require.NoError(t, s.CompleteFailure(id, 7))

	c, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusUnclaimed, c.Status)
	require.True(t, c.IsPickable())
	require.Equal(t, 1, c.Attempts())
}

func TestOverride_TooManyAttemptsBecomesUnclaimedOverride(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(100), "addr-1")
	c, err := s.BeginAttempt(id, false, 1, 1, 10, time.Hour)
	require.NoError(t, err)
	require.NoError(t, s.CompleteFailure(c.ID, 1))
	_, err = s.BeginAttempt(id, false, 1, 1, 10, time.Hour)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	require.NoError(t, s.Override(id))

	got, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusUnclaimedOverride, got.Status)
	require.True(t, got.IsPickable())
}

func TestPickablePass_ReturnsReverseInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	a := s.Create(1, 2, math.NewInt(1), "addr-a")
	b := s.Create(1, 2, math.NewInt(2), "addr-b")
	c := s.Create(1, 2, math.NewInt(3), "addr-c")

	require.Equal(t, []uint64{c, b, a}, s.PickablePass())
}

func TestPickablePass_ExcludesNonPickableStatuses(t *testing.T) {
	s := newTestStore(t)
	id := s.Create(1, 2, math.NewInt(1), "addr-a")
	_, err := s.BeginAttempt(id, false, 5, 2, 3, time.Hour)
	require.NoError(t, err)

	require.Empty(t, s.PickablePass())
}

func TestForUser_FiltersByUserID(t *testing.T) {
	s := newTestStore(t)
	s.Create(1, 2, math.NewInt(1), "addr-a")
	s.Create(2, 2, math.NewInt(2), "addr-b")
	s.Create(1, 2, math.NewInt(3), "addr-c")

	require.Len(t, s.ForUser(1), 2)
	require.Len(t, s.ForUser(2), 1)
	require.Empty(t, s.ForUser(3))
}

func TestPendingCount_TracksPickableClaims(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, 0, s.PendingCount())
	id := s.Create(1, 2, math.NewInt(1), "addr-a")
	require.Equal(t, 1, s.PendingCount())

	_, err := s.BeginAttempt(id, false, 5, 2, 3, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 0, s.PendingCount())
}
