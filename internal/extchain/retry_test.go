package extchain

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPollForSender_ReturnsAsSoonAsFound(t *testing.T) {
	calls := 0
	extract := func(ctx context.Context, txSignature string) (string, bool, error) {
		calls++
		if calls == 2 {
			return "alice", true, nil
		}
		return "", false, nil
	}

	sender, err := PollForSender(context.Background(), extract, "sig-1")
	require.NoError(t, err)
	require.Equal(t, "alice", sender)
	require.Equal(t, 2, calls)
}

func TestPollForSender_ReturnsLastErrorAfterExhaustingAttempts(t *testing.T) {
	extract := func(ctx context.Context, txSignature string) (string, bool, error) {
		return "", false, fmt.Errorf("rpc down")
	}

	_, err := PollForSender(context.Background(), extract, "sig-1")
	require.ErrorContains(t, err, "rpc down")
}

func TestPollForSender_ReturnsNotReadyWhenNeverFoundAndNoError(t *testing.T) {
	extract := func(ctx context.Context, txSignature string) (string, bool, error) {
		return "", false, nil
	}

	_, err := PollForSender(context.Background(), extract, "sig-1")
	require.ErrorIs(t, err, ErrNotReady)
}

func TestPollForSender_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	extract := func(ctx context.Context, txSignature string) (string, bool, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return "", false, nil
	}

	_, err := PollForSender(ctx, extract, "sig-1")
	require.ErrorIs(t, err, context.Canceled)
}
