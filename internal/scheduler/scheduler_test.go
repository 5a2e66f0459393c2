package scheduler

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tidalswap/engine/internal/claims"
	"github.com/tidalswap/engine/internal/extchain"
	"github.com/tidalswap/engine/internal/ledger"
	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/request"
	"github.com/tidalswap/engine/internal/token"
)

func TestScheduler_RunHonorsZeroIntervalAsDisabled(t *testing.T) {
	logger := obs.NewNopLogger()
	s := New(Config{}, nil, request.New(logger), ledger.New(logger), nil, extchain.NewNotificationStore(), nil, nil, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	<-done // every interval is zero, so Run should return as soon as ctx is cancelled, not hang
}

func TestScheduler_RunClaimPassInvokesProcessor(t *testing.T) {
	logger := obs.NewNopLogger()
	metrics := obs.NewMetrics()
	claimsStore := claims.New(logger)
	id := claimsStore.Create(1, 1, math.NewInt(100), "addr")

	var attempted bool
	claimProc := claims.NewProcessor(claimsStore, func(ctx context.Context, c claims.Claim) (uint64, uint64, bool) {
		attempted = true
		require.Equal(t, id, c.ID)
		return 1, 1, true
	}, func(tokenID uint32) bool { return false }, metrics, logger, 50, 10, 20, time.Hour, 4)

	s := New(Config{}, claimProc, request.New(logger), ledger.New(logger), nil, extchain.NewNotificationStore(), nil, nil, nil, logger)
	s.runClaimPass(context.Background())
	require.True(t, attempted)
}

func TestScheduler_RunDisabledTokenScanInvokesHandler(t *testing.T) {
	logger := obs.NewNopLogger()
	tokens := token.New(nopHostLedger{}, "relayer", logger)
	tok, err := tokens.AddExtToken("relayer", "mint-1", "SYM", 6, 0, "program-1", false)
	require.NoError(t, err)
	require.NoError(t, tokens.Remove(tok.ID))

	var seen []uint32
	s := New(Config{}, nil, request.New(logger), ledger.New(logger), tokens, extchain.NewNotificationStore(), nil, nil,
		func(tok token.Token) { seen = append(seen, tok.ID) }, logger)

	s.runDisabledTokenScan(context.Background())
	require.Equal(t, []uint32{tok.ID}, seen)
}

func TestScheduler_RunNotificationGC(t *testing.T) {
	logger := obs.NewNopLogger()
	notifier := extchain.NewNotificationStore()
	notifier.Ingest("sig-1", extchain.StatusConfirmed, nil, 0)
	require.Equal(t, 1, notifier.Len())

	s := New(Config{NotificationTTL: time.Nanosecond}, nil, request.New(logger), ledger.New(logger), nil, notifier, nil, nil, nil, logger)
	s.runNotificationGC(context.Background())
	require.Equal(t, 0, notifier.Len())
}

type nopHostLedger struct{}

func (nopHostLedger) FetchMetadata(ctx context.Context, canisterID string) (string, uint32, uint64, token.StdFlags, error) {
	return "", 0, 0, token.StdFlags{}, nil
}
