package orderbook

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestTWAPScheduler_SubmitSplitsIntoSlices(t *testing.T) {
	s := NewTWAPScheduler(nil, nil)
	id := s.Submit(1, 2, 3, math.NewInt(100), 4, time.Minute, 50, "addr")
	o, ok := s.Get(id)
	require.True(t, ok)
	require.True(t, o.SliceAmount.Equal(math.NewInt(25)))
	require.Equal(t, 4, o.SlicesTotal)
	require.Equal(t, TWAPRunning, o.Status)
}

func TestTWAPScheduler_Cancel(t *testing.T) {
	s := NewTWAPScheduler(nil, nil)
	id := s.Submit(1, 2, 3, math.NewInt(100), 4, time.Minute, 50, "addr")
	s.Cancel(id)
	o, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, TWAPCancelled, o.Status)
}

func TestPriceCapMet_NilMeansUnconditional(t *testing.T) {
	require.True(t, priceCapMet(nil, &TWAPOrder{}))
}

func TestPriceCapMet_DelegatesToCallback(t *testing.T) {
	o := &TWAPOrder{PayToken: 1, ReceiveToken: 2, MaxSlippageBp: 50}
	called := false
	check := func(pay, recv uint32, maxSlippageBp uint32) bool {
		called = true
		require.Equal(t, uint32(1), pay)
		require.Equal(t, uint32(2), recv)
		return false
	}
	require.False(t, priceCapMet(check, o))
	require.True(t, called)
}
