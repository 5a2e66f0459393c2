package request

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tidalswap/engine/internal/obs"
)

func TestStart_CreatesRequestWithStartStatus(t *testing.T) {
	l := New(obs.NewNopLogger())
	id := l.Start(1, OpSwap, nil)

	req, err := l.Get(id)
	require.NoError(t, err)
	require.Equal(t, OpSwap, req.Op)
	require.Len(t, req.Statuses, 1)
	require.Equal(t, StatusStart, req.Statuses[0].Code)
}

func TestAppendStatus_AppendsInOrder(t *testing.T) {
	l := New(obs.NewNopLogger())
	id := l.Start(1, OpSwap, nil)

	require.NoError(t, l.AppendStatus(id, StatusVerifyToken0, ""))
	require.NoError(t, l.AppendStatus(id, StatusVerifyToken0Success, ""))

	req, err := l.Get(id)
	require.NoError(t, err)
	require.Len(t, req.Statuses, 3)
	require.Equal(t, []StatusCode{StatusStart, StatusVerifyToken0, StatusVerifyToken0Success},
		[]StatusCode{req.Statuses[0].Code, req.Statuses[1].Code, req.Statuses[2].Code})
}

func TestAppendStatus_UnknownRequestReturnsNotFound(t *testing.T) {
	l := New(obs.NewNopLogger())
	require.ErrorIs(t, l.AppendStatus(999, StatusFailed, ""), ErrNotFound)
}

func TestSetReply_OnlyAppliesOnce(t *testing.T) {
	l := New(obs.NewNopLogger())
	id := l.Start(1, OpSwap, nil)

	require.NoError(t, l.SetReply(id, Reply{Ok: true, AmountOut: "100"}))
	require.NoError(t, l.SetReply(id, Reply{Ok: false, Message: "should be ignored"}))

	req, err := l.Get(id)
	require.NoError(t, err)
	require.NotNil(t, req.Reply)
	require.True(t, req.Reply.Ok)
	require.Equal(t, "100", req.Reply.AmountOut)
}

func TestLastStatus_ReturnsMostRecentCode(t *testing.T) {
	l := New(obs.NewNopLogger())
	id := l.Start(1, OpSwap, nil)
	require.NoError(t, l.AppendStatus(id, StatusSwapSuccess, ""))

	code, err := l.LastStatus(id)
	require.NoError(t, err)
	require.Equal(t, StatusSwapSuccess, code)
}

func TestForUser_FiltersByUserID(t *testing.T) {
	l := New(obs.NewNopLogger())
	l.Start(1, OpSwap, nil)
	l.Start(2, OpSwap, nil)
	l.Start(1, OpAddLiquidity, nil)

	require.Len(t, l.ForUser(1), 2)
	require.Len(t, l.ForUser(2), 1)
}

func TestArchiveUpTo_RemovesFromActiveWindow(t *testing.T) {
	l := New(obs.NewNopLogger())
	id1 := l.Start(1, OpSwap, nil)
	l.Start(1, OpSwap, nil)

	require.Equal(t, 1, l.ArchiveUpTo(id1))
}

func TestStatusCode_IsTerminal(t *testing.T) {
	require.True(t, StatusSuccess.IsTerminal())
	require.True(t, StatusFailed.IsTerminal())
	require.False(t, StatusStart.IsTerminal())
}
