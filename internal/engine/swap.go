package engine

import (
	"context"
	"strconv"

	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/request"
	"github.com/tidalswap/engine/pkg/natmath"
)

// Swap implements §4.11's common skeleton specialized for the Swap
// operation. It is synchronous: callers needing the async contract use
// SwapAsync, which runs this on a goroutine and polls the Request log.
func (e *Engine) Swap(ctx context.Context, args SwapArgs) (request.Reply, error) {
	requestID := e.requests.Start(args.UserID, request.OpSwap, args)
	reply := e.doSwap(ctx, requestID, args)
	_ = e.requests.SetReply(requestID, reply)
	if !reply.Ok {
		return reply, ErrArg.Wrap(reply.Message)
	}
	return reply, nil
}

// SwapAsync returns a request id immediately and drives the same workflow
// on a background goroutine, per §4.11's async-variant contract.
func (e *Engine) SwapAsync(ctx context.Context, args SwapArgs) uint64 {
	requestID := e.requests.Start(args.UserID, request.OpSwap, args)
	go func() {
		reply := e.doSwap(ctx, requestID, args)
		_ = e.requests.SetReply(requestID, reply)
	}()
	return requestID
}

func (e *Engine) doSwap(ctx context.Context, requestID uint64, args SwapArgs) request.Reply {
	_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken0, "")

	payTok, err := e.tokens.Get(args.PayToken)
	if err != nil {
		return e.fail(requestID, err.Error())
	}
	recvTok, err := e.tokens.Get(args.ReceiveToken)
	if err != nil {
		return e.fail(requestID, err.Error())
	}

	in, err := e.verifyInbound(ctx, requestID, args.UserID, payTok, args.PayAmount, args.PayTx, args.PayExtAuth, args.ReceiveAddress)
	if err != nil {
		_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken0Failed, err.Error())
		return e.fail(requestID, err.Error())
	}
	_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken0Success, "")

	if in.mismatch {
		claimIDs := e.refundLeg(ctx, requestID, args.UserID, payTok, in.amount, args.ReceiveAddress)
		return e.failWithRefund(requestID, "inbound amount mismatch", []uint64{in.transferID}, claimIDs)
	}

	p, err := e.pools.GetByTokens(payTok.ID, recvTok.ID)
	if err != nil {
		_ = e.requests.AppendStatus(requestID, request.StatusPoolNotFound, "")
		claimIDs := e.refundLeg(ctx, requestID, args.UserID, payTok, in.amount, args.ReceiveAddress)
		return e.failWithRefund(requestID, err.Error(), []uint64{in.transferID}, claimIDs)
	}

	var balanceIn, balanceOut math.Int
	if payTok.ID == p.TokenID0 {
		balanceIn, balanceOut = p.Balance0, p.Balance1
	} else {
		balanceIn, balanceOut = p.Balance1, p.Balance0
	}

	// Check min_receive and slippage against a quote first, so the pool is
	// only mutated once the swap is known to pass both checks.
	if quotedOut, qerr := e.pools.QuoteSwap(p.ID, payTok.ID, recvTok.ID, in.amount); qerr == nil {
		maxSlippageBp := args.MaxSlippageBp
		if maxSlippageBp == 0 {
			maxSlippageBp = e.defaultMaxSlippageBp()
		}
		if quotedOut.LT(args.MinReceive) || slippageExceeded(balanceIn, balanceOut, in.amount, quotedOut, maxSlippageBp) {
			claimIDs := e.refundLeg(ctx, requestID, args.UserID, payTok, in.amount, args.ReceiveAddress)
			return e.failWithRefund(requestID, "slippage exceeded", []uint64{in.transferID}, claimIDs)
		}
	}

	swapResult, err := e.pools.Swap(p.ID, payTok.ID, recvTok.ID, in.amount)
	if err != nil {
		claimIDs := e.refundLeg(ctx, requestID, args.UserID, payTok, in.amount, args.ReceiveAddress)
		return e.failWithRefund(requestID, err.Error(), []uint64{in.transferID}, claimIDs)
	}
	_ = e.requests.AppendStatus(requestID, request.StatusUpdatePoolAmountsSuccess, "")

	outTransferID, claimIDs, jobID := e.payout(ctx, requestID, args.UserID, recvTok, swapResult.AmountOut, args.ReceiveAddress)
	_ = e.requests.AppendStatus(requestID, request.StatusSwapSuccess, "")
	_ = e.requests.AppendStatus(requestID, request.StatusSuccess, "")

	if e.metrics != nil {
		e.metrics.SwapsTotal.WithLabelValues(strconv.Itoa(int(p.ID)), strconv.Itoa(int(payTok.ID)), strconv.Itoa(int(recvTok.ID)), "success").Inc()
	}

	jobIDs := []uint64{}
	if jobID != 0 {
		jobIDs = append(jobIDs, jobID)
	}
	return request.Reply{
		Ok:          true,
		TransferIDs: []uint64{in.transferID, outTransferID},
		ClaimIDs:    claimIDs,
		JobIDs:      jobIDs,
		AmountOut:   swapResult.AmountOut.String(),
	}
}

// defaultMaxSlippageBp converts the configured DefaultMaxSlippage (a percent,
// e.g. 2.0 meaning 2%) to basis points, mirroring swap_transfer.rs's
// args.max_slippage.unwrap_or(kong_settings_map::get().default_max_slippage):
// a caller that omits a per-swap bound falls back to the configured default
// rather than skipping the check entirely.
func (e *Engine) defaultMaxSlippageBp() uint32 {
	return uint32(e.cfg.DefaultMaxSlippage * 100)
}

// slippageExceeded reports whether the executed output fell short of the
// pre-trade spot rate by more than maxSlippageBp, a belt-and-suspenders
// check alongside the caller's absolute min_receive bound (§4.11 point 5).
// No external price oracle is consulted (§1 non-goal); the reference rate
// is the pool's own pre-trade reserves.
func slippageExceeded(balanceIn, balanceOut, amountIn, amountOut math.Int, maxSlippageBp uint32) bool {
	if maxSlippageBp == 0 || amountIn.IsZero() || balanceIn.IsZero() {
		return false
	}
	expectedOut := natmath.MulDiv(balanceOut, amountIn, balanceIn)
	if expectedOut.IsZero() {
		return false
	}
	if amountOut.GTE(expectedOut) {
		return false
	}
	shortfallBp := natmath.MulDiv(expectedOut.Sub(amountOut), math.NewInt(10000), expectedOut)
	return shortfallBp.GT(math.NewInt(int64(maxSlippageBp)))
}

func (e *Engine) fail(requestID uint64, message string) request.Reply {
	_ = e.requests.AppendStatus(requestID, request.StatusFailed, message)
	return request.Reply{Ok: false, Message: message}
}

func (e *Engine) failWithRefund(requestID uint64, message string, transferIDs, claimIDs []uint64) request.Reply {
	_ = e.requests.AppendStatus(requestID, request.StatusFailed, message)
	return request.Reply{Ok: false, Message: message, TransferIDs: transferIDs, ClaimIDs: claimIDs}
}
