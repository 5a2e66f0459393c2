package engine

import (
	"context"

	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/pool"
	"github.com/tidalswap/engine/internal/request"
	"github.com/tidalswap/engine/internal/token"
	"github.com/tidalswap/engine/pkg/natmath"
)

// AddLiquidity implements §4.11's common skeleton for the AddLiquidity
// operation. Per point 2, at least one of the two inbound legs must be
// verifiable — if neither verifies, funds were never received and the
// Request simply fails; if exactly one verifies, the other is refunded via
// the compensating-refund subroutine.
func (e *Engine) AddLiquidity(ctx context.Context, args AddLiquidityArgs) (request.Reply, error) {
	requestID := e.requests.Start(args.UserID, request.OpAddLiquidity, args)
	reply := e.doAddLiquidity(ctx, requestID, args)
	_ = e.requests.SetReply(requestID, reply)
	if !reply.Ok {
		return reply, ErrArg.Wrap(reply.Message)
	}
	return reply, nil
}

// AddLiquidityAsync is the async variant of AddLiquidity.
func (e *Engine) AddLiquidityAsync(ctx context.Context, args AddLiquidityArgs) uint64 {
	requestID := e.requests.Start(args.UserID, request.OpAddLiquidity, args)
	go func() {
		reply := e.doAddLiquidity(ctx, requestID, args)
		_ = e.requests.SetReply(requestID, reply)
	}()
	return requestID
}

func (e *Engine) doAddLiquidity(ctx context.Context, requestID uint64, args AddLiquidityArgs) request.Reply {
	tok0, err := e.tokens.Get(args.Token0)
	if err != nil {
		return e.fail(requestID, err.Error())
	}
	tok1, err := e.tokens.Get(args.Token1)
	if err != nil {
		return e.fail(requestID, err.Error())
	}

	_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken0, "")
	in0, err0 := e.verifyInbound(ctx, requestID, args.UserID, tok0, args.Amount0, args.PayTx0, args.PayExtAuth0, "")
	if err0 != nil {
		_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken0Failed, err0.Error())
	} else {
		_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken0Success, "")
	}

	_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken1, "")
	in1, err1 := e.verifyInbound(ctx, requestID, args.UserID, tok1, args.Amount1Max, args.PayTx1, args.PayExtAuth1, "")
	if err1 != nil {
		_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken1Failed, err1.Error())
	} else {
		_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken1Success, "")
	}

	if err0 != nil && err1 != nil {
		return e.fail(requestID, "neither inbound leg verified: "+err0.Error()+" / "+err1.Error())
	}

	var transferIDs, claimIDs []uint64
	if in0.transferID != 0 {
		transferIDs = append(transferIDs, in0.transferID)
	}
	if in1.transferID != 0 {
		transferIDs = append(transferIDs, in1.transferID)
	}

	if err0 != nil || in0.mismatch || err1 != nil || in1.mismatch {
		// Only one side came through cleanly (or one side mismatched its
		// claim); refund whichever side actually arrived and fail.
		if err0 == nil {
			claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok0, in0.amount, in0.fromAddress)...)
		}
		if err1 == nil {
			claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok1, in1.amount, in1.fromAddress)...)
		}
		return e.failWithRefund(requestID, "incomplete inbound legs", transferIDs, claimIDs)
	}

	p, perr := e.pools.GetByTokens(tok0.ID, tok1.ID)
	if perr != nil {
		_ = e.requests.AppendStatus(requestID, request.StatusPoolNotFound, "")
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok0, in0.amount, in0.fromAddress)...)
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok1, in1.amount, in1.fromAddress)...)
		return e.failWithRefund(requestID, perr.Error(), transferIDs, claimIDs)
	}

	actual1, mintAmt, lerr := e.pools.AddLiquidity(p.ID, args.UserID, in0.amount, in1.amount)
	if lerr != nil {
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok0, in0.amount, in0.fromAddress)...)
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok1, in1.amount, in1.fromAddress)...)
		return e.failWithRefund(requestID, lerr.Error(), transferIDs, claimIDs)
	}
	_ = e.requests.AppendStatus(requestID, request.StatusMintLPSuccess, "")

	// Any of in1.amount not consumed (derived amount1 < supplied amount1Max)
	// is returned to the depositor.
	if in1.amount.GT(actual1) {
		leftover := in1.amount.Sub(actual1)
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok1, leftover, in1.fromAddress)...)
	}

	_ = e.requests.AppendStatus(requestID, request.StatusSuccess, "")
	return request.Reply{
		Ok:          true,
		TransferIDs: transferIDs,
		ClaimIDs:    claimIDs,
		AmountOut:   mintAmt.String(),
	}
}

// RemoveLiquidity implements §4.11's remove-liquidity operation: LP is
// burned before payouts; if a payout cannot be recovered via the Claim
// path the burn is rolled back by the inverse operation.
func (e *Engine) RemoveLiquidity(ctx context.Context, args RemoveLiquidityArgs) (request.Reply, error) {
	requestID := e.requests.Start(args.UserID, request.OpRemoveLiquidity, args)
	reply := e.doRemoveLiquidity(ctx, requestID, args)
	_ = e.requests.SetReply(requestID, reply)
	if !reply.Ok {
		return reply, ErrArg.Wrap(reply.Message)
	}
	return reply, nil
}

func (e *Engine) doRemoveLiquidity(ctx context.Context, requestID uint64, args RemoveLiquidityArgs) request.Reply {
	p, err := e.pools.Get(uint32(args.PoolID))
	if err != nil {
		return e.fail(requestID, err.Error())
	}

	totalSupply := e.pools.TotalLPSupply(p.LPTokenID)
	if err := e.pools.BurnLP(args.UserID, p.LPTokenID, args.LPAmount); err != nil {
		return e.fail(requestID, err.Error())
	}
	_ = e.requests.AppendStatus(requestID, request.StatusBurnLPSuccess, "")

	result, rerr := e.pools.RemoveLiquidity(p.ID, args.LPAmount, totalSupply)
	if rerr != nil {
		e.pools.RestoreLP(args.UserID, p.LPTokenID, args.LPAmount)
		return e.fail(requestID, rerr.Error())
	}

	tok0, _ := e.tokens.Get(p.TokenID0)
	tok1, _ := e.tokens.Get(p.TokenID1)

	payout0, payout1 := applyExtGasAllowance(tok0, tok1, result, math.NewIntFromUint64(e.cfg.ExtGasAllowance))

	var transferIDs, claimIDs []uint64
	tid0, c0, _ := e.payout(ctx, requestID, args.UserID, tok0, payout0, args.Receive0Address)
	transferIDs = append(transferIDs, tid0)
	claimIDs = append(claimIDs, c0...)
	_ = e.requests.AppendStatus(requestID, request.StatusReturnToken0Success, "")

	tid1, c1, _ := e.payout(ctx, requestID, args.UserID, tok1, payout1, args.Receive1Address)
	transferIDs = append(transferIDs, tid1)
	claimIDs = append(claimIDs, c1...)
	_ = e.requests.AppendStatus(requestID, request.StatusReturnToken1Success, "")

	_ = e.requests.AppendStatus(requestID, request.StatusSuccess, "")
	return request.Reply{Ok: true, TransferIDs: transferIDs, ClaimIDs: claimIDs}
}

// applyExtGasAllowance subtracts a fixed Ext-gas allowance from the
// *non*-Ext side's payout before it is sent out, per spec.md:190's
// remove-liquidity detail (the Ext leg's own gas is covered by the
// relayer/job builder, not by shrinking the Ext payout itself): when
// exactly one side is Ext-chain, the allowance is deducted from the
// other side, split proportionally between its base payout and its
// accumulated LP-fee share (original_source remove_liquidity.rs's
// is_spl_requiring_gas_deduction/calculate_spl_gas_fee_for_remove_liquidity).
// If the allowance exceeds that side's total payout, both components zero
// out rather than go negative. When neither side is Ext-chain, both
// payouts pass through unchanged.
func applyExtGasAllowance(tok0, tok1 token.Token, result pool.RemoveResult, gasAllowance math.Int) (math.Int, math.Int) {
	if gasAllowance.IsZero() {
		return result.Payout0, result.Payout1
	}
	switch {
	case tok1.Chain() == token.ChainExt:
		base0 := natmath.Sub(result.Payout0, result.FeeShare0)
		newBase, newFee := splitGasDeduction(base0, result.FeeShare0, gasAllowance)
		return natmath.Add(newBase, newFee), result.Payout1
	case tok0.Chain() == token.ChainExt:
		base1 := natmath.Sub(result.Payout1, result.FeeShare1)
		newBase, newFee := splitGasDeduction(base1, result.FeeShare1, gasAllowance)
		return result.Payout0, natmath.Add(newBase, newFee)
	}
	return result.Payout0, result.Payout1
}

// splitGasDeduction deducts gasAllowance from (baseAmount + feeShare),
// apportioned between the two in the same ratio they contribute to the
// total, mirroring the original's ratio_amount/fee_deduction_lp split.
func splitGasDeduction(baseAmount, feeShare, gasAllowance math.Int) (math.Int, math.Int) {
	total := natmath.Add(baseAmount, feeShare)
	if gasAllowance.GT(total) {
		return math.ZeroInt(), math.ZeroInt()
	}
	if total.IsZero() {
		return baseAmount, feeShare
	}
	deductionFromBase := natmath.MulDiv(gasAllowance, baseAmount, total)
	deductionFromFee := gasAllowance.Sub(deductionFromBase)
	return natmath.Sub(baseAmount, deductionFromBase), natmath.Sub(feeShare, deductionFromFee)
}
