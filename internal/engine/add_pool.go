package engine

import (
	"context"

	"github.com/tidalswap/engine/internal/request"
)

// AddPool implements §4.11's AddPool operation: create() on the pool
// registry (C4), then apply the same deposit path as AddLiquidity. Per
// SPEC_FULL.md §4.11, if neither inbound leg verifies, the Request fails
// with ErrArg before any pool is created and before any Claim exists —
// nothing was received, so there is nothing to refund.
func (e *Engine) AddPool(ctx context.Context, args AddPoolArgs) (request.Reply, error) {
	requestID := e.requests.Start(args.UserID, request.OpAddPool, args)
	reply := e.doAddPool(ctx, requestID, args)
	_ = e.requests.SetReply(requestID, reply)
	if !reply.Ok {
		return reply, ErrArg.Wrap(reply.Message)
	}
	return reply, nil
}

func (e *Engine) doAddPool(ctx context.Context, requestID uint64, args AddPoolArgs) request.Reply {
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
	_ = e.requests.AppendStatus(requestID, request.StatusVerifyToken1, "")
	in1, err1 := e.verifyInbound(ctx, requestID, args.UserID, tok1, args.Amount1Max, args.PayTx1, args.PayExtAuth1, "")

	if err0 != nil && err1 != nil {
		return e.fail(requestID, "neither inbound leg verified, no pool created")
	}

	var transferIDs, claimIDs []uint64
	if in0.transferID != 0 {
		transferIDs = append(transferIDs, in0.transferID)
	}
	if in1.transferID != 0 {
		transferIDs = append(transferIDs, in1.transferID)
	}

	lpTok, lperr := e.tokens.AddLPToken(0, tok0.Symbol+"_"+tok1.Symbol)
	if lperr != nil {
		return e.fail(requestID, lperr.Error())
	}
	p, cerr := e.pools.Create(tok0.ID, tok1.ID, args.LPFeeBps, args.OperatorFeeBps, lpTok.ID)
	if cerr != nil {
		if err0 == nil {
			claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok0, in0.amount, in0.fromAddress)...)
		}
		if err1 == nil {
			claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok1, in1.amount, in1.fromAddress)...)
		}
		return e.failWithRefund(requestID, cerr.Error(), transferIDs, claimIDs)
	}

	if err0 != nil || in0.mismatch || err1 != nil || in1.mismatch {
		if err0 == nil {
			claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok0, in0.amount, in0.fromAddress)...)
		}
		if err1 == nil {
			claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok1, in1.amount, in1.fromAddress)...)
		}
		return e.failWithRefund(requestID, "incomplete inbound legs", transferIDs, claimIDs)
	}

	decimals0, decimals1, derr := e.tokens.DecimalsFor(tok0.ID, tok1.ID)
	if derr != nil {
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok0, in0.amount, in0.fromAddress)...)
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok1, in1.amount, in1.fromAddress)...)
		return e.failWithRefund(requestID, derr.Error(), transferIDs, claimIDs)
	}

	mint, ierr := e.pools.InitialAddLiquidity(p.ID, args.UserID, in0.amount, in1.amount, decimals0, decimals1)
	if ierr != nil {
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok0, in0.amount, in0.fromAddress)...)
		claimIDs = append(claimIDs, e.refundLeg(ctx, requestID, args.UserID, tok1, in1.amount, in1.fromAddress)...)
		return e.failWithRefund(requestID, ierr.Error(), transferIDs, claimIDs)
	}
	_ = e.requests.AppendStatus(requestID, request.StatusMintLPSuccess, "")

	_ = e.requests.AppendStatus(requestID, request.StatusSuccess, "")
	return request.Reply{
		Ok:          true,
		TransferIDs: transferIDs,
		ClaimIDs:    claimIDs,
		AmountOut:   mint.String(),
	}
}
