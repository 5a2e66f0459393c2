package engine

import (
	"context"
)

// RefundTransfer is the explicit external operation of §6: an operator's
// manual re-trigger of a refund for a Transfer that was recorded but never
// paid out (SPEC_FULL.md §4.11, mirroring stable_transfer/refund_transfer.rs).
// It is a thin wrapper around the same compensating-refund subroutine used
// internally by every mutating operation.
func (e *Engine) RefundTransfer(ctx context.Context, transferID uint64, toAddress string) ([]uint64, error) {
	tr, err := e.ledger.Get(transferID)
	if err != nil {
		return nil, err
	}
	tok, err := e.tokens.Get(tr.TokenID)
	if err != nil {
		return nil, err
	}
	return e.refundLeg(ctx, tr.RequestID, 0, tok, tr.Amount, toAddress), nil
}
