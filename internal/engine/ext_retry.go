package engine

import (
	"context"

	"github.com/tidalswap/engine/internal/extchain"
	"github.com/tidalswap/engine/internal/request"
)

// SwapAsyncExtPending implements §4.11's special Ext-chain swap retry: when
// pay_tx_id is an Ext signature the notification ingress has not yet
// observed, the engine records the Request immediately, returns its id,
// and on a background task repeatedly polls extract_sender_from_transaction
// up to ten times with a two-second gap before running the ordinary Swap
// workflow — this absorbs the interval before the relayer posts the
// notification.
func (e *Engine) SwapAsyncExtPending(ctx context.Context, args SwapArgs, extract extchain.ExtractSenderFunc) uint64 {
	requestID := e.requests.Start(args.UserID, request.OpSwap, args)
	go func() {
		if args.PayTx.ExtSig != nil {
			if _, err := extchain.PollForSender(ctx, extract, *args.PayTx.ExtSig); err != nil {
				reply := e.fail(requestID, err.Error())
				_ = e.requests.SetReply(requestID, reply)
				return
			}
		}
		reply := e.doSwap(ctx, requestID, args)
		_ = e.requests.SetReply(requestID, reply)
	}()
	return requestID
}
