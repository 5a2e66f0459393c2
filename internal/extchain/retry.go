package extchain

import (
	"context"
	"time"
)

// ExtractSenderFunc mirrors the relayer RPC the engine polls while waiting
// for a notification to land (spec.md §4.11's "Ext-chain swap retry").
type ExtractSenderFunc func(ctx context.Context, txSignature string) (sender string, ok bool, err error)

// PollForSender repeatedly attempts extract to absorb the interval before
// the relayer posts the notification for txSignature, up to ten attempts
// with a two-second gap, exactly as spec.md §4.11 describes.
func PollForSender(ctx context.Context, extract ExtractSenderFunc, txSignature string) (string, error) {
	const attempts = 10
	const gap = 2 * time.Second

	var lastErr error
	for i := 0; i < attempts; i++ {
		sender, ok, err := extract(ctx, txSignature)
		if err != nil {
			lastErr = err
		} else if ok {
			return sender, nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(gap):
			}
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrNotReady
}
