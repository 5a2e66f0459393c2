package engine

import (
	"context"

	"cosmossdk.io/errors"

	"github.com/tidalswap/engine/internal/extchain"
)

// Guard implements §6's pre-dispatch policy layer — payload-size bounds and
// Ext-chain notification-presence checks — as a single gate in front of the
// engine rather than inline in each operation, so the policy is defined
// once (SPEC_FULL.md §6).
type Guard struct {
	maxPayloadBytes int
	notifications   *extchain.NotificationStore
}

func NewGuard(maxPayloadBytes int, notifications *extchain.NotificationStore) *Guard {
	return &Guard{maxPayloadBytes: maxPayloadBytes, notifications: notifications}
}

// CheckSwapPayload rejects payloads over the configured maximum and swap
// requests that reference an Ext tx_id not yet present in the notification
// store, per §6's query-gating rule for `swap`/`swap_async`.
func (g *Guard) CheckSwapPayload(ctx context.Context, payloadBytes int, extTxSignature *string) error {
	if payloadBytes > g.maxPayloadBytes {
		return ErrPayloadTooLarge.Wrapf("%d > %d", payloadBytes, g.maxPayloadBytes)
	}
	if extTxSignature != nil {
		if _, ok := g.notifications.Get(*extTxSignature); !ok {
			return ErrTransactionNotReady
		}
	}
	return nil
}

// QueryOnlyMethods is the fixed allowlist of method names that must be
// invoked as read-only queries (§6): calling them as updates traps.
var QueryOnlyMethods = map[string]bool{
	"get_pools":        true,
	"get_tokens":       true,
	"get_requests":     true,
	"get_claims":       true,
	"swap_amounts":     true,
	"get_user":         true,
	"get_orderbook":    true,
}

var ErrNotAQuery = errors.Register(ModuleName, 6, "method must be invoked as a query")

// RequireQuery traps calls to query-only methods made as updates.
func RequireQuery(method string, isUpdate bool) error {
	if QueryOnlyMethods[method] && isUpdate {
		return ErrNotAQuery.Wrap(method)
	}
	return nil
}
