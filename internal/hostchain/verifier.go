// Package hostchain implements the host-side payment verifier (C7): it
// confirms an inbound transfer on the ICRC-capable host chain across three
// protocol dialects. Grounded on kong_backend/src/ic/verify_transfer.rs and
// kong_backend/src/ic/transfer_verification.rs, rewritten as a small
// strategy interface per token dialect (SPEC_FULL.md/§9's tagged-dispatch
// note) instead of Rust's enum match.
package hostchain

import (
	"context"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
)

const ModuleName = "hostchain"

var (
	ErrVerify          = errors.Register(ModuleName, 1, "host transfer verification failed")
	ErrAmountMismatch  = errors.Register(ModuleName, 2, "observed amount does not match claimed amount")
	ErrStale           = errors.Register(ModuleName, 3, "transfer is older than the freshness window")
	ErrWrongParty      = errors.Register(ModuleName, 4, "transfer sender or recipient does not match")
	ErrOperationTag    = errors.Register(ModuleName, 5, "unrecognized ledger operation tag")
	ErrDuplicateBlock  = errors.Register(ModuleName, 6, "block index already consumed")
)

// Dialect identifies which host-ledger protocol a token speaks.
type Dialect int

const (
	DialectStreamingBlock Dialect = iota // "B3": block-by-index query
	DialectNativeCoin                    // query_blocks
	DialectLegacy                        // get_transactions / get_transaction
)

// TokenInfo is what the verifier needs to know about a Host token to pick a
// dialect and a canister to call.
type TokenInfo struct {
	CanisterID string
	Dialect    Dialect
}

// ObservedTransfer is what the verifier extracts from the ledger, before any
// comparison against the caller's claim.
type ObservedTransfer struct {
	From   string
	To     string
	Amount math.Int
	Ts     time.Time
}

// LedgerClient is the external collaborator abstracting the three dialects'
// RPC shapes behind one interface.
type LedgerClient interface {
	GetBlock(ctx context.Context, canisterID string, blockIndex math.Int) (ObservedTransfer, string, error) // string = operation tag
	QueryBlocks(ctx context.Context, canisterID string, blockIndex math.Int) (ObservedTransfer, error)
	GetTransactions(ctx context.Context, canisterID string, blockIndex math.Int) (ObservedTransfer, error)
}

var recognizedTransferTags = map[string]bool{
	"icrc1_transfer": true,
	"1xfer":          true,
	"transfer":       true,
	"xfer":           true,
}

// Verifier is the C7 keeper-equivalent.
type Verifier struct {
	client          LedgerClient
	engineAccount   string
	transferExpiry  time.Duration
	now             func() time.Time
}

func New(client LedgerClient, engineAccount string, transferExpiry time.Duration) *Verifier {
	return &Verifier{client: client, engineAccount: engineAccount, transferExpiry: transferExpiry, now: time.Now}
}

// Verify confirms an inbound transfer at tx_reference=blockIndex for the
// given token dialect, and returns the amount actually observed on-chain.
// For every dialect it also compares that amount to expectedAmount: on a
// difference it returns the observed amount together with
// ErrAmountMismatch, so the caller can apply the Amount-Mismatch policy of
// §4.11 with the amount that really arrived.
func (v *Verifier) Verify(ctx context.Context, info TokenInfo, blockIndex math.Int, caller string, expectedAmount math.Int) (math.Int, error) {
	var obs ObservedTransfer
	var err error

	switch info.Dialect {
	case DialectStreamingBlock:
		var tag string
		obs, tag, err = v.client.GetBlock(ctx, info.CanisterID, blockIndex)
		if err != nil {
			return math.Int{}, ErrVerify.Wrap(err.Error())
		}
		if !recognizedTransferTags[tag] {
			return math.Int{}, ErrOperationTag.Wrap(tag)
		}
	case DialectNativeCoin:
		obs, err = v.client.QueryBlocks(ctx, info.CanisterID, blockIndex)
		if err != nil {
			return math.Int{}, ErrVerify.Wrap(err.Error())
		}
	default:
		obs, err = v.client.GetTransactions(ctx, info.CanisterID, blockIndex)
		if err != nil {
			return math.Int{}, ErrVerify.Wrap(err.Error())
		}
	}

	if obs.From != caller {
		return math.Int{}, ErrWrongParty.Wrap("from")
	}
	if obs.To != v.engineAccount {
		return math.Int{}, ErrWrongParty.Wrap("to")
	}
	if v.now().Sub(obs.Ts) > v.transferExpiry {
		return math.Int{}, ErrStale
	}
	if !obs.Amount.Equal(expectedAmount) {
		return obs.Amount, ErrAmountMismatch
	}

	return obs.Amount, nil
}
