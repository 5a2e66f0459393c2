package engine

import (
	"context"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/claims"
	"github.com/tidalswap/engine/internal/config"
	"github.com/tidalswap/engine/internal/extchain"
	"github.com/tidalswap/engine/internal/hostchain"
	"github.com/tidalswap/engine/internal/ledger"
	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/pool"
	"github.com/tidalswap/engine/internal/request"
	"github.com/tidalswap/engine/internal/token"
)

const ModuleName = "engine"

var (
	ErrArg              = errors.Register(ModuleName, 1, "invalid argument")
	ErrNoVerifiableLeg  = errors.Register(ModuleName, 2, "neither inbound leg could be verified")
	ErrSlippage         = errors.Register(ModuleName, 3, "computed output violates slippage bounds")
	ErrTransactionNotReady = errors.Register(ModuleName, 4, "ext transaction not yet observed")
	ErrPayloadTooLarge  = errors.Register(ModuleName, 5, "request payload exceeds the configured maximum")
	ErrDuplicate        = errors.Register(ModuleName, 7, "tx_ref already recorded: replay rejected")
)

// HostTransferer is the host ledger's transfer surface: direct icrc1
// transfers and delegated icrc2 pulls.
type HostTransferer interface {
	Transfer(ctx context.Context, canisterID, from, to string, amount math.Int) (blockIndex math.Int, err error)
	TransferFrom(ctx context.Context, canisterID, from, to string, amount math.Int) (blockIndex math.Int, err error)
}

// Engine is the C11 keeper-equivalent: the central orchestrator wiring the
// token catalogue, pool registry, ledger, request log, claims store, and
// both chains' verifiers/payout paths together.
type Engine struct {
	cfg       config.Config
	logger    obs.Logger
	metrics   *obs.Metrics

	tokens    *token.Catalogue
	pools     *pool.Registry
	ledger    *ledger.Ledger
	requests  *request.Log
	claimsSt  *claims.Store

	hostVerifier *hostchain.Verifier
	hostXfer     HostTransferer

	extVerifier  *extchain.Verifier
	extBuilder   *extchain.Builder
	extQueue     *extchain.Queue
	extNotifier  *extchain.NotificationStore

	enginePrincipal string
	enginePayer     string
}

// Deps bundles the Engine's collaborators for construction.
type Deps struct {
	Cfg             config.Config
	Logger          obs.Logger
	Metrics         *obs.Metrics
	Tokens          *token.Catalogue
	Pools           *pool.Registry
	Ledger          *ledger.Ledger
	Requests        *request.Log
	Claims          *claims.Store
	HostVerifier    *hostchain.Verifier
	HostXfer        HostTransferer
	ExtVerifier     *extchain.Verifier
	ExtBuilder      *extchain.Builder
	ExtQueue        *extchain.Queue
	ExtNotifier     *extchain.NotificationStore
	EnginePrincipal string
	EnginePayer     string
}

func New(d Deps) *Engine {
	return &Engine{
		cfg: d.Cfg, logger: d.Logger, metrics: d.Metrics,
		tokens: d.Tokens, pools: d.Pools, ledger: d.Ledger, requests: d.Requests, claimsSt: d.Claims,
		hostVerifier: d.HostVerifier, hostXfer: d.HostXfer,
		extVerifier: d.ExtVerifier, extBuilder: d.ExtBuilder, extQueue: d.ExtQueue, extNotifier: d.ExtNotifier,
		enginePrincipal: d.EnginePrincipal, enginePayer: d.EnginePayer,
	}
}

// inboundResult is what verifying one inbound leg yields: the amount
// actually observed on-chain and the Transfer id recording it, regardless
// of whether the amount matched what the caller claimed.
type inboundResult struct {
	transferID   uint64
	amount       math.Int
	mismatch     bool
	fromAddress  string
}

// verifyInbound implements §4.11 points 3-4 for a single leg: push model
// via §4.7/§4.8, or pull model (host only) via a delegated transfer-from.
// It records a Transfer even on amount mismatch, but a (token_id, tx_ref)
// pair already present in the ledger fails the leg with ErrDuplicate
// rather than replaying the original operation (§4.5/§4.6's replay-
// protection invariant).
func (e *Engine) verifyInbound(ctx context.Context, requestID uint64, userID uint32, tok token.Token, claimedAmount math.Int, tx PayTx, auth *ExtAuth, senderHostAccount string) (inboundResult, error) {
	switch tok.Chain() {
	case token.ChainHost:
		if tx.Pull {
			blockIdx, err := e.hostXfer.TransferFrom(ctx, tok.CanisterID, senderHostAccount, e.enginePrincipal, claimedAmount)
			if err != nil {
				return inboundResult{}, err
			}
			tid, err := e.ledger.Insert(requestID, true, claimedAmount, tok.ID, ledger.HostBlockRef(blockIdx), time.Now())
			if err != nil {
				if errors.Is(err, ledger.ErrDuplicate) {
					return inboundResult{}, ErrDuplicate
				}
				return inboundResult{}, err
			}
			return inboundResult{transferID: tid, amount: claimedAmount, fromAddress: senderHostAccount}, nil
		}
		if tx.HostBlock == nil {
			return inboundResult{}, ErrArg.Wrap("missing host block index")
		}
		info := hostchain.TokenInfo{CanisterID: tok.CanisterID, Dialect: dialectFor(tok)}
		amount, verr := e.hostVerifier.Verify(ctx, info, *tx.HostBlock, senderHostAccount, claimedAmount)
		mismatch := errors.Is(verr, hostchain.ErrAmountMismatch)
		if verr != nil && !mismatch {
			return inboundResult{}, verr
		}
		tid, lerr := e.ledger.Insert(requestID, true, amount, tok.ID, ledger.HostBlockRef(*tx.HostBlock), time.Now())
		if lerr != nil {
			if errors.Is(lerr, ledger.ErrDuplicate) {
				return inboundResult{}, ErrDuplicate
			}
			return inboundResult{}, lerr
		}
		return inboundResult{transferID: tid, amount: amount, mismatch: mismatch, fromAddress: senderHostAccount}, nil

	case token.ChainExt:
		if tx.ExtSig == nil {
			return inboundResult{}, ErrArg.Wrap("missing ext signature reference")
		}
		if auth == nil {
			return inboundResult{}, ErrArg.Wrap("missing ext signature proof")
		}
		verified, verr := e.extVerifier.Verify(*tx.ExtSig, auth.SignatureOverCanonicalMessage, claimedAmount.String(), auth.CanonicalMessage, tok.IsFungibleAccountToken, claimedAmount)
		if verr != nil {
			if errors.Is(verr, extchain.ErrNotReady) {
				return inboundResult{}, ErrTransactionNotReady
			}
			mismatch := errors.Is(verr, extchain.ErrAmountMismatch)
			if !mismatch {
				return inboundResult{}, verr
			}
			// Record the amount the notification store observed, not the
			// caller's claim, so a refund never returns more than arrived.
			observed := math.ZeroInt()
			if e.extNotifier != nil {
				if n, ok := e.extNotifier.Get(*tx.ExtSig); ok {
					if amt, ok := math.NewIntFromString(n.Metadata["amount"]); ok {
						observed = amt
					}
				}
			}
			tid, lerr := e.ledger.Insert(requestID, true, observed, tok.ID, ledger.ExtSigRef(*tx.ExtSig), time.Now())
			if lerr != nil {
				if errors.Is(lerr, ledger.ErrDuplicate) {
					return inboundResult{}, ErrDuplicate
				}
				return inboundResult{}, lerr
			}
			return inboundResult{transferID: tid, amount: observed, mismatch: true}, nil
		}
		tid, lerr := e.ledger.Insert(requestID, true, verified.Amount, tok.ID, ledger.ExtSigRef(verified.TxSignature), time.Now())
		if lerr != nil {
			if errors.Is(lerr, ledger.ErrDuplicate) {
				return inboundResult{}, ErrDuplicate
			}
			return inboundResult{}, lerr
		}
		return inboundResult{transferID: tid, amount: verified.Amount, fromAddress: verified.Sender}, nil
	}
	return inboundResult{}, ErrArg.Wrap("unknown token chain")
}

func dialectFor(tok token.Token) hostchain.Dialect {
	switch {
	case tok.StdFlags.ICRC3:
		return hostchain.DialectStreamingBlock
	case tok.StdFlags.ICRC1 && !tok.StdFlags.ICRC2:
		return hostchain.DialectNativeCoin
	default:
		return hostchain.DialectLegacy
	}
}

// refundLeg implements the compensating-refund subroutine of §4.11: for a
// successfully-received inbound leg, attempt to send (amount - fee) back
// to the originating account; on failure, raise a Claim and continue.
func (e *Engine) refundLeg(ctx context.Context, requestID uint64, userID uint32, tok token.Token, amount math.Int, toAddress string) []uint64 {
	var claimIDs []uint64
	net := amount.Sub(math.NewIntFromUint64(tok.Fee))
	if net.IsNegative() || net.IsZero() {
		return claimIDs
	}

	switch tok.Chain() {
	case token.ChainHost:
		blockIdx, err := e.hostXfer.Transfer(ctx, tok.CanisterID, e.enginePrincipal, toAddress, net)
		if err != nil {
			id := e.claimsSt.Create(userID, tok.ID, net, toAddress)
			claimIDs = append(claimIDs, id)
			if e.metrics != nil {
				e.metrics.RefundsTotal.WithLabelValues("host", "failed").Inc()
			}
			return claimIDs
		}
		_, _ = e.ledger.Insert(requestID, false, net, tok.ID, ledger.HostBlockRef(blockIdx), time.Now())
		if e.metrics != nil {
			e.metrics.RefundsTotal.WithLabelValues("host", "success").Inc()
		}

	case token.ChainExt:
		raw, sig, err := e.extBuilder.BuildAndSign(ctx, mustSolanaPubkey(e.enginePayer), mustSolanaPubkey(toAddress), mustSolanaPubkey(tok.MintAddress), net.Uint64(), false, requestID)
		if err != nil {
			id := e.claimsSt.Create(userID, tok.ID, net, toAddress)
			claimIDs = append(claimIDs, id)
			if e.metrics != nil {
				e.metrics.RefundsTotal.WithLabelValues("ext", "failed").Inc()
			}
			return claimIDs
		}
		jobID := e.extQueue.Enqueue(requestID, toAddress, tok.MintAddress, net, raw, sig)
		_, _ = e.ledger.Insert(requestID, false, net, tok.ID, ledger.JobRef(jobID), time.Now())
		if e.metrics != nil {
			e.metrics.RefundsTotal.WithLabelValues("ext", "success").Inc()
		}
	}
	return claimIDs
}

// Payout exposes the outbound payout dispatcher to other components that
// settle funds outside the four mutating operations — the prediction-market
// finalizer's per-winner distribution, in particular — so the host/Ext
// dispatch and claim-on-failure policy stays defined in one place.
func (e *Engine) Payout(ctx context.Context, requestID uint64, userID uint32, tok token.Token, amount math.Int, toAddress string) (transferID uint64, claimIDs []uint64, jobID uint64) {
	return e.payout(ctx, requestID, userID, tok, amount, toAddress)
}

// payout implements §4.11 point 6 for one outbound leg.
func (e *Engine) payout(ctx context.Context, requestID uint64, userID uint32, tok token.Token, amount math.Int, toAddress string) (transferID uint64, claimIDs []uint64, jobID uint64) {
	switch tok.Chain() {
	case token.ChainHost:
		blockIdx, err := e.hostXfer.Transfer(ctx, tok.CanisterID, e.enginePrincipal, toAddress, amount)
		if err != nil {
			id := e.claimsSt.Create(userID, tok.ID, amount, toAddress)
			return 0, []uint64{id}, 0
		}
		tid, _ := e.ledger.Insert(requestID, false, amount, tok.ID, ledger.HostBlockRef(blockIdx), time.Now())
		return tid, nil, 0

	case token.ChainExt:
		raw, sig, err := e.extBuilder.BuildAndSign(ctx, mustSolanaPubkey(e.enginePayer), mustSolanaPubkey(toAddress), mustSolanaPubkey(tok.MintAddress), amount.Uint64(), false, requestID)
		if err != nil {
			id := e.claimsSt.Create(userID, tok.ID, amount, toAddress)
			return 0, []uint64{id}, 0
		}
		jid := e.extQueue.Enqueue(requestID, toAddress, tok.MintAddress, amount, raw, sig)
		tid, _ := e.ledger.Insert(requestID, false, amount, tok.ID, ledger.JobRef(jid), time.Now())
		return tid, nil, jid
	}
	return 0, nil, 0
}
