// Package request implements the request log and status machine (C6): an
// append-only per-request status trail with at-most-once reply, the
// engine's audit trail for async polling and archival. Grounded on
// x/dex/types/events.go's event-vocabulary idiom, generalized from
// one-shot events into an ordered per-request log.
package request

import "time"

// Op identifies which external operation a Request represents.
type Op string

const (
	OpSwap            Op = "swap"
	OpAddLiquidity    Op = "add_liquidity"
	OpRemoveLiquidity Op = "remove_liquidity"
	OpAddPool         Op = "add_pool"
	OpClaim           Op = "claim"
	OpFinalizeMarket  Op = "finalize_market"
	OpPlaceOrder      Op = "place_order"
)

// StatusCode is the fixed, large enum of §3. Per SPEC_FULL.md/§9 these are
// telemetry/trace markers only — control flow is driven by Go's error
// returns, never by switching on StatusCode.
type StatusCode string

const (
	StatusStart                    StatusCode = "Start"
	StatusVerifyToken0              StatusCode = "VerifyToken0"
	StatusVerifyToken0Success        StatusCode = "VerifyToken0Success"
	StatusVerifyToken0Failed         StatusCode = "VerifyToken0Failed"
	StatusVerifyToken1              StatusCode = "VerifyToken1"
	StatusVerifyToken1Success        StatusCode = "VerifyToken1Success"
	StatusVerifyToken1Failed         StatusCode = "VerifyToken1Failed"
	StatusSendToken0Success          StatusCode = "SendToken0Success"
	StatusSendToken0Failed           StatusCode = "SendToken0Failed"
	StatusSendToken1Success          StatusCode = "SendToken1Success"
	StatusSendToken1Failed           StatusCode = "SendToken1Failed"
	StatusPoolNotFound               StatusCode = "PoolNotFound"
	StatusUpdatePoolAmountsSuccess    StatusCode = "UpdatePoolAmountsSuccess"
	StatusUpdatePoolAmountsFailed     StatusCode = "UpdatePoolAmountsFailed"
	StatusReturnToken0Success         StatusCode = "ReturnToken0Success"
	StatusReturnToken0Failed          StatusCode = "ReturnToken0Failed"
	StatusReturnToken1Success         StatusCode = "ReturnToken1Success"
	StatusReturnToken1Failed          StatusCode = "ReturnToken1Failed"
	StatusMintLPSuccess               StatusCode = "MintLPSuccess"
	StatusBurnLPSuccess               StatusCode = "BurnLPSuccess"
	StatusClaimCreated                StatusCode = "ClaimCreated"
	StatusSwapSuccess                 StatusCode = "SwapSuccess"
	StatusSuccess                     StatusCode = "Success"
	StatusFailed                      StatusCode = "Failed"
)

// IsTerminal reports whether code ends a Request's status trail.
func (c StatusCode) IsTerminal() bool {
	return c == StatusSuccess || c == StatusFailed
}

// StatusEntry is one line in a Request's append-only status trail.
type StatusEntry struct {
	Code    StatusCode
	Message string
	Ts      time.Time
}

// Reply is the engine's typed, at-most-once outcome attached to a Request.
// Exactly one of Success/Failure fields is meaningful, discriminated by Ok.
type Reply struct {
	Ok bool

	TransferIDs []uint64
	ClaimIDs    []uint64
	JobIDs      []uint64

	AmountOut   string
	Message     string
}

// Request is the per-operation audit log of §3.
type Request struct {
	ID       uint64
	UserID   uint32
	Op       Op
	Args     any
	Statuses []StatusEntry
	Reply    *Reply
	Ts       time.Time
}
