package pool

import "cosmossdk.io/errors"

const ModuleName = "pool"

var (
	ErrInvalidTokenPair      = errors.Register(ModuleName, 1, "invalid token pair")
	ErrPoolAlreadyExists     = errors.Register(ModuleName, 2, "pool already exists for token pair")
	ErrPoolNotFound          = errors.Register(ModuleName, 3, "pool not found")
	ErrInvalidFeeConfig      = errors.Register(ModuleName, 4, "operator_fee_bps must not exceed lp_fee_bps")
	ErrFeeBelowMinimum       = errors.Register(ModuleName, 5, "lp_fee_bps below required minimum for an Ext-chain pair")
	ErrInvalidAmount         = errors.Register(ModuleName, 6, "amount must be positive")
	ErrInsufficientLiquidity = errors.Register(ModuleName, 7, "insufficient liquidity")
	ErrInsufficientLPBalance = errors.Register(ModuleName, 8, "insufficient LP balance")
	ErrSlippageExceeded      = errors.Register(ModuleName, 9, "swap output below minimum receive")
	ErrDerivedAmountExceedsMax = errors.Register(ModuleName, 10, "derived counterside amount exceeds caller-supplied maximum")
	ErrInvariantViolation    = errors.Register(ModuleName, 11, "pool invariant violated")
	ErrWrongQuoteToken       = errors.Register(ModuleName, 12, "token_id_1 must be a canonical quote token")
)
