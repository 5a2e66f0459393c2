package pool

import (
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/token"
	"github.com/tidalswap/engine/pkg/natmath"
	"github.com/tidalswap/engine/pkg/registry"
)

// QuoteTokens pins the canonical quote side per chain (§3: token_id_1 must
// be one of these).
type QuoteTokens struct {
	HostQuoteTokenID uint32
	ExtQuoteTokenID  uint32
}

// TokenInfo is the subset of the token catalogue the pool registry needs:
// decimals for price normalization and whether a token is Ext-chain (to
// enforce the minimum LP fee floor on Ext pairs).
type TokenInfo struct {
	Decimals uint32
	IsExt    bool
}

// TokenLookup resolves TokenInfo by id, implemented by internal/token.
type TokenLookup func(id uint32) (TokenInfo, error)

// LPPosition is a (user_id, lp_token_id) -> amount row.
type LPPosition struct {
	UserID     uint32
	LPTokenID  uint32
	Amount     math.Int
	UpdatedTs  time.Time
}

// Registry is the keeper-equivalent for C4.
type Registry struct {
	mu sync.Mutex

	pools        *registry.Registry[Pool]
	byTokenPair  map[[2]uint32]uint32 // unordered pair -> pool id
	positions    map[string]LPPosition // "user:lpToken" -> position
	quotes       QuoteTokens
	lookupToken  TokenLookup
	logger       obs.Logger
}

func New(quotes QuoteTokens, lookupToken TokenLookup, logger obs.Logger) *Registry {
	return &Registry{
		pools:       registry.New[Pool](),
		byTokenPair: make(map[[2]uint32]uint32),
		positions:   make(map[string]LPPosition),
		quotes:      quotes,
		lookupToken: lookupToken,
		logger:      logger,
	}
}

func pairKey(a, b uint32) [2]uint32 {
	if a > b {
		a, b = b, a
	}
	return [2]uint32{a, b}
}

// Create creates a new pool, enforcing §4.4's creation invariants: no prior
// pool for the pair, distinct tokens, lp_fee_bps >= operator_fee_bps,
// token_id_1 is a pinned quote token, and (for Ext-chain pairs) lp_fee_bps
// of at least 100 bps. The floor is fixed in this function; config's
// ExtMinLPFeeBps is not read.
func (r *Registry) Create(token0, token1 uint32, lpFeeBps, operatorFeeBps uint32, lpTokenID uint32) (*Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token0 == token1 {
		return nil, ErrInvalidTokenPair.Wrap("token_id_0 == token_id_1")
	}
	if token1 != r.quotes.HostQuoteTokenID && token1 != r.quotes.ExtQuoteTokenID {
		return nil, ErrWrongQuoteToken
	}
	if operatorFeeBps > lpFeeBps {
		return nil, ErrInvalidFeeConfig
	}

	key := pairKey(token0, token1)
	if _, exists := r.byTokenPair[key]; exists {
		return nil, ErrPoolAlreadyExists.Wrapf("pair %v", key)
	}

	info0, err := r.lookupToken(token0)
	if err != nil {
		return nil, err
	}
	info1, err := r.lookupToken(token1)
	if err != nil {
		return nil, err
	}
	if info0.IsExt || info1.IsExt {
		if lpFeeBps < 100 {
			return nil, ErrFeeBelowMinimum.Wrapf("got %d, need >= 100", lpFeeBps)
		}
	}
	_ = info0
	_ = info1

	id := r.pools.Insert(func(poolID uint64) Pool {
		return Pool{
			ID:             uint32(poolID),
			TokenID0:       token0,
			TokenID1:       token1,
			Balance0:       math.ZeroInt(),
			Balance1:       math.ZeroInt(),
			LPFee0:         math.ZeroInt(),
			LPFee1:         math.ZeroInt(),
			OperatorFee0:   math.ZeroInt(),
			OperatorFee1:   math.ZeroInt(),
			LPFeeBps:       lpFeeBps,
			OperatorFeeBps: operatorFeeBps,
			LPTokenID:      lpTokenID,
		}
	})
	r.byTokenPair[key] = uint32(id)
	p, _ := r.pools.Get(id)
	r.logger.Info("pool created", "pool_id", p.ID, "token_0", token0, "token_1", token1)
	return &p, nil
}

// Get returns the pool by id.
func (r *Registry) Get(id uint32) (Pool, error) {
	p, err := r.pools.Get(uint64(id))
	if err != nil {
		return Pool{}, ErrPoolNotFound.Wrapf("pool %d", id)
	}
	return p, nil
}

// All returns every active pool in insertion order, for callers (the
// orderbook's synthetic-path graph) that need the full pair graph rather
// than a single lookup.
func (r *Registry) All() []Pool {
	var out []Pool
	r.pools.Iter(func(_ uint64, p Pool) bool {
		out = append(out, p)
		return true
	})
	return out
}

// GetByTokens returns the pool for the unordered pair (token0, token1).
func (r *Registry) GetByTokens(token0, token1 uint32) (Pool, error) {
	r.mu.Lock()
	id, ok := r.byTokenPair[pairKey(token0, token1)]
	r.mu.Unlock()
	if !ok {
		return Pool{}, ErrPoolNotFound.Wrapf("no pool for pair (%d,%d)", token0, token1)
	}
	return r.Get(id)
}

func (r *Registry) save(p Pool) error {
	if err := r.pools.Update(uint64(p.ID), p); err != nil {
		return err
	}
	return nil
}

// SwapResult captures every quantity the engine needs to post-process a
// swap (fee split for accounting, and the new k for invariant assertions).
type SwapResult struct {
	AmountOut     math.Int
	LPFeeOut      math.Int
	OperatorFeeOut math.Int
	KPre          math.Int
	KPost         math.Int
}

// Swap executes one leg of §4.4's swap math:
//
//	Δy_gross = (balance_y * Δx) / (balance_x + Δx)
//	lp_fee_y = Δy_gross * lp_fee_bps / 10000
//	operator_fee_y = lp_fee_y * operator_fee_bps / lp_fee_bps
//	user receives Δy_gross - lp_fee_y
//
// tokenIn/tokenOut must be the pool's token_id_0/token_id_1 in either order.
func (r *Registry) Swap(poolID, tokenIn, tokenOut uint32, amountIn math.Int) (SwapResult, error) {
	if amountIn.IsZero() || amountIn.IsNegative() {
		return SwapResult{}, ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.pools.Get(uint64(poolID))
	if err != nil {
		return SwapResult{}, ErrPoolNotFound.Wrapf("pool %d", poolID)
	}

	var balanceX, balanceY math.Int
	var xIsToken0 bool
	switch {
	case tokenIn == p.TokenID0 && tokenOut == p.TokenID1:
		balanceX, balanceY = p.Balance0, p.Balance1
		xIsToken0 = true
	case tokenIn == p.TokenID1 && tokenOut == p.TokenID0:
		balanceX, balanceY = p.Balance1, p.Balance0
		xIsToken0 = false
	default:
		return SwapResult{}, ErrInvalidTokenPair.Wrapf("pool %d does not trade %d->%d", poolID, tokenIn, tokenOut)
	}
	if balanceX.IsZero() || balanceY.IsZero() {
		return SwapResult{}, ErrInsufficientLiquidity
	}

	kPre := p.K()

	grossOut := natmath.MulDiv(balanceY, amountIn, natmath.Add(balanceX, amountIn))
	if grossOut.IsZero() {
		return SwapResult{}, ErrInsufficientLiquidity.Wrap("output rounds to zero")
	}
	if grossOut.GTE(balanceY) {
		return SwapResult{}, ErrInsufficientLiquidity.Wrap("output would exceed reserve")
	}

	lpFeeBps := math.NewInt(int64(p.LPFeeBps))
	lpFeeY := natmath.MulDiv(grossOut, lpFeeBps, math.NewInt(10000))
	var operatorFeeY math.Int
	if p.LPFeeBps == 0 {
		operatorFeeY = math.ZeroInt()
	} else {
		operatorFeeBps := math.NewInt(int64(p.OperatorFeeBps))
		operatorFeeY = natmath.MulDiv(lpFeeY, operatorFeeBps, lpFeeBps)
	}
	netOut := natmath.Sub(grossOut, lpFeeY)

	if xIsToken0 {
		p.Balance0 = natmath.Add(p.Balance0, amountIn)
		p.Balance1 = natmath.Sub(p.Balance1, grossOut)
		p.LPFee1 = natmath.Add(p.LPFee1, natmath.Sub(lpFeeY, operatorFeeY))
		p.OperatorFee1 = natmath.Add(p.OperatorFee1, operatorFeeY)
	} else {
		p.Balance1 = natmath.Add(p.Balance1, amountIn)
		p.Balance0 = natmath.Sub(p.Balance0, grossOut)
		p.LPFee0 = natmath.Add(p.LPFee0, natmath.Sub(lpFeeY, operatorFeeY))
		p.OperatorFee0 = natmath.Add(p.OperatorFee0, operatorFeeY)
	}

	kPost := p.K()
	if kPost.LT(kPre) {
		return SwapResult{}, ErrInvariantViolation.Wrapf("k decreased: %s -> %s", kPre, kPost)
	}

	if err := r.save(p); err != nil {
		return SwapResult{}, err
	}

	return SwapResult{
		AmountOut:      netOut,
		LPFeeOut:       lpFeeY,
		OperatorFeeOut: operatorFeeY,
		KPre:           kPre,
		KPost:          kPost,
	}, nil
}

// QuoteSwap computes the same output as Swap without mutating state, used
// for slippage checks and the swap_amounts query.
func (r *Registry) QuoteSwap(poolID, tokenIn, tokenOut uint32, amountIn math.Int) (math.Int, error) {
	r.mu.Lock()
	p, err := r.pools.Get(uint64(poolID))
	r.mu.Unlock()
	if err != nil {
		return math.Int{}, ErrPoolNotFound.Wrapf("pool %d", poolID)
	}

	var balanceX, balanceY math.Int
	switch {
	case tokenIn == p.TokenID0 && tokenOut == p.TokenID1:
		balanceX, balanceY = p.Balance0, p.Balance1
	case tokenIn == p.TokenID1 && tokenOut == p.TokenID0:
		balanceX, balanceY = p.Balance1, p.Balance0
	default:
		return math.Int{}, ErrInvalidTokenPair
	}
	if balanceX.IsZero() || balanceY.IsZero() || amountIn.IsZero() {
		return math.Int{}, ErrInsufficientLiquidity
	}
	grossOut := natmath.MulDiv(balanceY, amountIn, natmath.Add(balanceX, amountIn))
	lpFeeY := natmath.MulDiv(grossOut, math.NewInt(int64(p.LPFeeBps)), math.NewInt(10000))
	return natmath.Sub(grossOut, lpFeeY), nil
}

// InitialAddLiquidity performs the pool's first deposit: both amounts are
// renormalized to LP_DECIMALS and the mint is floor(sqrt(amount0*amount1)).
func (r *Registry) InitialAddLiquidity(poolID, userID uint32, amount0, amount1 math.Int, decimals0, decimals1 uint32) (mint math.Int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.pools.Get(uint64(poolID))
	if err != nil {
		return math.Int{}, ErrPoolNotFound
	}
	if !p.Balance0.IsZero() || !p.Balance1.IsZero() {
		return math.Int{}, ErrPoolAlreadyExists.Wrap("pool already seeded")
	}
	if amount0.IsZero() || amount1.IsZero() {
		return math.Int{}, ErrInvalidAmount
	}

	norm0 := natmath.ToDecimalPrecision(amount0, decimals0, token.LPDecimals)
	norm1 := natmath.ToDecimalPrecision(amount1, decimals1, token.LPDecimals)
	mint = natmath.Sqrt(norm0.Mul(norm1))

	p.Balance0 = amount0
	p.Balance1 = amount1
	if err := r.save(p); err != nil {
		return math.Int{}, err
	}

	r.creditLP(userID, p.LPTokenID, mint)
	return mint, nil
}

// AddLiquidity performs a subsequent, proportional deposit: the caller
// supplies amount0; amount1 is derived to preserve the pool ratio and must
// not exceed maxAmount1.
func (r *Registry) AddLiquidity(poolID, userID uint32, amount0, maxAmount1 math.Int) (amount1, mint math.Int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.pools.Get(uint64(poolID))
	if err != nil {
		return math.Int{}, math.Int{}, ErrPoolNotFound
	}
	if amount0.IsZero() {
		return math.Int{}, math.Int{}, ErrInvalidAmount
	}
	if p.Balance0.IsZero() {
		return math.Int{}, math.Int{}, ErrInsufficientLiquidity.Wrap("pool not yet seeded")
	}

	amount1 = natmath.MulDiv(amount0, p.Balance1, p.Balance0)
	if amount1.GT(maxAmount1) {
		return math.Int{}, math.Int{}, ErrDerivedAmountExceedsMax.Wrapf("need %s, max %s", amount1, maxAmount1)
	}

	totalShares := r.totalLPSupply(p.LPTokenID)
	if totalShares.IsZero() {
		return math.Int{}, math.Int{}, ErrInsufficientLiquidity.Wrap("zero LP supply")
	}
	mint = natmath.MulDiv(totalShares, amount0, p.Balance0)

	p.Balance0 = natmath.Add(p.Balance0, amount0)
	p.Balance1 = natmath.Add(p.Balance1, amount1)
	if err := r.save(p); err != nil {
		return math.Int{}, math.Int{}, err
	}

	r.creditLP(userID, p.LPTokenID, mint)
	return amount1, mint, nil
}

// RemoveResult carries both the base payouts and the accumulated-fee share
// released by a burn. Payout0/Payout1 are the combined totals (base +
// fee share); FeeShare0/FeeShare1 break out the fee-share component alone
// so callers that need to deduct a cost proportionally across both (e.g.
// the engine's Ext-gas allowance split) can do so.
type RemoveResult struct {
	Payout0   math.Int
	FeeShare0 math.Int
	Payout1   math.Int
	FeeShare1 math.Int
}

// RemoveLiquidity burns `burn` LP tokens, paying out a proportional share of
// reserves plus accumulated LP fees (§4.4). Callers are responsible for
// calling BurnLP first (engine performs the burn-before-payout ordering
// required by §4.11's remove-liquidity rollback rule) and for calling
// RestoreLP to roll back if a downstream payout cannot be completed.
func (r *Registry) RemoveLiquidity(poolID uint32, burn, totalSupplyBeforeBurn math.Int) (RemoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.pools.Get(uint64(poolID))
	if err != nil {
		return RemoveResult{}, ErrPoolNotFound
	}
	if totalSupplyBeforeBurn.IsZero() {
		return RemoveResult{}, ErrInsufficientLPBalance
	}

	payout0 := natmath.MulDiv(p.Balance0, burn, totalSupplyBeforeBurn)
	payout1 := natmath.MulDiv(p.Balance1, burn, totalSupplyBeforeBurn)
	feeShare0 := natmath.MulDiv(p.LPFee0, burn, totalSupplyBeforeBurn)
	feeShare1 := natmath.MulDiv(p.LPFee1, burn, totalSupplyBeforeBurn)

	p.Balance0 = natmath.Sub(p.Balance0, payout0)
	p.Balance1 = natmath.Sub(p.Balance1, payout1)
	p.LPFee0 = natmath.Sub(p.LPFee0, feeShare0)
	p.LPFee1 = natmath.Sub(p.LPFee1, feeShare1)

	if err := r.save(p); err != nil {
		return RemoveResult{}, err
	}

	return RemoveResult{
		Payout0:   natmath.Add(payout0, feeShare0),
		FeeShare0: feeShare0,
		Payout1:   natmath.Add(payout1, feeShare1),
		FeeShare1: feeShare1,
	}, nil
}

func (r *Registry) positionKey(userID, lpTokenID uint32) string {
	return fmt.Sprintf("%d:%d", userID, lpTokenID)
}

func (r *Registry) creditLP(userID, lpTokenID uint32, amount math.Int) {
	key := r.positionKey(userID, lpTokenID)
	pos := r.positions[key]
	pos.UserID, pos.LPTokenID = userID, lpTokenID
	if pos.Amount.IsNil() {
		pos.Amount = math.ZeroInt()
	}
	pos.Amount = pos.Amount.Add(amount)
	pos.UpdatedTs = time.Now()
	r.positions[key] = pos
}

// BurnLP debits a user's LP position. Fails with ErrInsufficientLPBalance if
// the user does not hold enough.
func (r *Registry) BurnLP(userID, lpTokenID uint32, amount math.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := r.positionKey(userID, lpTokenID)
	pos, ok := r.positions[key]
	if !ok || pos.Amount.LT(amount) {
		return ErrInsufficientLPBalance
	}
	pos.Amount = pos.Amount.Sub(amount)
	pos.UpdatedTs = time.Now()
	r.positions[key] = pos
	return nil
}

// RestoreLP re-credits a burn that could not be completed downstream — the
// inverse operation used by §4.11's remove-liquidity rollback.
func (r *Registry) RestoreLP(userID, lpTokenID uint32, amount math.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creditLP(userID, lpTokenID, amount)
}

// LPBalance returns a user's current LP holding.
func (r *Registry) LPBalance(userID, lpTokenID uint32) math.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.positions[r.positionKey(userID, lpTokenID)]
	if !ok {
		return math.ZeroInt()
	}
	return pos.Amount
}

func (r *Registry) totalLPSupply(lpTokenID uint32) math.Int {
	total := math.ZeroInt()
	for _, pos := range r.positions {
		if pos.LPTokenID == lpTokenID {
			total = total.Add(pos.Amount)
		}
	}
	return total
}

// TotalLPSupply is the exported, locking form of totalLPSupply.
func (r *Registry) TotalLPSupply(lpTokenID uint32) math.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalLPSupply(lpTokenID)
}
