package prediction

import (
	"context"
	stdmath "math"
	"strconv"

	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/engine"
	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/request"
	"github.com/tidalswap/engine/internal/token"
	"github.com/tidalswap/engine/pkg/natmath"
)

// Mode selects the payout algorithm.
type Mode int

const (
	ModeStandard Mode = iota
	ModeTimeWeighted
)

// DefaultAlpha is the time-weighting decay base (§4.13): weight = α^(t/T).
var DefaultAlpha = math.LegacyNewDecWithPrec(1, 1) // 0.1

// Finalizer distributes a resolved market's pool to its winners. It uses
// the engine's outbound Payout dispatcher for each winner so retry
// classification, Claim creation on failure, and host/Ext dispatch are the
// same code every other outbound leg in this repository goes through.
type Finalizer struct {
	tokens  *token.Catalogue
	eng     *engine.Engine
	req     *request.Log
	metrics *obs.Metrics
}

func NewFinalizer(tokens *token.Catalogue, eng *engine.Engine, req *request.Log, metrics *obs.Metrics) *Finalizer {
	return &Finalizer{tokens: tokens, eng: eng, req: req, metrics: metrics}
}

// Finalize distributes m's pool among its winning bets under mode and
// returns one PayoutOutcome per winner, in the same order as m.WinningBets.
// Per §4.13, the platform fee is a percentage of total_profit — the losing
// stake, i.e. total_pool minus the winning pool — not of the pool as a
// whole (finalize_market.rs's total_profit/platform_fee_amount); it is
// then reserved out of the total pool, and a flat per-payout transfer fee
// is reserved from what remains before either payout formula runs.
func (f *Finalizer) Finalize(ctx context.Context, userIDForRequest uint32, m Market, mode Mode) ([]PayoutOutcome, error) {
	tok, err := f.tokens.Get(m.TokenID)
	if err != nil {
		return nil, err
	}
	requestID := f.req.Start(userIDForRequest, request.OpFinalizeMarket, m)

	totalWinningPool := totalBets(m.WinningBets)
	totalProfit := natmath.Sub(m.TotalPool, totalWinningPool)
	platformFee := natmath.MulDiv(totalProfit, math.NewInt(int64(tok.PlatformFeeBps)), math.NewInt(10000))
	afterPlatformFee := natmath.Sub(m.TotalPool, platformFee)

	numWinners := len(m.WinningBets)
	transferFeeReserve := math.NewIntFromUint64(tok.Fee).MulRaw(int64(numWinners))
	distributable := natmath.Sub(afterPlatformFee, transferFeeReserve)
	distributableProfit := natmath.Sub(natmath.Sub(totalProfit, platformFee), transferFeeReserve)

	var outcomes []PayoutOutcome
	switch mode {
	case ModeStandard:
		outcomes = f.payoutStandard(ctx, requestID, tok, m, distributable)
	case ModeTimeWeighted:
		outcomes = f.payoutTimeWeighted(ctx, requestID, tok, m, distributableProfit, distributable)
	}

	_ = f.req.AppendStatus(requestID, request.StatusSuccess, "")
	_ = f.req.SetReply(requestID, request.Reply{Ok: true})
	return outcomes, nil
}

func totalBets(bets []Bet) math.Int {
	total := math.ZeroInt()
	for _, b := range bets {
		total = total.Add(b.Amount)
	}
	return total
}

// payoutStandard implements §4.13's standard mode: payout_i proportional to
// bet_i over the total winning stake.
func (f *Finalizer) payoutStandard(ctx context.Context, requestID uint64, tok token.Token, m Market, distributable math.Int) []PayoutOutcome {
	total := totalBets(m.WinningBets)
	outcomes := make([]PayoutOutcome, 0, len(m.WinningBets))
	if total.IsZero() {
		return outcomes
	}
	for _, bet := range m.WinningBets {
		amount := natmath.MulDiv(distributable, bet.Amount, total)
		outcomes = append(outcomes, f.pay(ctx, requestID, tok, bet, amount))
	}
	return outcomes
}

// payoutTimeWeighted implements §4.13's time-weighted mode: each winner's
// guaranteed return is its own bet, and a bonus pool — seeded from
// distributable_profit (the losing stake net of fees, not the whole pool)
// — is split by decay-weighted stake. The total of guaranteed returns plus
// bonus pool is clamped to the pool-derived max_distribution ceiling
// unconditionally (finalize_market.rs computes max_distribution from the
// pool regardless of any caller-supplied cap); an optional tighter cap on
// the market itself narrows that ceiling further.
func (f *Finalizer) payoutTimeWeighted(ctx context.Context, requestID uint64, tok token.Token, m Market, distributableProfit, maxDistribution math.Int) []PayoutOutcome {
	total := totalBets(m.WinningBets)
	outcomes := make([]PayoutOutcome, 0, len(m.WinningBets))
	if total.IsZero() {
		return outcomes
	}

	weights := make([]math.LegacyDec, len(m.WinningBets))
	sumWeighted := math.LegacyZeroDec()
	for i, bet := range m.WinningBets {
		w := weightFor(bet, m)
		weights[i] = w
		sumWeighted = sumWeighted.Add(w.MulInt(bet.Amount))
	}

	ceiling := maxDistribution
	if !m.MaxDistribution.IsZero() && m.MaxDistribution.LT(ceiling) {
		ceiling = m.MaxDistribution
	}

	bonusPool := distributableProfit
	if total.Add(bonusPool).GT(ceiling) {
		// Scale bonus_pool down proportionally rather than truncating
		// any individual winner unevenly (SPEC_FULL.md §4.13).
		bonusPool = natmath.Sub(ceiling, total)
	}

	for i, bet := range m.WinningBets {
		bonusShare := math.ZeroInt()
		if !sumWeighted.IsZero() {
			weighted := weights[i].MulInt(bet.Amount)
			bonusShare = weighted.Quo(sumWeighted).MulInt(bonusPool).TruncateInt()
		}
		amount := bet.Amount.Add(bonusShare)
		outcomes = append(outcomes, f.pay(ctx, requestID, tok, bet, amount))
	}
	return outcomes
}

// weightFor computes α^(t/T) for one bet, where t is elapsed time from
// market creation to bet placement and T is the market duration.
func weightFor(bet Bet, m Market) math.LegacyDec {
	if m.Duration <= 0 {
		return math.LegacyOneDec()
	}
	elapsed := bet.PlacedTs.Sub(m.CreatedTs)
	if elapsed <= 0 {
		return math.LegacyOneDec()
	}
	ratio := float64(elapsed) / float64(m.Duration)
	if ratio > 1 {
		ratio = 1
	}
	return decPow(DefaultAlpha, ratio)
}

// decPow computes base^exp for exp in [0,1]. cosmossdk.io/math has no
// native transcendental pow, and the decay curve is inherently an
// approximation (not a money-path integer computation), so this borrows
// the standard library's float64 Pow rather than hand-rolling a
// fixed-point exponential series.
func decPow(base math.LegacyDec, exp float64) math.LegacyDec {
	b, err := base.Float64()
	if err != nil || b <= 0 {
		return math.LegacyZeroDec()
	}
	result := stdmath.Pow(b, exp)
	d, err := math.LegacyNewDecFromStr(strconv.FormatFloat(result, 'f', 18, 64))
	if err != nil {
		return math.LegacyZeroDec()
	}
	return d
}

// pay dispatches one winner's payout via the engine's shared Payout path
// (per-winner retry classification: a failed send raises a Claim, via C10,
// rather than halting the loop, so one winner's failure never blocks the
// rest — §4.13 point 5).
func (f *Finalizer) pay(ctx context.Context, requestID uint64, tok token.Token, bet Bet, amount math.Int) PayoutOutcome {
	transferID, claimIDs, _ := f.eng.Payout(ctx, requestID, bet.UserID, tok, amount, bet.ReceiveAddress)
	if f.metrics != nil {
		outcome := "success"
		if len(claimIDs) > 0 {
			outcome = "failed"
		}
		f.metrics.PredictionPayouts.WithLabelValues(outcome).Inc()
	}
	out := PayoutOutcome{UserID: bet.UserID, Amount: amount, TransferID: transferID}
	if len(claimIDs) > 0 {
		out.ClaimID = claimIDs[0]
	}
	return out
}
