package main

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/tidalswap/engine/internal/claims"
	"github.com/tidalswap/engine/internal/config"
	"github.com/tidalswap/engine/internal/engine"
	"github.com/tidalswap/engine/internal/extchain"
	"github.com/tidalswap/engine/internal/hostchain"
	"github.com/tidalswap/engine/internal/ledger"
	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/orderbook"
	"github.com/tidalswap/engine/internal/pool"
	"github.com/tidalswap/engine/internal/prediction"
	"github.com/tidalswap/engine/internal/request"
	"github.com/tidalswap/engine/internal/scheduler"
	"github.com/tidalswap/engine/internal/token"
)

// App bundles every wired component a subcommand might need.
type App struct {
	Cfg       config.Config
	Logger    obs.Logger
	Metrics   *obs.Metrics
	Tokens    *token.Catalogue
	Pools     *pool.Registry
	Ledger    *ledger.Ledger
	Requests  *request.Log
	Claims    *claims.Store
	ClaimProc *claims.Processor
	Engine    *engine.Engine
	Orders    *orderbook.Manager
	TWAP      *orderbook.TWAPScheduler
	Finalizer *prediction.Finalizer
	Scheduler *scheduler.Scheduler
}

// unimplementedHostLedger and unimplementedHostTransferer stand in for the
// real ICRC ledger RPC client. Talking to an actual Host/Ext chain node is
// the host canister's job, not this engine's (spec.md §1's "no canister
// plumbing" non-goal) — these satisfy the interfaces so the CLI still
// compiles and runs end-to-end locally against in-memory state.
type unimplementedHostLedger struct{}

func (unimplementedHostLedger) FetchMetadata(ctx context.Context, canisterID string) (string, uint32, uint64, token.StdFlags, error) {
	return "", 0, 0, token.StdFlags{}, fmt.Errorf("host ledger RPC client not wired in this build")
}

func (unimplementedHostLedger) GetBlock(ctx context.Context, canisterID string, blockIndex math.Int) (hostchain.ObservedTransfer, string, error) {
	return hostchain.ObservedTransfer{}, "", fmt.Errorf("host ledger RPC client not wired in this build")
}

func (unimplementedHostLedger) QueryBlocks(ctx context.Context, canisterID string, blockIndex math.Int) (hostchain.ObservedTransfer, error) {
	return hostchain.ObservedTransfer{}, fmt.Errorf("host ledger RPC client not wired in this build")
}

func (unimplementedHostLedger) GetTransactions(ctx context.Context, canisterID string, blockIndex math.Int) (hostchain.ObservedTransfer, error) {
	return hostchain.ObservedTransfer{}, fmt.Errorf("host ledger RPC client not wired in this build")
}

type unimplementedHostTransferer struct{}

func (unimplementedHostTransferer) Transfer(ctx context.Context, canisterID, from, to string, amount math.Int) (math.Int, error) {
	return math.Int{}, fmt.Errorf("host ledger RPC client not wired in this build")
}

func (unimplementedHostTransferer) TransferFrom(ctx context.Context, canisterID, from, to string, amount math.Int) (math.Int, error) {
	return math.Int{}, fmt.Errorf("host ledger RPC client not wired in this build")
}

func unimplementedRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{}, fmt.Errorf("Ext recent-blockhash RPC client not wired in this build")
}

// buildApp wires every component from config, the way the teacher's app.go
// wires keepers off its module manager. RPC-backed dependencies (the Host
// ledger client, the Ext recent-blockhash lookup, and the production
// threshold signing group) are left as documented unimplemented stand-ins:
// supplying real ones is an operational/deployment concern outside this
// engine's own logic, not something this CLI can discover on its own.
func buildApp(v *viper.Viper) (*App, error) {
	cfg := config.Load(v)
	logger := obs.NewLogger()
	metrics := obs.NewMetrics()

	hostLedger := unimplementedHostLedger{}
	tokens := token.New(hostLedger, "relayer-principal", logger)

	pools := pool.New(pool.QuoteTokens{}, func(id uint32) (pool.TokenInfo, error) {
		t, err := tokens.Get(id)
		if err != nil {
			return pool.TokenInfo{}, err
		}
		return pool.TokenInfo{Decimals: t.Decimals, IsExt: t.Chain() == token.ChainExt}, nil
	}, logger)

	led := ledger.New(logger)
	requests := request.New(logger)
	claimsStore := claims.New(logger)

	hostVerifier := hostchain.New(hostLedger, "engine-principal", time.Duration(cfg.TransferExpiryNanosecs))
	extNotifier := extchain.NewNotificationStore()
	extVerifier := extchain.NewVerifier(extNotifier, cfg.ExtVerifyFreshnessWindow)

	signer := extchain.SelectSigner(cfg.Environment, "engine-principal", extchain.NewThresholdSigner(nil))
	extBuilder := extchain.NewBuilder(signer, "m/44'/501'/0'/0'", unimplementedRecentBlockhash)
	extQueue := extchain.NewQueue(logger, metrics)

	eng := engine.New(engine.Deps{
		Cfg: cfg, Logger: logger, Metrics: metrics,
		Tokens: tokens, Pools: pools, Ledger: led, Requests: requests, Claims: claimsStore,
		HostVerifier: hostVerifier, HostXfer: unimplementedHostTransferer{},
		ExtVerifier: extVerifier, ExtBuilder: extBuilder, ExtQueue: extQueue, ExtNotifier: extNotifier,
		EnginePrincipal: "engine-principal", EnginePayer: "engine-payer",
	})

	claimProc := claims.NewProcessor(claimsStore, func(ctx context.Context, c claims.Claim) (uint64, uint64, bool) {
		tok, err := tokens.Get(c.TokenID)
		if err != nil {
			return 0, 0, false
		}
		requestID := requests.Start(c.UserID, request.OpClaim, c)
		transferID, claimIDs, _ := eng.Payout(ctx, requestID, c.UserID, tok, c.Amount, c.ToAddress)
		return requestID, transferID, len(claimIDs) == 0
	}, func(tokenID uint32) bool {
		t, err := tokens.Get(tokenID)
		return err == nil && t.IsRemoved
	}, metrics, logger,
		cfg.ClaimTooManyAttempts, cfg.ClaimTooManyAttemptsRemoved, cfg.ClaimBackoffThreshold, cfg.ClaimBackoffDuration, cfg.ClaimMaxConsecutiveFailures)

	orders := orderbook.NewManager(cfg.OrderbookMaxHops, pools, eng, claimsStore, logger, metrics)
	twap := orderbook.NewTWAPScheduler(eng, metrics)
	finalizer := prediction.NewFinalizer(tokens, eng, requests, metrics)

	sched := scheduler.New(scheduler.Config{
		ClaimPassInterval:        time.Duration(cfg.ClaimsIntervalSecs) * time.Second,
		RequestsArchiveInterval:  time.Duration(cfg.RequestsArchiveIntervalSecs) * time.Second,
		TransfersArchiveInterval: time.Duration(cfg.TransfersArchiveIntervalSecs) * time.Second,
		ArchiveCursorLag:         cfg.ArchiveCursorLag,
		DisabledTokenScanPeriod:  cfg.DisabledTokenScanPeriod,
		NotificationGCInterval:   cfg.DisabledTokenScanPeriod,
		NotificationTTL:          cfg.ExtNotificationTTL,
		OrderExpirySweepPeriod:   cfg.OrderExpirySweepPeriod,
		TWAPTickInterval:         cfg.TWAPTickInterval,
	}, claimProc, requests, led, tokens, extNotifier, orders, twap, nil, logger)

	return &App{
		Cfg: cfg, Logger: logger, Metrics: metrics, Tokens: tokens, Pools: pools, Ledger: led,
		Requests: requests, Claims: claimsStore, ClaimProc: claimProc, Engine: eng,
		Orders: orders, TWAP: twap, Finalizer: finalizer, Scheduler: sched,
	}, nil
}
