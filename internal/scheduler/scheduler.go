// Package scheduler implements the background schedulers (C14): the
// periodic claim pass, the request/transfer archivers, the disabled-token
// scan, and Ext-chain notification GC. Grounded on x/dex/keeper/flashloan.go
// and the teacher's general periodic-task idiom of a struct holding
// time.Tickers started from a single Run method, generalized from one
// ticker to several independently configured ones (spec.md §4.14).
package scheduler

import (
	"context"
	"time"

	"github.com/tidalswap/engine/internal/claims"
	"github.com/tidalswap/engine/internal/extchain"
	"github.com/tidalswap/engine/internal/ledger"
	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/orderbook"
	"github.com/tidalswap/engine/internal/request"
	"github.com/tidalswap/engine/internal/token"
)

// Config is the periodic-task interval configuration of §4.14, all
// independently tunable.
type Config struct {
	ClaimPassInterval        time.Duration
	RequestsArchiveInterval  time.Duration
	TransfersArchiveInterval time.Duration
	ArchiveCursorLag         uint64 // archive everything with id <= (current counter - lag)
	DisabledTokenScanPeriod  time.Duration
	NotificationGCInterval   time.Duration
	NotificationTTL          time.Duration
	OrderExpirySweepPeriod   time.Duration
	TWAPTickInterval         time.Duration
}

// DisabledTokenHandler is invoked for every token the catalogue scan finds
// flagged removed, so callers can react (e.g. halt routing to it).
type DisabledTokenHandler func(tok token.Token)

// Scheduler owns every background goroutine. Each task runs on its own
// time.Ticker so intervals are independently configurable, per §4.14.
type Scheduler struct {
	cfg Config

	claimProc   *claims.Processor
	requests    *request.Log
	transfers   *ledger.Ledger
	tokens      *token.Catalogue
	notifier    *extchain.NotificationStore
	orders      *orderbook.Manager
	twap        *orderbook.TWAPScheduler

	onDisabledToken DisabledTokenHandler
	logger          obs.Logger

	stop chan struct{}
}

func New(cfg Config, claimProc *claims.Processor, requests *request.Log, transfers *ledger.Ledger, tokens *token.Catalogue,
	notifier *extchain.NotificationStore, orders *orderbook.Manager, twap *orderbook.TWAPScheduler,
	onDisabledToken DisabledTokenHandler, logger obs.Logger) *Scheduler {
	return &Scheduler{
		cfg: cfg, claimProc: claimProc, requests: requests, transfers: transfers, tokens: tokens,
		notifier: notifier, orders: orders, twap: twap, onDisabledToken: onDisabledToken, logger: logger,
		stop: make(chan struct{}),
	}
}

// Run starts every periodic task on its own goroutine and blocks until ctx
// is cancelled or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	go s.loop(ctx, s.cfg.ClaimPassInterval, s.runClaimPass)
	go s.loop(ctx, s.cfg.RequestsArchiveInterval, s.runRequestsArchive)
	go s.loop(ctx, s.cfg.TransfersArchiveInterval, s.runTransfersArchive)
	go s.loop(ctx, s.cfg.DisabledTokenScanPeriod, s.runDisabledTokenScan)
	go s.loop(ctx, s.cfg.NotificationGCInterval, s.runNotificationGC)
	go s.loop(ctx, s.cfg.OrderExpirySweepPeriod, s.runOrderExpirySweep)
	go s.loop(ctx, s.cfg.TWAPTickInterval, s.runTWAPTick)
	select {
	case <-ctx.Done():
	case <-s.stop:
	}
}

// Stop halts every running loop without waiting for its next tick.
func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, task func(ctx context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			task(ctx)
		}
	}
}

func (s *Scheduler) runClaimPass(ctx context.Context) {
	s.claimProc.RunPass(ctx)
}

func (s *Scheduler) runRequestsArchive(ctx context.Context) {
	if s.cfg.ArchiveCursorLag == 0 {
		return
	}
	if c := s.requests.Counter(); c > s.cfg.ArchiveCursorLag {
		s.requests.ArchiveUpTo(c - s.cfg.ArchiveCursorLag)
	}
}

func (s *Scheduler) runTransfersArchive(ctx context.Context) {
	if s.cfg.ArchiveCursorLag == 0 {
		return
	}
	if c := s.transfers.Counter(); c > s.cfg.ArchiveCursorLag {
		s.transfers.ArchiveUpTo(c - s.cfg.ArchiveCursorLag)
	}
}

func (s *Scheduler) runDisabledTokenScan(ctx context.Context) {
	if s.onDisabledToken == nil {
		return
	}
	for _, tok := range s.tokens.AllRemoved() {
		s.onDisabledToken(tok)
	}
}

func (s *Scheduler) runNotificationGC(ctx context.Context) {
	s.notifier.GCOlderThan(time.Now(), s.cfg.NotificationTTL)
}

func (s *Scheduler) runOrderExpirySweep(ctx context.Context) {
	if s.orders == nil {
		return
	}
	s.orders.ExpireDue(time.Now())
}

func (s *Scheduler) runTWAPTick(ctx context.Context) {
	if s.twap == nil {
		return
	}
	s.twap.RunDue(ctx, time.Now(), nil)
}
