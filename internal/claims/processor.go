package claims

import (
	"context"
	"time"

	"github.com/tidalswap/engine/internal/obs"
)

// AttemptFunc performs one outbound-transfer attempt for a claim and reports
// the request id it logged the attempt under, the resulting transfer id on
// success, and whether it succeeded.
type AttemptFunc func(ctx context.Context, c Claim) (requestID uint64, transferID uint64, ok bool)

// TokenRemovedFunc reports whether a claim's token is currently removed,
// since removed tokens get a tighter attempt budget (§4.10).
type TokenRemovedFunc func(tokenID uint32) bool

// Processor drives the periodic claim pass of §4.10/§4.14.
type Processor struct {
	store            *Store
	attempt          AttemptFunc
	tokenRemoved     TokenRemovedFunc
	metrics          *obs.Metrics
	logger           obs.Logger

	tooManyAttempts         int
	tooManyAttemptsRemoved  int
	backoffThreshold        int
	backoffDuration         time.Duration
	maxConsecutiveFailures  int
}

// NewProcessor constructs a Processor with the attempt-budget policy of
// spec.md §4.10's configuration.
func NewProcessor(store *Store, attempt AttemptFunc, tokenRemoved TokenRemovedFunc, metrics *obs.Metrics, logger obs.Logger,
	tooManyAttempts, tooManyAttemptsRemoved, backoffThreshold int, backoffDuration time.Duration, maxConsecutiveFailures int) *Processor {
	return &Processor{
		store:                  store,
		attempt:                attempt,
		tokenRemoved:           tokenRemoved,
		metrics:                metrics,
		logger:                 logger,
		tooManyAttempts:        tooManyAttempts,
		tooManyAttemptsRemoved: tooManyAttemptsRemoved,
		backoffThreshold:       backoffThreshold,
		backoffDuration:        backoffDuration,
		maxConsecutiveFailures: maxConsecutiveFailures,
	}
}

// RunPass scans pickable claims in reverse-insertion order and processes
// them, stopping early if it observes more than maxConsecutiveFailures
// consecutive failures (§4.10: "stop the pass").
func (p *Processor) RunPass(ctx context.Context) {
	consecutiveFailures := 0
	for _, id := range p.store.PickablePass() {
		claim, err := p.store.Get(id)
		if err != nil {
			continue
		}
		removed := p.tokenRemoved != nil && p.tokenRemoved(claim.TokenID)

		c, err := p.store.BeginAttempt(id, removed, p.tooManyAttempts, p.tooManyAttemptsRemoved, p.backoffThreshold, p.backoffDuration)
		if err != nil {
			continue
		}

		requestID, transferID, ok := p.attempt(ctx, c)
		if ok {
			_ = p.store.CompleteSuccess(id, requestID, transferID)
			consecutiveFailures = 0
			if p.metrics != nil {
				p.metrics.ClaimAttempts.WithLabelValues("success").Inc()
			}
			continue
		}

		_ = p.store.CompleteFailure(id, requestID)
		consecutiveFailures++
		if p.metrics != nil {
			p.metrics.ClaimAttempts.WithLabelValues("failure").Inc()
		}
		if consecutiveFailures > p.maxConsecutiveFailures {
			p.logger.Info("claim pass stopped early", "consecutive_failures", consecutiveFailures)
			return
		}
	}
	if p.metrics != nil {
		p.metrics.ClaimsPending.Set(float64(p.store.PendingCount()))
	}
}
