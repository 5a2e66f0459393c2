package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors x/dex/keeper/metrics.go's DEXMetrics: one struct of
// registered collectors, constructed once and threaded through every
// component that emits telemetry. Extended here with settlement-queue and
// claim-pass series the teacher's pure-AMM module had no need for.
type Metrics struct {
	SwapLatency       prometheus.Histogram
	SwapsTotal        *prometheus.CounterVec
	SwapVolume        *prometheus.CounterVec
	SwapSlippage      prometheus.Histogram
	VerifierLatency   *prometheus.HistogramVec
	VerifierFailures  *prometheus.CounterVec
	ClaimsPending     prometheus.Gauge
	ClaimAttempts     *prometheus.CounterVec
	SettlementQueue   prometheus.Gauge
	RefundsTotal      *prometheus.CounterVec
	ReplayRejections  prometheus.Counter
	RequestsByStatus  *prometheus.CounterVec
	OrdersTotal       *prometheus.CounterVec
	TWAPSlices        *prometheus.CounterVec
	PredictionPayouts *prometheus.CounterVec
}

// NewMetrics registers and returns a fresh Metrics. Callers that need
// isolated registries for tests should pass a dedicated
// prometheus.Registerer via NewMetricsWith.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers collectors against the given registerer.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SwapLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "exchange_swap_latency_seconds",
			Help: "Latency of swap execution.",
		}),
		SwapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_swaps_total",
			Help: "Total swaps by pool, token pair, and outcome.",
		}, []string{"pool_id", "token_in", "token_out", "outcome"}),
		SwapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_swap_volume",
			Help: "Swap input volume by pool and token.",
		}, []string{"pool_id", "token_in"}),
		SwapSlippage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "exchange_swap_slippage_percent",
			Help: "Observed slippage percent on swaps.",
		}),
		VerifierLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "exchange_verifier_latency_seconds",
			Help: "Latency of payment verification by chain.",
		}, []string{"chain"}),
		VerifierFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_verifier_failures_total",
			Help: "Payment verification failures by chain and reason.",
		}, []string{"chain", "reason"}),
		ClaimsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exchange_claims_pending",
			Help: "Claims currently in Unclaimed or UnclaimedOverride status.",
		}),
		ClaimAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_claim_attempts_total",
			Help: "Claim retry attempts by outcome.",
		}, []string{"outcome"}),
		SettlementQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exchange_settlement_queue_depth",
			Help: "SwapJobs currently Pending or Sent.",
		}),
		RefundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_refunds_total",
			Help: "Compensating refunds issued, by chain and outcome.",
		}, []string{"chain", "outcome"}),
		ReplayRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exchange_replay_rejections_total",
			Help: "Inbound transfers rejected as duplicate (token_id, tx_ref).",
		}),
		RequestsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_requests_by_status_total",
			Help: "Requests reaching each terminal status.",
		}, []string{"op", "status"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_orders_total",
			Help: "Limit orders reaching each outcome.",
		}, []string{"outcome"}),
		TWAPSlices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_twap_slices_total",
			Help: "TWAP slices by outcome.",
		}, []string{"outcome"}),
		PredictionPayouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_prediction_payouts_total",
			Help: "Prediction-market winner payouts by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		collectors := []prometheus.Collector{
			m.SwapLatency, m.SwapsTotal, m.SwapVolume, m.SwapSlippage,
			m.VerifierLatency, m.VerifierFailures, m.ClaimsPending,
			m.ClaimAttempts, m.SettlementQueue, m.RefundsTotal,
			m.ReplayRejections, m.RequestsByStatus, m.OrdersTotal,
			m.TWAPSlices, m.PredictionPayouts,
		}
		for _, c := range collectors {
			_ = reg.Register(c)
		}
	}
	return m
}
