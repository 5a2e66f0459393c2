// Package config loads the engine's configuration knobs (§6) the way the
// teacher's CLI layer does: viper-backed, with cobra flags for overrides.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Environment selects production vs local-dev behavior for the settlement
// signer's mock-address escape hatch (SPEC_FULL.md §4.9 supplement).
type Environment string

const (
	EnvProduction Environment = "production"
	EnvLocal      Environment = "local"
)

// Config holds every recognized configuration knob from spec.md §6.
type Config struct {
	Environment Environment

	ClaimsIntervalSecs           int64
	TransferExpiryNanosecs       int64
	RequestsArchiveIntervalSecs  int64
	TxsArchiveIntervalSecs       int64
	TransfersArchiveIntervalSecs int64

	DefaultMaxSlippage       float64
	DefaultLPFeeBps          uint32
	DefaultOperatorFeeBps    uint32
	ExtMinLPFeeBps           uint32
	ArchiveToExternalData    bool
	ExtNotificationTTL       time.Duration
	ExtVerifyFreshnessWindow time.Duration
	MaxSwapPayloadBytes      int
	OrderbookMaxHops         int
	ExtGasAllowance          uint64

	ClaimTooManyAttempts        int
	ClaimTooManyAttemptsRemoved int
	ClaimBackoffThreshold       int
	ClaimBackoffDuration        time.Duration
	ClaimMaxConsecutiveFailures int

	DisabledTokenScanPeriod time.Duration
	OrderExpirySweepPeriod  time.Duration
	TWAPTickInterval        time.Duration
	ArchiveCursorLag        uint64
}

// Defaults returns the configuration defaults named in spec.md §6.
func Defaults() Config {
	return Config{
		Environment: EnvLocal,

		ClaimsIntervalSecs:           300,
		TransferExpiryNanosecs:       3_600_000_000_000,
		RequestsArchiveIntervalSecs:  3600,
		TxsArchiveIntervalSecs:       3600,
		TransfersArchiveIntervalSecs: 3600,

		DefaultMaxSlippage:       2.0,
		DefaultLPFeeBps:          30,
		DefaultOperatorFeeBps:    0,
		ExtMinLPFeeBps:           100,
		ArchiveToExternalData:    false,
		ExtNotificationTTL:       24 * time.Hour,
		ExtVerifyFreshnessWindow: 5 * time.Minute,
		MaxSwapPayloadBytes:      10_000,
		OrderbookMaxHops:         3,
		ExtGasAllowance:          5_000,

		ClaimTooManyAttempts:        50,
		ClaimTooManyAttemptsRemoved: 10,
		ClaimBackoffThreshold:       20,
		ClaimBackoffDuration:        time.Hour,
		ClaimMaxConsecutiveFailures: 4,

		DisabledTokenScanPeriod: 10 * time.Minute,
		OrderExpirySweepPeriod:  30 * time.Second,
		TWAPTickInterval:        10 * time.Second,
		ArchiveCursorLag:        10_000,
	}
}

// Load reads configuration from v (already populated from flags/env/file by
// the caller), falling back to Defaults() for anything unset.
func Load(v *viper.Viper) Config {
	cfg := Defaults()
	if v == nil {
		return cfg
	}
	bindDefaults(v, cfg)

	cfg.Environment = Environment(v.GetString("environment"))
	cfg.ClaimsIntervalSecs = v.GetInt64("claims_interval_secs")
	cfg.TransferExpiryNanosecs = v.GetInt64("transfer_expiry_nanosecs")
	cfg.RequestsArchiveIntervalSecs = v.GetInt64("requests_archive_interval_secs")
	cfg.TxsArchiveIntervalSecs = v.GetInt64("txs_archive_interval_secs")
	cfg.TransfersArchiveIntervalSecs = v.GetInt64("transfers_archive_interval_secs")
	cfg.DefaultMaxSlippage = v.GetFloat64("default_max_slippage")
	cfg.DefaultLPFeeBps = uint32(v.GetUint("default_lp_fee_bps"))
	cfg.DefaultOperatorFeeBps = uint32(v.GetUint("default_operator_fee_bps"))
	cfg.ArchiveToExternalData = v.GetBool("archive_to_kong_data")
	return cfg
}

func bindDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("environment", string(cfg.Environment))
	v.SetDefault("claims_interval_secs", cfg.ClaimsIntervalSecs)
	v.SetDefault("transfer_expiry_nanosecs", cfg.TransferExpiryNanosecs)
	v.SetDefault("requests_archive_interval_secs", cfg.RequestsArchiveIntervalSecs)
	v.SetDefault("txs_archive_interval_secs", cfg.TxsArchiveIntervalSecs)
	v.SetDefault("transfers_archive_interval_secs", cfg.TransfersArchiveIntervalSecs)
	v.SetDefault("default_max_slippage", cfg.DefaultMaxSlippage)
	v.SetDefault("default_lp_fee_bps", cfg.DefaultLPFeeBps)
	v.SetDefault("default_operator_fee_bps", cfg.DefaultOperatorFeeBps)
	v.SetDefault("archive_to_kong_data", cfg.ArchiveToExternalData)
}
