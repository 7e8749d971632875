// Package config loads and validates the oracle's configuration from
// environment variables, in the accumulated-error style
// ashita-ai-akashi/internal/config.Load uses: every knob is parsed even if
// an earlier one fails, so a misconfigured deployment sees every problem
// in one error instead of fixing them one at a time.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hetu-project/trust-oracle/internal/envelope"
	"github.com/hetu-project/trust-oracle/internal/scoring"
)

// Config holds every knob spec.md §6 recognizes, plus the indexer's own
// operational parameters.
type Config struct {
	// Trust Client knobs.
	BaseURL                  string
	DefaultMode              envelope.Source
	AllowDemoFallback        bool
	AllowOnchainFallback     bool
	TimeoutMs                int64
	ConfidenceThresholdCount int64
	NegativeFlagThresholdBps int64

	// Chain access, shared by the Trust Client's on-chain fallback and the
	// indexer.
	RPCURL            string
	TrustScoreAddress string
	RegistryAddress   string
	RegistryStartBlock uint64
	ChainID           uint64
	UpdaterPrivateKey string // hex, optional: absent disables the indexer's write path

	// x402 payment-proof knobs.
	X402PayerPrivateKey  string // hex, optional: absent disables the paid source's proof attachment
	X402PayeeAddress     string
	X402TokenAddress     string
	X402TokenName        string
	X402MaxPaymentAtomic int64

	// Indexer operational knobs.
	PollIntervalMs     int64
	MaxBatchSize       int
	CheckpointFilePath string

	Scoring scoring.Config
}

// Load reads configuration from environment variables with sensible
// defaults. Malformed values are collected into one error; missing
// variables use defaults silently.
func Load() (Config, error) {
	var errs []error
	cfg := Config{
		BaseURL:            envStr("TRUST_ORACLE_BASE_URL", "https://robomoustach.io"),
		DefaultMode:        envelope.Source(envStr("TRUST_ORACLE_DEFAULT_MODE", string(envelope.SourceAPIPaid))),
		RPCURL:             envStr("TRUST_ORACLE_RPC_URL", "https://mainnet.base.org"),
		TrustScoreAddress:  envStr("TRUST_ORACLE_TRUST_SCORE_ADDRESS", ""),
		RegistryAddress:    envStr("TRUST_ORACLE_REGISTRY_ADDRESS", ""),
		UpdaterPrivateKey:  envStr("TRUST_ORACLE_UPDATER_PRIVATE_KEY", ""),
		X402PayerPrivateKey: envStr("TRUST_ORACLE_X402_PAYER_PRIVATE_KEY", ""),
		X402PayeeAddress:   envStr("TRUST_ORACLE_X402_PAYEE_ADDRESS", ""),
		X402TokenAddress:   envStr("TRUST_ORACLE_X402_TOKEN_ADDRESS", ""),
		X402TokenName:      envStr("TRUST_ORACLE_X402_TOKEN_NAME", "USDC"),
		CheckpointFilePath: envStr("TRUST_ORACLE_CHECKPOINT_FILE", "./checkpoint.json"),
	}

	cfg.AllowDemoFallback, errs = collectBool(errs, "TRUST_ORACLE_ALLOW_DEMO_FALLBACK", true)
	cfg.AllowOnchainFallback, errs = collectBool(errs, "TRUST_ORACLE_ALLOW_ONCHAIN_FALLBACK", true)
	cfg.TimeoutMs, errs = collectInt64(errs, "TRUST_ORACLE_TIMEOUT_MS", 8000)
	cfg.ConfidenceThresholdCount, errs = collectInt64(errs, "TRUST_ORACLE_CONFIDENCE_THRESHOLD_FEEDBACK_COUNT", 50)
	cfg.NegativeFlagThresholdBps, errs = collectInt64(errs, "TRUST_ORACLE_NEGATIVE_FLAG_THRESHOLD_BPS", 2000)
	cfg.X402MaxPaymentAtomic, errs = collectInt64(errs, "TRUST_ORACLE_X402_MAX_PAYMENT_ATOMIC", 20000)
	cfg.ChainID, errs = collectUint64(errs, "TRUST_ORACLE_CHAIN_ID", 8453)
	cfg.RegistryStartBlock, errs = collectUint64(errs, "TRUST_ORACLE_REGISTRY_START_BLOCK", 0)
	cfg.PollIntervalMs, errs = collectInt64(errs, "TRUST_ORACLE_POLL_INTERVAL_MS", 15*60*1000)

	var maxBatch int64
	maxBatch, errs = collectInt64(errs, "TRUST_ORACLE_MAX_BATCH_SIZE", 100)
	cfg.MaxBatchSize = int(maxBatch)

	cfg.Scoring = scoring.DefaultConfig()
	cfg.Scoring.DecayWindowDays, errs = collectInt(errs, "TRUST_ORACLE_DECAY_WINDOW_DAYS", cfg.Scoring.DecayWindowDays)
	cfg.Scoring.RecentFeedbackWeight, errs = collectFloat(errs, "TRUST_ORACLE_RECENT_FEEDBACK_WEIGHT", cfg.Scoring.RecentFeedbackWeight)
	cfg.Scoring.OlderFeedbackWeight, errs = collectFloat(errs, "TRUST_ORACLE_OLDER_FEEDBACK_WEIGHT", cfg.Scoring.OlderFeedbackWeight)
	cfg.Scoring.ConfidenceThresholdFeedbackCount, errs = collectInt(errs, "TRUST_ORACLE_CONFIDENCE_THRESHOLD_FEEDBACK_COUNT", cfg.Scoring.ConfidenceThresholdFeedbackCount)
	cfg.Scoring.ConfidenceMultiplier, errs = collectFloat(errs, "TRUST_ORACLE_CONFIDENCE_MULTIPLIER", cfg.Scoring.ConfidenceMultiplier)
	cfg.Scoring.RecentNegativeWindowDays, errs = collectInt(errs, "TRUST_ORACLE_RECENT_NEGATIVE_WINDOW_DAYS", cfg.Scoring.RecentNegativeWindowDays)
	cfg.Scoring.NegativeFlagThresholdBps, errs = collectInt64(errs, "TRUST_ORACLE_NEGATIVE_FLAG_THRESHOLD_BPS", cfg.Scoring.NegativeFlagThresholdBps)
	cfg.Scoring.FlaggedScoreMultiplier, errs = collectFloat(errs, "TRUST_ORACLE_FLAGGED_SCORE_MULTIPLIER", cfg.Scoring.FlaggedScoreMultiplier)
	cfg.Scoring.MaxScore, errs = collectFloat(errs, "TRUST_ORACLE_MAX_SCORE", cfg.Scoring.MaxScore)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("config: TRUST_ORACLE_BASE_URL is required"))
	}
	if c.TimeoutMs <= 0 {
		errs = append(errs, errors.New("config: TRUST_ORACLE_TIMEOUT_MS must be positive"))
	}
	if c.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("config: TRUST_ORACLE_MAX_BATCH_SIZE must be positive"))
	}
	if c.PollIntervalMs <= 0 {
		errs = append(errs, errors.New("config: TRUST_ORACLE_POLL_INTERVAL_MS must be positive"))
	}
	switch c.DefaultMode {
	case envelope.SourceAPIPaid, envelope.SourceAPIDemo, envelope.SourceTrustScoreOnChain:
	default:
		errs = append(errs, fmt.Errorf("config: TRUST_ORACLE_DEFAULT_MODE %q is not a recognized source", c.DefaultMode))
	}
	if c.ConfidenceThresholdCount < 0 {
		errs = append(errs, errors.New("config: TRUST_ORACLE_CONFIDENCE_THRESHOLD_FEEDBACK_COUNT must not be negative"))
	}
	if c.NegativeFlagThresholdBps < 0 || c.NegativeFlagThresholdBps > 10000 {
		errs = append(errs, errors.New("config: TRUST_ORACLE_NEGATIVE_FLAG_THRESHOLD_BPS must be in [0, 10000]"))
	}
	if c.Scoring.MaxScore <= 0 {
		errs = append(errs, errors.New("config: TRUST_ORACLE_MAX_SCORE must be positive"))
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func collectInt(errs []error, key string, fallback int) (int, []error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s=%q is not a valid integer", key, v))
	}
	return n, errs
}

func collectInt64(errs []error, key string, fallback int64) (int64, []error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, errs
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s=%q is not a valid integer", key, v))
	}
	return n, errs
}

func collectUint64(errs []error, key string, fallback uint64) (uint64, []error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, errs
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s=%q is not a valid unsigned integer", key, v))
	}
	return n, errs
}

func collectFloat(errs []error, key string, fallback float64) (float64, []error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, errs
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s=%q is not a valid number", key, v))
	}
	return n, errs
}

func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, append(errs, fmt.Errorf("%s=%q is not a valid boolean", key, v))
	}
	return b, errs
}
