package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetu-project/trust-oracle/internal/envelope"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, orig)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t,
		"TRUST_ORACLE_BASE_URL", "TRUST_ORACLE_DEFAULT_MODE", "TRUST_ORACLE_TIMEOUT_MS",
		"TRUST_ORACLE_MAX_BATCH_SIZE", "TRUST_ORACLE_POLL_INTERVAL_MS",
		"TRUST_ORACLE_NEGATIVE_FLAG_THRESHOLD_BPS", "TRUST_ORACLE_X402_MAX_PAYMENT_ATOMIC",
	)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://robomoustach.io", cfg.BaseURL)
	assert.Equal(t, envelope.SourceAPIPaid, cfg.DefaultMode)
	assert.True(t, cfg.AllowDemoFallback)
	assert.True(t, cfg.AllowOnchainFallback)
	assert.Equal(t, int64(8000), cfg.TimeoutMs)
	assert.Equal(t, int64(50), cfg.ConfidenceThresholdCount)
	assert.Equal(t, int64(2000), cfg.NegativeFlagThresholdBps)
	assert.Equal(t, int64(20000), cfg.X402MaxPaymentAtomic)
	assert.Equal(t, 100, cfg.MaxBatchSize)
	assert.Equal(t, int64(15*60*1000), cfg.PollIntervalMs)
	assert.Equal(t, 30, cfg.Scoring.DecayWindowDays)
	assert.Equal(t, 1000.0, cfg.Scoring.MaxScore)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("TRUST_ORACLE_BASE_URL", "https://example.test")
	t.Setenv("TRUST_ORACLE_DEFAULT_MODE", "api_demo")
	t.Setenv("TRUST_ORACLE_TIMEOUT_MS", "5000")
	t.Setenv("TRUST_ORACLE_MAX_BATCH_SIZE", "25")
	t.Setenv("TRUST_ORACLE_ALLOW_DEMO_FALLBACK", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test", cfg.BaseURL)
	assert.Equal(t, envelope.SourceAPIDemo, cfg.DefaultMode)
	assert.Equal(t, int64(5000), cfg.TimeoutMs)
	assert.Equal(t, 25, cfg.MaxBatchSize)
	assert.False(t, cfg.AllowDemoFallback)
}

func TestLoad_InvalidIntegerCollectsError(t *testing.T) {
	t.Setenv("TRUST_ORACLE_TIMEOUT_MS", "not-a-number")
	t.Setenv("TRUST_ORACLE_MAX_BATCH_SIZE", "also-not-a-number")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUST_ORACLE_TIMEOUT_MS")
	assert.Contains(t, err.Error(), "TRUST_ORACLE_MAX_BATCH_SIZE")
}

func TestValidate_RejectsUnrecognizedMode(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.DefaultMode = envelope.Source("not_a_real_mode")

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_a_real_mode")
}

func TestValidate_RejectsOutOfRangeNegativeFlagBps(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.NegativeFlagThresholdBps = 10001

	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroMaxScore(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.Scoring.MaxScore = 0

	assert.Error(t, cfg.Validate())
}
