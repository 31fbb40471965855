package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  environment: test
ledger:
  horizon_url: https://horizon-testnet.stellar.org
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "swapd", cfg.App.Name)
	assert.Equal(t, "test", cfg.App.Environment)
	assert.Equal(t, "https://horizon-testnet.stellar.org", cfg.Ledger.HorizonURL)
	assert.Equal(t, 8*time.Second, cfg.Engine.BranchTimeout)
	assert.Equal(t, 5000, cfg.Execution.MaxSlippageBps)
	assert.Equal(t, 180*time.Second, cfg.Execution.ExpiresAfter)
	assert.Equal(t, 24*time.Hour, cfg.Monitor.Retention)
	assert.Equal(t, 3, cfg.Ledger.Retry.MaxAttempts)
	assert.Equal(t, []string{"stdout"}, cfg.Logging.OutputPaths)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
engine:
  branch_timeout: 2s
`)
	t.Setenv("SWAP_ENGINE_MAX_QUOTES", "3")
	t.Setenv("SWAP_LEDGER_HORIZON_URL", "http://127.0.0.1:8000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Engine.BranchTimeout)
	assert.Equal(t, 3, cfg.Engine.MaxQuotes)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Ledger.HorizonURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateCollectsAllFailures(t *testing.T) {
	path := writeConfig(t, `
ledger:
  horizon_url: "not a url"
  retry:
    min_delay: 5s
    max_delay: 1s
engine:
  branch_timeout: 10s
  aggregate_timeout: 5s
execution:
  max_slippage_bps: 20000
`)

	_, err := Load(path)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "ledger.horizon_url")
	assert.Contains(t, msg, "ledger.retry.min_delay")
	assert.Contains(t, msg, "engine.aggregate_timeout")
	assert.Contains(t, msg, "execution.max_slippage_bps")
}
