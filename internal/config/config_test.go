package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	zeroKey    = "11111111111111111111111111111111"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.yaml")
	body += "\nlogging:\n  trade_log_dir: " + filepath.Join(dir, "trades") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "tracking:\n  wallet: "+testWallet+"\n")

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, "mainnet", cfg.Network)
	assert.Equal(t, SolanaMainnetRPC, cfg.RPCUrl)
	assert.Equal(t, SolanaMainnetWS, cfg.WSUrl)
	assert.Equal(t, testWallet, cfg.Tracking.Wallet)
	assert.Equal(t, 5.0, cfg.Tracking.TransferThresholdSOL)
	assert.Equal(t, RaydiumAMMProgramID, cfg.Tracking.AMMProgramID)
	assert.Equal(t, "Create", cfg.Tracking.PoolLogMarker)
	assert.Equal(t, 2.0, cfg.Trading.TakeProfit)
	assert.Equal(t, 0.5, cfg.Trading.LossStop)
	assert.True(t, cfg.Trading.RearmAfterSell)
	assert.False(t, cfg.Trading.SellOnHandoff)
	assert.True(t, cfg.Trading.SellOnRemint)
	assert.Equal(t, uint64(1000), cfg.Trading.MinSellUnits)
	assert.Equal(t, 5, cfg.Execution.MaxAttempts)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, 10*time.Minute, cfg.StoppingTime())
	assert.Equal(t, []string{"Raydium"}, cfg.Swap.Dexes)
	assert.Equal(t, JitoMainnetRPC, cfg.JITO.Endpoint)
}

func TestLoadConfigFileValues(t *testing.T) {
	path := writeConfig(t, `
network: devnet
tracking:
  wallet: `+testWallet+`
  transfer_threshold_sol: 12.5
  poll_interval_ms: 2500
trading:
  buy_amount_sol: 0.2
  take_profit: 3
  loss_stop: 0.25
  sell_on_handoff: true
  rearm_after_sell: false
`)

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, SolanaDevnetRPC, cfg.RPCUrl)
	assert.Equal(t, JitoDevnetRPC, cfg.JITO.Endpoint)
	assert.Equal(t, 12.5, cfg.Tracking.TransferThresholdSOL)
	assert.Equal(t, 2500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 0.2, cfg.Trading.BuyAmountSOL)
	assert.Equal(t, 3.0, cfg.Trading.TakeProfit)
	assert.True(t, cfg.Trading.SellOnHandoff)
	assert.False(t, cfg.Trading.RearmAfterSell)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, "tracking:\n  wallet: "+zeroKey+"\n")
	t.Setenv("SMB_TRACKING_WALLET", testWallet)
	t.Setenv("SMB_TRADING_BUY_AMOUNT_SOL", "0.5")
	t.Setenv("SMB_TRADING_REQUIRE_FREEZE_DISABLED", "true")

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, testWallet, cfg.Tracking.Wallet)
	assert.Equal(t, 0.5, cfg.Trading.BuyAmountSOL)
	assert.True(t, cfg.Trading.RequireFreezeDisabled)
}

func TestLoadConfigEnvSubstitution(t *testing.T) {
	path := writeConfig(t, `
rpc_url: "${SMB_TEST_RPC:-https://rpc.example.com}"
ws_url: "${SMB_TEST_WS}"
tracking:
  wallet: `+testWallet+`
`)
	t.Setenv("SMB_TEST_WS", "wss://ws.example.com")

	cfg, err := LoadConfig(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.RPCUrl)
	assert.Equal(t, "wss://ws.example.com", cfg.WSUrl)
}

func TestLoadConfigDotEnv(t *testing.T) {
	path := writeConfig(t, "")
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SMB_TRACKING_WALLET="+testWallet+"\n"), 0600))
	t.Setenv("SMB_TRACKING_WALLET", "")
	os.Unsetenv("SMB_TRACKING_WALLET")

	cfg, err := LoadConfig(path, envPath)
	require.NoError(t, err)
	assert.Equal(t, testWallet, cfg.Tracking.Wallet)
}

func TestLoadConfigMissingEnvFile(t *testing.T) {
	path := writeConfig(t, "tracking:\n  wallet: "+testWallet+"\n")

	_, err := LoadConfig(path, filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing wallet", "network: mainnet\n"},
		{"bad wallet", "tracking:\n  wallet: not-base58-0OIl\n"},
		{"short wallet", "tracking:\n  wallet: abc\n"},
		{"take profit too low", "tracking:\n  wallet: " + testWallet + "\ntrading:\n  take_profit: 1\n"},
		{"loss stop out of range", "tracking:\n  wallet: " + testWallet + "\ntrading:\n  loss_stop: 1.5\n"},
		{"zero threshold", "tracking:\n  wallet: " + testWallet + "\n  transfer_threshold_sol: 0\n"},
		{"no attempts", "tracking:\n  wallet: " + testWallet + "\nexecution:\n  max_attempts: 0\n"},
		{"telegram without token", "tracking:\n  wallet: " + testWallet + "\ntelegram:\n  enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body), "")
			assert.Error(t, err)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SMB_EXPAND_A", "alpha")

	assert.Equal(t, "plain", expandEnvVars("plain"))
	assert.Equal(t, "alpha", expandEnvVars("${SMB_EXPAND_A}"))
	assert.Equal(t, "x-alpha-y", expandEnvVars("x-${SMB_EXPAND_A}-y"))
	assert.Equal(t, "fallback", expandEnvVars("${SMB_EXPAND_UNSET:-fallback}"))
	assert.Equal(t, "", expandEnvVars("${SMB_EXPAND_UNSET}"))
	assert.Equal(t, "alpha/fallback", expandEnvVars("${SMB_EXPAND_A}/${SMB_EXPAND_UNSET:-fallback}"))
	assert.Equal(t, "${unterminated", expandEnvVars("${unterminated"))
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(testWallet))
	assert.NoError(t, ValidateAddress(zeroKey))
	assert.Error(t, ValidateAddress(""))
	assert.Error(t, ValidateAddress("0OIl"))
	assert.Error(t, ValidateAddress("abc"))
}

func TestValidateWallet(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateWallet())

	cfg.DryRun = true
	assert.NoError(t, cfg.ValidateWallet())

	cfg = &Config{Mnemonic: "abandon"}
	assert.NoError(t, cfg.ValidateWallet())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "SMB_TRADING_BUY_AMOUNT_SOL", EnvKey("trading.buy_amount_sol"))
	assert.Equal(t, "SMB_RPC_URL", EnvKey("rpc_url"))
}
