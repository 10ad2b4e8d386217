package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
	"github.com/spf13/viper"
)

const envPrefix = "SMB"

// Config represents the application configuration
type Config struct {
	// Network settings
	Network    string `mapstructure:"network" yaml:"network"`
	RPCUrl     string `mapstructure:"rpc_url" yaml:"rpc_url"`
	WSUrl      string `mapstructure:"ws_url" yaml:"ws_url"`
	RPCAPIKey  string `mapstructure:"rpc_api_key" yaml:"rpc_api_key"`
	Commitment string `mapstructure:"commitment" yaml:"commitment"`

	// Wallet settings, one of the two is required unless dry-running
	PrivateKey string `mapstructure:"private_key" yaml:"private_key"`
	Mnemonic   string `mapstructure:"mnemonic" yaml:"mnemonic"`

	Tracking  TrackingConfig  `mapstructure:"tracking" yaml:"tracking"`
	Trading   TradingConfig   `mapstructure:"trading" yaml:"trading"`
	Execution ExecutionConfig `mapstructure:"execution" yaml:"execution"`
	Swap      SwapConfig      `mapstructure:"swap" yaml:"swap"`
	Price     PriceConfig     `mapstructure:"price" yaml:"price"`
	JITO      JitoConfig      `mapstructure:"jito" yaml:"jito"`
	Telegram  TelegramConfig  `mapstructure:"telegram" yaml:"telegram"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Advanced  AdvancedConfig  `mapstructure:"advanced" yaml:"advanced"`

	// DryRun is set from the command line only
	DryRun bool `mapstructure:"-" yaml:"-"`
}

// TrackingConfig describes which account is followed and how
type TrackingConfig struct {
	Wallet               string  `mapstructure:"wallet" yaml:"wallet"`
	TransferThresholdSOL float64 `mapstructure:"transfer_threshold_sol" yaml:"transfer_threshold_sol"`
	ActivityThresholdSOL float64 `mapstructure:"activity_threshold_sol" yaml:"activity_threshold_sol"`
	ActivityLogGapSec    int     `mapstructure:"activity_log_gap_sec" yaml:"activity_log_gap_sec"`
	PollIntervalMs       int     `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	AMMProgramID         string  `mapstructure:"amm_program_id" yaml:"amm_program_id"`
	PoolLogMarker        string  `mapstructure:"pool_log_marker" yaml:"pool_log_marker"`
	Realtime             bool    `mapstructure:"realtime" yaml:"realtime"` // wake on logsSubscribe notifications
}

// TradingConfig contains trading-related settings
type TradingConfig struct {
	BuyAmountSOL          float64 `mapstructure:"buy_amount_sol" yaml:"buy_amount_sol"`
	TakeProfit            float64 `mapstructure:"take_profit" yaml:"take_profit"` // multiplier of the initial price
	LossStop              float64 `mapstructure:"loss_stop" yaml:"loss_stop"`     // multiplier of the initial price
	StoppingTimeSec       int     `mapstructure:"stopping_time_sec" yaml:"stopping_time_sec"`
	RequireFreezeDisabled bool    `mapstructure:"require_freeze_disabled" yaml:"require_freeze_disabled"`
	SellOnHandoff         bool    `mapstructure:"sell_on_handoff" yaml:"sell_on_handoff"`
	SellOnRemint          bool    `mapstructure:"sell_on_remint" yaml:"sell_on_remint"`
	RearmAfterSell        bool    `mapstructure:"rearm_after_sell" yaml:"rearm_after_sell"`
	MinSellUnits          uint64  `mapstructure:"min_sell_units" yaml:"min_sell_units"`
	SlippageBP            int     `mapstructure:"slippage_bp" yaml:"slippage_bp"`
	PriorityFee           uint64  `mapstructure:"priority_fee" yaml:"priority_fee"` // lamports, "auto" when 0
}

// ExecutionConfig bounds order submission and confirmation
type ExecutionConfig struct {
	MaxAttempts       int `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialBackoffMs  int `mapstructure:"initial_backoff_ms" yaml:"initial_backoff_ms"`
	MaxBackoffMs      int `mapstructure:"max_backoff_ms" yaml:"max_backoff_ms"`
	ConfirmTimeoutSec int `mapstructure:"confirm_timeout_sec" yaml:"confirm_timeout_sec"`
	ConfirmPollMs     int `mapstructure:"confirm_poll_ms" yaml:"confirm_poll_ms"`
}

// SwapConfig configures the aggregator used for swaps
type SwapConfig struct {
	QuoteURL         string   `mapstructure:"quote_url" yaml:"quote_url"`
	SwapURL          string   `mapstructure:"swap_url" yaml:"swap_url"`
	OnlyDirectRoutes bool     `mapstructure:"only_direct_routes" yaml:"only_direct_routes"`
	Dexes            []string `mapstructure:"dexes" yaml:"dexes"`
	TimeoutMs        int      `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// PriceConfig configures the price feed
type PriceConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	TimeoutMs int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
}

// JitoConfig contains JITO-related settings
type JitoConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	TipAmount uint64 `mapstructure:"tip_amount" yaml:"tip_amount"` // Tip amount in lamports
}

// TelegramConfig enables trade notifications
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Token   string `mapstructure:"token" yaml:"token"`
	ChatID  int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	LogToFile   bool   `mapstructure:"log_to_file" yaml:"log_to_file"`
	LogFilePath string `mapstructure:"log_file_path" yaml:"log_file_path"`
	TradeLogDir string `mapstructure:"trade_log_dir" yaml:"trade_log_dir"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// AdvancedConfig contains advanced settings
type AdvancedConfig struct {
	EnableMetrics bool `mapstructure:"enable_metrics" yaml:"enable_metrics"`
	MetricsPort   int  `mapstructure:"metrics_port" yaml:"metrics_port"`
	RPCTimeoutSec int  `mapstructure:"rpc_timeout_sec" yaml:"rpc_timeout_sec"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string, envPath string) (*Config, error) {
	config := &Config{}
	v := viper.New()

	// First, load .env file if specified or default locations
	if err := loadEnvFile(envPath); err != nil && envPath != "" {
		return nil, err
	}

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.smart-money-bot")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath != "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	processEnvSubstitution(v)

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// loadEnvFile loads environment variables from the first .env file found.
// Variables already set in the environment win.
func loadEnvFile(envPath string) error {
	var envFiles []string
	if envPath != "" {
		envFiles = append(envFiles, envPath)
	}
	envFiles = append(envFiles, ".env", "configs/.env")

	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load .env file %s: %w", file, err)
		}
		return nil
	}

	if envPath != "" {
		return fmt.Errorf("specified .env file not found: %s", envPath)
	}
	return nil
}

// bindEnvVariables binds the nested keys viper's AutomaticEnv cannot see
// before they have a value.
func bindEnvVariables(v *viper.Viper) {
	keys := []string{
		"network", "rpc_url", "ws_url", "rpc_api_key", "commitment",
		"private_key", "mnemonic",

		"tracking.wallet",
		"tracking.transfer_threshold_sol",
		"tracking.activity_threshold_sol",
		"tracking.activity_log_gap_sec",
		"tracking.poll_interval_ms",
		"tracking.amm_program_id",
		"tracking.pool_log_marker",
		"tracking.realtime",

		"trading.buy_amount_sol",
		"trading.take_profit",
		"trading.loss_stop",
		"trading.stopping_time_sec",
		"trading.require_freeze_disabled",
		"trading.sell_on_handoff",
		"trading.sell_on_remint",
		"trading.rearm_after_sell",
		"trading.min_sell_units",
		"trading.slippage_bp",
		"trading.priority_fee",

		"execution.max_attempts",
		"execution.initial_backoff_ms",
		"execution.max_backoff_ms",
		"execution.confirm_timeout_sec",
		"execution.confirm_poll_ms",

		"swap.quote_url",
		"swap.swap_url",
		"swap.only_direct_routes",

		"price.endpoint",

		"jito.enabled",
		"jito.endpoint",
		"jito.api_key",
		"jito.tip_amount",

		"telegram.enabled",
		"telegram.token",
		"telegram.chat_id",

		"logging.level",
		"logging.format",
		"logging.log_to_file",
		"logging.log_file_path",
		"logging.trade_log_dir",

		"advanced.enable_metrics",
		"advanced.metrics_port",
	}
	for _, key := range keys {
		_ = v.BindEnv(key, EnvKey(key))
	}
}

// EnvKey returns the environment variable bound to a config key
func EnvKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// processEnvSubstitution processes ${VAR:-default} substitution in string values
func processEnvSubstitution(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		value, ok := v.Get(key).(string)
		if !ok || !strings.Contains(value, "${") {
			continue
		}
		v.Set(key, expandEnvVars(value))
	}
}

// expandEnvVars expands environment variables in the format ${VAR:-default}
func expandEnvVars(value string) string {
	result := value
	for {
		start := strings.Index(result, "${")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}")
		if end == -1 {
			break
		}
		end += start

		expr := result[start+2 : end]
		varName, defaultValue := expr, ""
		if name, def, found := strings.Cut(expr, ":-"); found {
			varName, defaultValue = name, def
		}

		envValue := os.Getenv(varName)
		if envValue == "" {
			envValue = defaultValue
		}
		result = result[:start] + envValue + result[end+1:]
	}
	return result
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("network", "mainnet")
	v.SetDefault("rpc_url", "")
	v.SetDefault("ws_url", "")
	v.SetDefault("commitment", DefaultCommitment)

	v.SetDefault("tracking.transfer_threshold_sol", DefaultTransferThresholdSOL)
	v.SetDefault("tracking.activity_threshold_sol", DefaultActivityThresholdSOL)
	v.SetDefault("tracking.activity_log_gap_sec", DefaultActivityLogGapSec)
	v.SetDefault("tracking.poll_interval_ms", DefaultPollIntervalMs)
	v.SetDefault("tracking.amm_program_id", RaydiumAMMProgramID)
	v.SetDefault("tracking.pool_log_marker", DefaultPoolLogMarker)
	v.SetDefault("tracking.realtime", true)

	v.SetDefault("trading.buy_amount_sol", DefaultBuyAmountSOL)
	v.SetDefault("trading.take_profit", DefaultTakeProfit)
	v.SetDefault("trading.loss_stop", DefaultLossStop)
	v.SetDefault("trading.stopping_time_sec", DefaultStoppingTimeSec)
	v.SetDefault("trading.require_freeze_disabled", false)
	v.SetDefault("trading.sell_on_handoff", false)
	v.SetDefault("trading.sell_on_remint", true)
	v.SetDefault("trading.rearm_after_sell", true)
	v.SetDefault("trading.min_sell_units", DefaultMinSellUnits)
	v.SetDefault("trading.slippage_bp", DefaultSlippageBP)
	v.SetDefault("trading.priority_fee", 0)

	v.SetDefault("execution.max_attempts", DefaultMaxAttempts)
	v.SetDefault("execution.initial_backoff_ms", DefaultInitialBackoffMs)
	v.SetDefault("execution.max_backoff_ms", DefaultMaxBackoffMs)
	v.SetDefault("execution.confirm_timeout_sec", DefaultConfirmTimeoutSec)
	v.SetDefault("execution.confirm_poll_ms", DefaultConfirmPollMs)

	v.SetDefault("swap.quote_url", JupiterQuoteURL)
	v.SetDefault("swap.swap_url", JupiterSwapURL)
	v.SetDefault("swap.only_direct_routes", true)
	v.SetDefault("swap.dexes", []string{"Raydium"})
	v.SetDefault("swap.timeout_ms", 10000)

	v.SetDefault("price.endpoint", DexScreenerTokensURL)
	v.SetDefault("price.timeout_ms", 5000)

	v.SetDefault("jito.enabled", false)
	v.SetDefault("jito.endpoint", "")
	v.SetDefault("jito.api_key", "")
	v.SetDefault("jito.tip_amount", 10000)

	v.SetDefault("telegram.enabled", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.log_to_file", false)
	v.SetDefault("logging.log_file_path", "logs/bot.log")
	v.SetDefault("logging.trade_log_dir", "trades")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("advanced.enable_metrics", false)
	v.SetDefault("advanced.metrics_port", 9090)
	v.SetDefault("advanced.rpc_timeout_sec", 30)
}

// validateConfig validates the configuration and fills derived values
func validateConfig(config *Config) error {
	if config.RPCUrl == "" {
		config.RPCUrl = GetRPCEndpoint(config.Network)
	}
	if config.WSUrl == "" {
		config.WSUrl = GetWSEndpoint(config.Network)
	}
	if config.JITO.Endpoint == "" {
		config.JITO.Endpoint = GetJitoEndpoint(config.Network)
	}

	if config.Tracking.Wallet == "" {
		return fmt.Errorf("tracking.wallet is required")
	}
	if err := ValidateAddress(config.Tracking.Wallet); err != nil {
		return fmt.Errorf("tracking.wallet: %w", err)
	}
	if err := ValidateAddress(config.Tracking.AMMProgramID); err != nil {
		return fmt.Errorf("tracking.amm_program_id: %w", err)
	}
	if config.Tracking.TransferThresholdSOL <= 0 {
		return fmt.Errorf("tracking.transfer_threshold_sol must be positive")
	}
	if config.Tracking.ActivityThresholdSOL < 0 {
		return fmt.Errorf("tracking.activity_threshold_sol must be non-negative")
	}
	if config.Tracking.PollIntervalMs < MinPollIntervalMs {
		return fmt.Errorf("tracking.poll_interval_ms must be at least %d", MinPollIntervalMs)
	}
	if config.Tracking.PoolLogMarker == "" {
		return fmt.Errorf("tracking.pool_log_marker is required")
	}

	if config.Trading.BuyAmountSOL < MinTradeAmountSOL {
		return fmt.Errorf("buy_amount_sol must be at least %f", MinTradeAmountSOL)
	}
	if config.Trading.BuyAmountSOL > MaxTradeAmountSOL {
		return fmt.Errorf("buy_amount_sol must not exceed %f", MaxTradeAmountSOL)
	}
	if config.Trading.TakeProfit <= 1 {
		return fmt.Errorf("trading.take_profit must be greater than 1")
	}
	if config.Trading.LossStop <= 0 || config.Trading.LossStop >= 1 {
		return fmt.Errorf("trading.loss_stop must be between 0 and 1")
	}
	if config.Trading.StoppingTimeSec < 0 {
		return fmt.Errorf("trading.stopping_time_sec must be non-negative")
	}
	if config.Trading.SlippageBP < 10 || config.Trading.SlippageBP > 5000 {
		return fmt.Errorf("slippage_bp must be between 10 and 5000 (0.1%% to 50%%)")
	}

	if config.Execution.MaxAttempts < 1 {
		return fmt.Errorf("execution.max_attempts must be at least 1")
	}
	if config.Execution.InitialBackoffMs < 0 || config.Execution.MaxBackoffMs < config.Execution.InitialBackoffMs {
		return fmt.Errorf("execution backoff must satisfy 0 <= initial_backoff_ms <= max_backoff_ms")
	}

	if config.Telegram.Enabled && (config.Telegram.Token == "" || config.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.token and telegram.chat_id are required when telegram is enabled")
	}

	if config.Logging.LogToFile {
		logDir := filepath.Dir(config.Logging.LogFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}
	if err := os.MkdirAll(config.Logging.TradeLogDir, 0755); err != nil {
		return fmt.Errorf("failed to create trade log directory %s: %w", config.Logging.TradeLogDir, err)
	}

	return nil
}

// ValidateAddress checks that s is a base58-encoded 32-byte public key
func ValidateAddress(s string) error {
	decoded, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("address %q decodes to %d bytes, want 32", s, len(decoded))
	}
	return nil
}

// ValidateWallet checks that a signing key is present unless dry-running
func (c *Config) ValidateWallet() error {
	if c.DryRun {
		return nil
	}
	if c.PrivateKey == "" && c.Mnemonic == "" {
		return fmt.Errorf("private_key or mnemonic is required")
	}
	return nil
}

// GetConfigFromEnv loads configuration from environment variables only
func GetConfigFromEnv(envPath string) (*Config, error) {
	if err := loadEnvFile(envPath); err != nil && envPath != "" {
		return nil, err
	}

	config := &Config{
		Network:    getEnvString(EnvKey("network"), "mainnet"),
		RPCUrl:     getEnvString(EnvKey("rpc_url"), ""),
		WSUrl:      getEnvString(EnvKey("ws_url"), ""),
		RPCAPIKey:  getEnvString(EnvKey("rpc_api_key"), ""),
		Commitment: getEnvString(EnvKey("commitment"), DefaultCommitment),
		PrivateKey: getEnvString(EnvKey("private_key"), ""),
		Mnemonic:   getEnvString(EnvKey("mnemonic"), ""),
		Tracking: TrackingConfig{
			Wallet:               getEnvString(EnvKey("tracking.wallet"), ""),
			TransferThresholdSOL: getEnvFloat(EnvKey("tracking.transfer_threshold_sol"), DefaultTransferThresholdSOL),
			ActivityThresholdSOL: getEnvFloat(EnvKey("tracking.activity_threshold_sol"), DefaultActivityThresholdSOL),
			ActivityLogGapSec:    getEnvInt(EnvKey("tracking.activity_log_gap_sec"), DefaultActivityLogGapSec),
			PollIntervalMs:       getEnvInt(EnvKey("tracking.poll_interval_ms"), DefaultPollIntervalMs),
			AMMProgramID:         getEnvString(EnvKey("tracking.amm_program_id"), RaydiumAMMProgramID),
			PoolLogMarker:        getEnvString(EnvKey("tracking.pool_log_marker"), DefaultPoolLogMarker),
			Realtime:             getEnvBool(EnvKey("tracking.realtime"), true),
		},
		Trading: TradingConfig{
			BuyAmountSOL:          getEnvFloat(EnvKey("trading.buy_amount_sol"), DefaultBuyAmountSOL),
			TakeProfit:            getEnvFloat(EnvKey("trading.take_profit"), DefaultTakeProfit),
			LossStop:              getEnvFloat(EnvKey("trading.loss_stop"), DefaultLossStop),
			StoppingTimeSec:       getEnvInt(EnvKey("trading.stopping_time_sec"), DefaultStoppingTimeSec),
			RequireFreezeDisabled: getEnvBool(EnvKey("trading.require_freeze_disabled"), false),
			SellOnHandoff:         getEnvBool(EnvKey("trading.sell_on_handoff"), false),
			SellOnRemint:          getEnvBool(EnvKey("trading.sell_on_remint"), true),
			RearmAfterSell:        getEnvBool(EnvKey("trading.rearm_after_sell"), true),
			MinSellUnits:          uint64(getEnvInt64(EnvKey("trading.min_sell_units"), DefaultMinSellUnits)),
			SlippageBP:            getEnvInt(EnvKey("trading.slippage_bp"), DefaultSlippageBP),
			PriorityFee:           uint64(getEnvInt64(EnvKey("trading.priority_fee"), 0)),
		},
		Execution: ExecutionConfig{
			MaxAttempts:       getEnvInt(EnvKey("execution.max_attempts"), DefaultMaxAttempts),
			InitialBackoffMs:  getEnvInt(EnvKey("execution.initial_backoff_ms"), DefaultInitialBackoffMs),
			MaxBackoffMs:      getEnvInt(EnvKey("execution.max_backoff_ms"), DefaultMaxBackoffMs),
			ConfirmTimeoutSec: getEnvInt(EnvKey("execution.confirm_timeout_sec"), DefaultConfirmTimeoutSec),
			ConfirmPollMs:     getEnvInt(EnvKey("execution.confirm_poll_ms"), DefaultConfirmPollMs),
		},
		Swap: SwapConfig{
			QuoteURL:         getEnvString(EnvKey("swap.quote_url"), JupiterQuoteURL),
			SwapURL:          getEnvString(EnvKey("swap.swap_url"), JupiterSwapURL),
			OnlyDirectRoutes: getEnvBool(EnvKey("swap.only_direct_routes"), true),
			Dexes:            []string{"Raydium"},
			TimeoutMs:        10000,
		},
		Price: PriceConfig{
			Endpoint:  getEnvString(EnvKey("price.endpoint"), DexScreenerTokensURL),
			TimeoutMs: 5000,
		},
		JITO: JitoConfig{
			Enabled:   getEnvBool(EnvKey("jito.enabled"), false),
			Endpoint:  getEnvString(EnvKey("jito.endpoint"), ""),
			APIKey:    getEnvString(EnvKey("jito.api_key"), ""),
			TipAmount: uint64(getEnvInt64(EnvKey("jito.tip_amount"), 10000)),
		},
		Telegram: TelegramConfig{
			Enabled: getEnvBool(EnvKey("telegram.enabled"), false),
			Token:   getEnvString(EnvKey("telegram.token"), ""),
			ChatID:  getEnvInt64(EnvKey("telegram.chat_id"), 0),
		},
		Logging: LoggingConfig{
			Level:       getEnvString(EnvKey("logging.level"), "info"),
			Format:      getEnvString(EnvKey("logging.format"), "text"),
			LogToFile:   getEnvBool(EnvKey("logging.log_to_file"), false),
			LogFilePath: getEnvString(EnvKey("logging.log_file_path"), "logs/bot.log"),
			TradeLogDir: getEnvString(EnvKey("logging.trade_log_dir"), "trades"),
			MaxSizeMB:   100,
			MaxBackups:  5,
			MaxAgeDays:  30,
			Compress:    true,
		},
		Advanced: AdvancedConfig{
			EnableMetrics: getEnvBool(EnvKey("advanced.enable_metrics"), false),
			MetricsPort:   getEnvInt(EnvKey("advanced.metrics_port"), 9090),
			RPCTimeoutSec: 30,
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// PollInterval returns the tick interval
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tracking.PollIntervalMs) * time.Millisecond
}

// StoppingTime returns the stagnation timeout; zero disables it
func (c *Config) StoppingTime() time.Duration {
	return time.Duration(c.Trading.StoppingTimeSec) * time.Second
}

// RPCTimeout returns the per-request RPC timeout
func (c *Config) RPCTimeout() time.Duration {
	if c.Advanced.RPCTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Advanced.RPCTimeoutSec) * time.Second
}

// Helper functions for environment variables
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}
