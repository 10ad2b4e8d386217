package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-money-bot-go/internal/client"
	"smart-money-bot-go/internal/config"
	"smart-money-bot-go/internal/logger"
	"smart-money-bot-go/internal/notify"
	"smart-money-bot-go/internal/observability"
	"smart-money-bot-go/internal/price"
	"smart-money-bot-go/internal/swap"
	"smart-money-bot-go/internal/tracker"
	"smart-money-bot-go/internal/wallet"
)

const Version = "1.0.0"

// CLI flags
var (
	configFile   = flag.String("config", "", "Path to config file")
	envFile      = flag.String("env", "", "Path to .env file")
	network      = flag.String("network", "", "Network to use (mainnet/devnet)")
	logLevel     = flag.String("log-level", "", "Log level (debug/info/warn/error)")
	dryRun       = flag.Bool("dry-run", false, "Dry run mode (no actual trades)")
	trackWallet  = flag.String("track", "", "Wallet to follow, overrides tracking.wallet")
	buyAmountSOL = flag.Float64("buy-sol", 0, "Amount of SOL to spend per buy")
	noRealtime   = flag.Bool("no-realtime", false, "Poll only, without the logs subscription")
	enableJito   = flag.Bool("jito", false, "Send swaps through Jito")
)

// App owns every long lived component of the bot
type App struct {
	config      *config.Config
	logger      *logger.Logger
	tradeLogger *logger.TradeLogger
	rpcClient   *client.Client
	wsClient    *client.WSClient
	follower    *client.LogsFollower
	wallet      *wallet.Wallet
	telegram    *notify.Telegram
	metrics     *observability.Metrics
	bot         *tracker.Bot
	ctx         context.Context
	cancel      context.CancelFunc
}

func main() {
	flag.Parse()

	cfg := loadConfigurationWithOverrides()

	log := initializeLogger(cfg)

	app, err := NewApp(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create application")
	}

	if err := app.Start(); err != nil {
		log.WithError(err).Fatal("Bot stopped with error")
	}
}

func loadConfigurationWithOverrides() *config.Config {
	configPath := "configs/bot.yaml"
	if *configFile != "" {
		configPath = *configFile
	}

	// Flags that satisfy validation must be in place before loading
	if *trackWallet != "" {
		os.Setenv(config.EnvKey("tracking.wallet"), *trackWallet)
	}
	if *network != "" {
		os.Setenv(config.EnvKey("network"), *network)
	}

	cfg, err := config.LoadConfig(configPath, *envFile)
	if err != nil {
		fmt.Printf("Warning: Failed to load YAML config (%v), using environment variables only\n", err)
		cfg, err = config.GetConfigFromEnv(*envFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}
	}

	applyCliOverrides(cfg)

	if err := cfg.ValidateWallet(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

func applyCliOverrides(cfg *config.Config) {
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *buyAmountSOL > 0 {
		cfg.Trading.BuyAmountSOL = *buyAmountSOL
	}
	if *noRealtime {
		cfg.Tracking.Realtime = false
	}
	if *enableJito {
		cfg.JITO.Enabled = true
	}
}

func initializeLogger(cfg *config.Config) *logger.Logger {
	log, err := logger.NewLogger(logger.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		LogToFile:   cfg.Logging.LogToFile,
		LogFilePath: cfg.Logging.LogFilePath,
		TradeLogDir: cfg.Logging.TradeLogDir,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		Compress:    cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return log
}

// NewApp wires the follower: RPC and websocket clients, wallet, swap route,
// price feed, notifications and the tracker loop.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	tradeLogger, err := logger.NewTradeLogger(cfg.Logging.TradeLogDir, log)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create trade logger: %w", err)
	}

	rpcClient := client.NewClient(client.ClientConfig{
		RPCEndpoint: cfg.RPCUrl,
		APIKey:      cfg.RPCAPIKey,
		Commitment:  cfg.Commitment,
	}, log.Logger)

	app := &App{
		config:      cfg,
		logger:      log,
		tradeLogger: tradeLogger,
		rpcClient:   rpcClient,
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.Advanced.EnableMetrics {
		app.metrics = observability.NewMetrics("smart_money_bot")
	}

	if cfg.PrivateKey != "" || cfg.Mnemonic != "" {
		app.wallet, err = wallet.NewWallet(wallet.WalletConfig{
			PrivateKey: cfg.PrivateKey,
			Mnemonic:   cfg.Mnemonic,
			Network:    cfg.Network,
		}, rpcClient, log.Logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize wallet: %w", err)
		}
	}

	swapper, status, balances, err := app.buildExecution()
	if err != nil {
		cancel()
		return nil, err
	}

	var notifier tracker.Notifier
	if cfg.Telegram.Enabled {
		app.telegram, err = notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		})
		if err != nil {
			log.WithError(err).Warn("Telegram disabled")
		} else {
			notifier = app.telegram
		}
	}

	deps := tracker.Deps{
		Chain:    rpcClient,
		Status:   status,
		Balances: balances,
		Swapper:  swapper,
		Prices: price.NewDexScreener(price.DexScreenerConfig{
			Endpoint: cfg.Price.Endpoint,
			Timeout:  time.Duration(cfg.Price.TimeoutMs) * time.Millisecond,
		}, log.Logger),
		Notifier: notifier,
		Journal:  tradeLogger,
	}

	if cfg.Tracking.Realtime {
		app.wsClient = client.NewWSClient(cfg.WSUrl, log.Logger)
		app.follower = client.NewLogsFollower(app.wsClient, cfg.Commitment, log.Logger)
		deps.Wake = app.follower.Wake()
		deps.Follower = app.follower
	}

	app.bot = tracker.NewBot(buildTrackerConfig(cfg), deps, log, app.metrics)
	return app, nil
}

// buildExecution picks the swap route. Dry runs simulate swaps, balances and
// confirmations; live runs sign with the wallet and confirm through RPC.
func (a *App) buildExecution() (tracker.Swapper, tracker.StatusChecker, tracker.BalanceSource, error) {
	cfg := a.config

	jupiterCfg := swap.JupiterConfig{
		QuoteURL:            cfg.Swap.QuoteURL,
		SwapURL:             cfg.Swap.SwapURL,
		SlippageBP:          cfg.Trading.SlippageBP,
		PriorityFeeLamports: cfg.Trading.PriorityFee,
		OnlyDirectRoutes:    cfg.Swap.OnlyDirectRoutes,
		Dexes:               cfg.Swap.Dexes,
		Timeout:             time.Duration(cfg.Swap.TimeoutMs) * time.Millisecond,
	}

	if cfg.DryRun {
		quoter := swap.NewJupiterSwapper(jupiterCfg, nil, nil, a.logger.Logger)
		dry := swap.NewDryRun(quoter, a.logger.Logger)
		a.logger.Warn("🧪 Dry run: swaps are simulated")
		return dry, dry, dry, nil
	}

	if a.wallet == nil {
		return nil, nil, nil, errors.New("a wallet is required unless dry-running")
	}

	var sender swap.Sender = a.rpcClient
	if cfg.JITO.Enabled {
		sender = client.NewJitoClient(client.JitoClientConfig{
			Endpoint: cfg.JITO.Endpoint,
			APIKey:   cfg.JITO.APIKey,
		}, a.logger.Logger)
		jupiterCfg.JitoTipLamports = cfg.JITO.TipAmount
		a.logger.WithField("endpoint", cfg.JITO.Endpoint).Info("⚡ Swaps go through Jito")
	}

	return swap.NewJupiterSwapper(jupiterCfg, a.wallet, sender, a.logger.Logger), a.rpcClient, a.wallet, nil
}

func buildTrackerConfig(cfg *config.Config) tracker.Config {
	return tracker.Config{
		TrackWallet:  cfg.Tracking.Wallet,
		PollInterval: cfg.PollInterval(),
		Classifier: tracker.ClassifierConfig{
			AMMProgramID:  cfg.Tracking.AMMProgramID,
			PoolLogMarker: cfg.Tracking.PoolLogMarker,
		},
		Machine: tracker.MachineConfig{
			TransferThresholdSOL:  cfg.Tracking.TransferThresholdSOL,
			ActivityThresholdSOL:  cfg.Tracking.ActivityThresholdSOL,
			ActivityLogGap:        time.Duration(cfg.Tracking.ActivityLogGapSec) * time.Second,
			BuyAmountSOL:          cfg.Trading.BuyAmountSOL,
			TakeProfit:            cfg.Trading.TakeProfit,
			LossStop:              cfg.Trading.LossStop,
			StoppingTime:          cfg.StoppingTime(),
			RequireFreezeDisabled: cfg.Trading.RequireFreezeDisabled,
			SellOnHandoff:         cfg.Trading.SellOnHandoff,
			SellOnRemint:          cfg.Trading.SellOnRemint,
			RearmAfterSell:        cfg.Trading.RearmAfterSell,
			MinSellUnits:          cfg.Trading.MinSellUnits,
			QuoteMint:             config.WSOLMint,
		},
		Executor: tracker.ExecutorConfig{
			PollInterval:   time.Duration(cfg.Execution.ConfirmPollMs) * time.Millisecond,
			MaxAttempts:    cfg.Execution.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Execution.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Execution.MaxBackoffMs) * time.Millisecond,
			ConfirmTimeout: time.Duration(cfg.Execution.ConfirmTimeoutSec) * time.Second,
		},
	}
}

// Start runs the bot until a signal arrives or the loop fails
func (a *App) Start() error {
	a.logger.LogStartup(Version, a.config.Network, a.config.RPCUrl, a.config.Tracking.Wallet)

	if err := a.testConnections(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	if a.metrics != nil {
		go func() {
			if err := a.metrics.Serve(a.ctx, a.config.Advanced.MetricsPort); err != nil {
				a.logger.WithError(err).Error("Metrics server stopped")
			}
		}()
		a.logger.WithField("port", a.config.Advanced.MetricsPort).Info("📈 Metrics enabled")
	}

	if a.telegram != nil {
		a.telegram.ListenForCommands(a.ctx)
	}

	if a.wsClient != nil {
		if err := a.wsClient.Connect(); err != nil {
			a.logger.WithError(err).Warn("⚠️ WebSocket unavailable, polling only")
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- a.bot.Run(a.ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	reason := "loop stopped"
	select {
	case sig := <-sigChan:
		a.logger.Info(fmt.Sprintf("🛑 Received signal: %v", sig))
		reason = sig.String()
		a.cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}

	// The loop has returned, so the session can be read here
	a.shutdown(reason)
	return runErr
}

func (a *App) testConnections() error {
	ctx, cancel := context.WithTimeout(a.ctx, a.config.RPCTimeout())
	defer cancel()

	slot, err := a.rpcClient.GetSlot(ctx)
	if err != nil {
		return fmt.Errorf("RPC connection failed: %w", err)
	}
	a.logger.LogConnection("rpc", "connected", map[string]interface{}{"slot": slot})

	if a.wallet != nil {
		balance, err := a.wallet.GetBalance(ctx)
		if err != nil {
			a.logger.WithError(err).Warn("Could not read wallet balance")
		} else {
			a.logger.LogBalance(config.ConvertLamportsToSOL(balance), balance)
			if !a.config.DryRun && balance < config.ConvertSOLToLamports(a.config.Trading.BuyAmountSOL) {
				a.logger.Warn("⚠️ Wallet balance is below the buy amount")
			}
		}
	}

	return nil
}

func (a *App) shutdown(reason string) {
	a.logger.LogShutdown(reason)
	a.cancel()

	if a.wsClient != nil {
		if err := a.wsClient.Close(); err != nil {
			a.logger.WithError(err).Debug("WebSocket close failed")
		}
	}

	if err := a.tradeLogger.LogDailySummary(); err != nil {
		a.logger.WithError(err).Warn("Failed to write trade summary")
	}

	summary := a.tradeLogger.Summary()
	position := a.bot.Session().Position
	a.logger.LogEventTable("Session summary", []logger.Field{
		{Name: "Tracked", Value: a.bot.Session().Tracked},
		{Name: "Position", Value: position.State},
		{Name: "Token", Value: position.Token.Mint},
		{Name: "Orders logged", Value: summary.Total},
		{Name: "Confirmed", Value: summary.ByStatus["confirmed"]},
		{Name: "Abandoned", Value: summary.ByStatus["abandoned"]},
	})
}
