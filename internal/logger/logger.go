package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger represents the application logger
type Logger struct {
	*logrus.Logger
	config LogConfig
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level       string
	Format      string // "json", "text" or "console"
	LogToFile   bool
	LogFilePath string
	TradeLogDir string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Compress    bool
}

// NewLogger creates a new logger instance
func NewLogger(config LogConfig) (*Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	log.SetLevel(level)

	switch strings.ToLower(config.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			ForceColors:     !config.LogToFile,
			DisableQuote:    true,
		})
	default:
		log.SetFormatter(&CustomFormatter{Colors: !config.LogToFile})
	}

	if config.TradeLogDir != "" {
		if err := os.MkdirAll(config.TradeLogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create trade log directory %s: %w", config.TradeLogDir, err)
		}
	}

	var out io.Writer = os.Stdout
	if config.LogToFile && config.LogFilePath != "" {
		logDir := filepath.Dir(config.LogFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}

		rotating := &lumberjack.Logger{
			Filename:   config.LogFilePath,
			MaxSize:    orDefault(config.MaxSizeMB, 50),
			MaxBackups: orDefault(config.MaxBackups, 5),
			MaxAge:     orDefault(config.MaxAgeDays, 14),
			Compress:   config.Compress,
		}
		out = io.MultiWriter(os.Stdout, rotating)
	}
	log.SetOutput(out)

	return &Logger{
		Logger: log,
		config: config,
	}, nil
}

// Wrap adapts an existing logrus logger, used by tests with a null logger
func Wrap(log *logrus.Logger) *Logger {
	return &Logger{Logger: log}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// CustomFormatter provides a clean, timestamped format for console output
type CustomFormatter struct {
	Colors bool
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	level := strings.ToUpper(entry.Level.String())

	levelColor, resetColor := "", ""
	if f.Colors {
		resetColor = "\033[0m"
		switch entry.Level {
		case logrus.DebugLevel, logrus.TraceLevel:
			levelColor = "\033[36m"
		case logrus.InfoLevel:
			levelColor = "\033[32m"
		case logrus.WarnLevel:
			levelColor = "\033[33m"
		case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
			levelColor = "\033[31m"
		default:
			levelColor = resetColor
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s%s%s] %s", timestamp, levelColor, level, resetColor, entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for key := range entry.Data {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, key := range keys {
			fmt.Fprintf(&b, " %s=%v", key, entry.Data[key])
		}
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithError adds an error field to the logger
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// Domain logging helpers

// LogTransfer logs a large SOL transfer by the tracked account
func (l *Logger) LogTransfer(signature, sender, recipient string, amountSOL float64) {
	l.WithFields(logrus.Fields{
		"event":      "transfer",
		"signature":  signature,
		"sender":     sender,
		"recipient":  recipient,
		"amount_sol": amountSOL,
	}).Info("💸 Transfer detected")
}

// LogMint logs a newly minted token
func (l *Logger) LogMint(signature, mint, amount string, decimals uint8, freezeDisabled bool) {
	l.WithFields(logrus.Fields{
		"event":           "mint",
		"signature":       signature,
		"mint":            mint,
		"amount":          amount,
		"decimals":        decimals,
		"freeze_disabled": freezeDisabled,
	}).Info("🪙 New token is minted")
}

// LogPoolCreated logs a newly created AMM pool
func (l *Logger) LogPoolCreated(signature, ammID, baseMint, quoteMint string, initialPrice float64) {
	l.WithFields(logrus.Fields{
		"event":         "pool_created",
		"signature":     signature,
		"amm_id":        ammID,
		"base_mint":     baseMint,
		"quote_mint":    quoteMint,
		"initial_price": initialPrice,
	}).Info("🏊 New pool is created")
}

// LogOrder logs an order lifecycle step
func (l *Logger) LogOrder(side, mint, signature, status string, attempt int) {
	l.WithFields(logrus.Fields{
		"event":     "order",
		"side":      side,
		"mint":      mint,
		"signature": signature,
		"status":    status,
		"attempt":   attempt,
	}).Info("📋 Order update")
}

// LogHandoff logs the tracked account moving to a new wallet
func (l *Logger) LogHandoff(from, to, signature string) {
	l.WithFields(logrus.Fields{
		"event":     "handoff",
		"from":      from,
		"to":        to,
		"signature": signature,
	}).Warn("🔀 Tracking moved to new wallet")
}

// LogError logs general errors with context
func (l *Logger) LogError(component, operation string, err error, fields logrus.Fields) {
	logFields := logrus.Fields{
		"event":     "error",
		"component": component,
		"operation": operation,
	}
	for k, v := range fields {
		logFields[k] = v
	}

	l.WithFields(logFields).WithError(err).Error("💥 Component error")
}

// LogStartup logs application startup information
func (l *Logger) LogStartup(version, network, rpcURL, tracked string) {
	l.WithFields(logrus.Fields{
		"event":   "startup",
		"version": version,
		"network": network,
		"rpc_url": rpcURL,
		"tracked": tracked,
	}).Info("🚀 Bot starting up")
}

// LogShutdown logs application shutdown information
func (l *Logger) LogShutdown(reason string) {
	l.WithFields(logrus.Fields{
		"event":  "shutdown",
		"reason": reason,
	}).Info("🛑 Bot shutting down")
}

// LogConnection logs connection status
func (l *Logger) LogConnection(service, status string, details interface{}) {
	l.WithFields(logrus.Fields{
		"event":   "connection",
		"service": service,
		"status":  status,
		"details": details,
	}).Info("🔗 Connection status")
}

// LogBalance logs wallet balance information
func (l *Logger) LogBalance(balanceSOL float64, balanceLamports uint64) {
	l.WithFields(logrus.Fields{
		"event":            "balance_check",
		"balance_sol":      balanceSOL,
		"balance_lamports": balanceLamports,
	}).Info("💰 Wallet balance")
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.WithField("component", component)
}

// WithTransaction returns a logger with transaction context
func (l *Logger) WithTransaction(signature string) *logrus.Entry {
	return l.WithField("transaction", signature)
}

// WithToken returns a logger with token context
func (l *Logger) WithToken(mint string) *logrus.Entry {
	return l.WithField("mint", mint)
}
