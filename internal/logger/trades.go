package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TradeLog represents a trade journal entry
type TradeLog struct {
	Timestamp    time.Time `json:"timestamp"`
	OrderID      string    `json:"order_id"`
	TradeType    string    `json:"trade_type"` // "buy" or "sell"
	Mint         string    `json:"mint"`
	AmmID        string    `json:"amm_id"`
	Amount       uint64    `json:"amount"` // lamports for buys, raw token units for sells
	Attempt      int       `json:"attempt"`
	Signature    string    `json:"signature,omitempty"`
	Status       string    `json:"status"` // "submitted", "confirmed", "failed", "abandoned"
	ErrorMessage string    `json:"error_message,omitempty"`
}

// TradeSummary counts journal entries by status
type TradeSummary struct {
	Date      string         `json:"date"`
	Timestamp time.Time      `json:"timestamp"`
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"by_status"`
	BySide    map[string]int `json:"by_side"`
}

// TradeLogger appends order attempts to a daily JSONL file.
// It is safe for concurrent use.
type TradeLogger struct {
	baseDir string
	logger  *Logger

	mu       sync.Mutex
	byStatus map[string]int
	bySide   map[string]int
	total    int
	now      func() time.Time
}

// NewTradeLogger creates a new trade logger
func NewTradeLogger(baseDir string, logger *Logger) (*TradeLogger, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trade log directory: %w", err)
	}

	return &TradeLogger{
		baseDir:  baseDir,
		logger:   logger,
		byStatus: make(map[string]int),
		bySide:   make(map[string]int),
		now:      time.Now,
	}, nil
}

// LogTrade logs a trade to both structured logs and the daily trade file
func (tl *TradeLogger) LogTrade(trade TradeLog) error {
	if trade.Timestamp.IsZero() {
		trade.Timestamp = tl.now()
	}

	tl.logger.WithFields(map[string]interface{}{
		"event":      "trade_logged",
		"order_id":   trade.OrderID,
		"trade_type": trade.TradeType,
		"mint":       trade.Mint,
		"amount":     trade.Amount,
		"attempt":    trade.Attempt,
		"signature":  trade.Signature,
		"status":     trade.Status,
	}).Debug("Trade logged")

	tradeBytes, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	filename := fmt.Sprintf("trades_%s.jsonl", trade.Timestamp.Format("2006-01-02"))
	path := filepath.Join(tl.baseDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trade log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(tradeBytes, '\n')); err != nil {
		return fmt.Errorf("failed to write trade to file: %w", err)
	}

	tl.total++
	tl.byStatus[trade.Status]++
	tl.bySide[trade.TradeType]++

	return nil
}

// Summary returns the counts recorded since start
func (tl *TradeLogger) Summary() TradeSummary {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	now := tl.now()
	summary := TradeSummary{
		Date:      now.Format("2006-01-02"),
		Timestamp: now,
		Total:     tl.total,
		ByStatus:  make(map[string]int, len(tl.byStatus)),
		BySide:    make(map[string]int, len(tl.bySide)),
	}
	for k, v := range tl.byStatus {
		summary.ByStatus[k] = v
	}
	for k, v := range tl.bySide {
		summary.BySide[k] = v
	}
	return summary
}

// LogDailySummary writes the session summary next to the trade files
func (tl *TradeLogger) LogDailySummary() error {
	summary := tl.Summary()

	filename := fmt.Sprintf("summary_%s.json", summary.Date)
	path := filepath.Join(tl.baseDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	tl.logger.WithFields(map[string]interface{}{
		"event":     "daily_summary",
		"total":     summary.Total,
		"confirmed": summary.ByStatus["confirmed"],
		"abandoned": summary.ByStatus["abandoned"],
	}).Info("Daily summary logged")

	return nil
}
