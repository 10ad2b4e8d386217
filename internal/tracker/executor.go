package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smart-money-bot-go/internal/logger"
	"smart-money-bot-go/internal/observability"
)

var errConfirmTimeout = errors.New("confirmation timed out")

// ExecutorConfig bounds the submit/confirm/resubmit cycle
type ExecutorConfig struct {
	PollInterval   time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// ConfirmTimeout is how long an attempt may stay pending before it is
	// treated as dropped and resubmitted.
	ConfirmTimeout time.Duration
}

// DefaultExecutorConfig returns the executor defaults
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		PollInterval:   time.Second,
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		ConfirmTimeout: 90 * time.Second,
	}
}

// Executor submits swaps and drives them to confirmation. Each call to
// Execute owns exactly one in-flight attempt at a time.
type Executor struct {
	cfg     ExecutorConfig
	swapper Swapper
	status  StatusChecker
	journal TradeJournal
	logger  *logger.Logger
	metrics *observability.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor. journal and metrics may be nil.
func NewExecutor(cfg ExecutorConfig, swapper Swapper, status StatusChecker, journal TradeJournal, log *logger.Logger, metrics *observability.Metrics) *Executor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Executor{
		cfg:     cfg,
		swapper: swapper,
		status:  status,
		journal: journal,
		logger:  log,
		metrics: metrics,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Execute submits req and resubmits on submission errors, on-chain failures
// and confirmation timeouts, until it confirms or the attempt budget runs out.
func (e *Executor) Execute(ctx context.Context, req OrderRequest) OrderResult {
	orderID := uuid.NewString()
	side := req.Side.String()
	var lastErr error
	tried := 0

	for n := 1; n <= e.cfg.MaxAttempts; n++ {
		if n > 1 {
			if err := e.sleep(ctx, e.backoff(n-1)); err != nil {
				lastErr = err
				break
			}
		}

		tried = n
		attempt, err := e.submit(ctx, orderID, req, n)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			e.metrics.RecordResubmission(side, "submit_error")
			continue
		}

		err = e.awaitConfirmation(ctx, attempt)
		if err == nil {
			e.record(attempt, "confirmed", nil)
			e.logger.LogOrder(side, req.Token.Mint, attempt.Signature, "confirmed", n)
			e.metrics.RecordOrder(side, OutcomeConfirmed.String())
			return OrderResult{
				Request:   req,
				Outcome:   OutcomeConfirmed,
				Signature: attempt.Signature,
				Attempts:  n,
			}
		}

		lastErr = err
		e.record(attempt, "failed", err)
		if ctx.Err() != nil {
			break
		}

		reason := "on_chain_failure"
		if errors.Is(err, errConfirmTimeout) {
			reason = "confirm_timeout"
		}
		e.metrics.RecordResubmission(side, reason)
		e.logger.WithFields(map[string]interface{}{
			"order_id":  orderID,
			"side":      side,
			"mint":      req.Token.Mint,
			"signature": attempt.Signature,
			"attempt":   n,
		}).WithError(err).Warn("🔁 Transaction failed, sending it again")
	}

	err := fmt.Errorf("%w: %s %s after %d attempts: %w", ErrRetriesExhausted, side, req.Token.Mint, tried, lastErr)
	e.record(&OrderAttempt{ID: orderID, Request: req, Number: tried}, "abandoned", err)
	e.logger.WithFields(map[string]interface{}{
		"order_id": orderID,
		"side":     side,
		"mint":     req.Token.Mint,
	}).WithError(err).Error("❌ Order abandoned")
	e.metrics.RecordOrder(side, OutcomeAbandoned.String())

	return OrderResult{
		Request:  req,
		Outcome:  OutcomeAbandoned,
		Attempts: tried,
		Err:      err,
	}
}

func (e *Executor) submit(ctx context.Context, orderID string, req OrderRequest, n int) (*OrderAttempt, error) {
	sig, err := e.swapper.Swap(ctx, req.From, req.To, req.AmmID, req.Amount)
	attempt := &OrderAttempt{
		ID:          orderID,
		Request:     req,
		Number:      n,
		Signature:   sig,
		SubmittedAt: e.now(),
	}
	if err != nil {
		err = fmt.Errorf("submit %s: %w", req.Side, err)
		e.record(attempt, "failed", err)
		e.logger.WithFields(map[string]interface{}{
			"order_id": orderID,
			"side":     req.Side.String(),
			"mint":     req.Token.Mint,
			"attempt":  n,
		}).WithError(err).Warn("⚠️ Swap submission failed")
		return nil, err
	}

	e.record(attempt, "submitted", nil)
	e.logger.LogOrder(req.Side.String(), req.Token.Mint, sig, "submitted", n)
	return attempt, nil
}

// awaitConfirmation polls until the attempt succeeds (nil), fails on chain,
// times out, or ctx ends. Status lookup errors are treated as still pending.
func (e *Executor) awaitConfirmation(ctx context.Context, attempt *OrderAttempt) error {
	for {
		status, err := e.status.GetSignatureStatus(ctx, attempt.Signature)
		if err != nil {
			e.logger.WithTransaction(attempt.Signature).WithError(err).Debug("Status lookup failed, still pending")
		} else {
			switch status {
			case StatusSucceeded:
				return nil
			case StatusFailed:
				return fmt.Errorf("%w: %s", ErrOnChainFailure, attempt.Signature)
			}
		}

		if e.cfg.ConfirmTimeout > 0 && e.now().Sub(attempt.SubmittedAt) >= e.cfg.ConfirmTimeout {
			return fmt.Errorf("%w: %s", errConfirmTimeout, attempt.Signature)
		}
		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// backoff returns the delay before retry n (1-based), doubling up to MaxBackoff
func (e *Executor) backoff(n int) time.Duration {
	d := e.cfg.InitialBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if e.cfg.MaxBackoff > 0 && d >= e.cfg.MaxBackoff {
			return e.cfg.MaxBackoff
		}
	}
	return d
}

func (e *Executor) record(attempt *OrderAttempt, status string, err error) {
	if e.journal == nil {
		return
	}
	entry := logger.TradeLog{
		Timestamp: e.now(),
		OrderID:   attempt.ID,
		TradeType: attempt.Request.Side.String(),
		Mint:      attempt.Request.Token.Mint,
		AmmID:     attempt.Request.AmmID,
		Amount:    attempt.Request.Amount,
		Attempt:   attempt.Number,
		Signature: attempt.Signature,
		Status:    status,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if jerr := e.journal.LogTrade(entry); jerr != nil {
		e.logger.WithError(jerr).Warn("Failed to write trade journal")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
