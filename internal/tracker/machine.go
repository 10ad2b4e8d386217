package tracker

import (
	"context"
	"fmt"
	"time"

	"smart-money-bot-go/internal/logger"
	"smart-money-bot-go/internal/observability"
)

const (
	lamportsPerSol = 1_000_000_000

	// WrappedSOLMint is the mint buys are paid from and sells are paid into
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
)

// MachineConfig parameterizes the trading state machine
type MachineConfig struct {
	TransferThresholdSOL float64
	ActivityThresholdSOL float64
	BuyAmountSOL         float64
	TakeProfit           float64
	LossStop             float64
	StoppingTime         time.Duration
	// ActivityLogGap is the activity gap above which a gap is logged.
	ActivityLogGap        time.Duration
	RequireFreezeDisabled bool
	SellOnHandoff         bool
	SellOnRemint          bool
	RearmAfterSell        bool
	MinSellUnits          uint64
	QuoteMint             string
}

// Machine is the None -> Bought -> Sold trading state machine. All methods
// must be called from the loop goroutine that owns the Session.
type Machine struct {
	cfg      MachineConfig
	chain    Chain
	balances BalanceSource
	prices   PriceSource
	orders   Dispatcher
	notifier Notifier
	logger   *logger.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewMachine creates a state machine. notifier and metrics may be nil.
func NewMachine(cfg MachineConfig, chain Chain, balances BalanceSource, prices PriceSource, orders Dispatcher, notifier Notifier, log *logger.Logger, metrics *observability.Metrics) *Machine {
	if cfg.QuoteMint == "" {
		cfg.QuoteMint = WrappedSOLMint
	}
	return &Machine{
		cfg:      cfg,
		chain:    chain,
		balances: balances,
		prices:   prices,
		orders:   orders,
		notifier: notifier,
		logger:   log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// HandleEvent applies one classified event. It reports whether tracking moved
// to a new account, in which case the rest of the batch must be dropped.
func (m *Machine) HandleEvent(ctx context.Context, s *Session, ev Event) (bool, error) {
	var handedOff bool
	var err error

	switch ev.Kind {
	case EventTransfer:
		handedOff, err = m.onTransfer(ctx, s, ev)
	case EventPoolCreated:
		err = m.onPoolCreated(ctx, s, ev)
	case EventMint:
		err = m.onMint(ctx, s, ev)
	}
	if err != nil || handedOff {
		return handedOff, err
	}

	if ev.BlockTime > 0 {
		err = m.checkStagnation(ctx, s, time.Unix(ev.BlockTime, 0))
	}
	return false, err
}

func (m *Machine) onTransfer(ctx context.Context, s *Session, ev Event) (bool, error) {
	t := ev.Transfer
	if t.Sender != s.Tracked || t.Recipient == s.Tracked {
		return false, nil
	}

	switch {
	case t.LamportDelta <= -solToLamports(m.cfg.TransferThresholdSOL):
		return true, m.handoff(ctx, s, ev)
	case m.cfg.ActivityThresholdSOL > 0 && t.LamportDelta <= -solToLamports(m.cfg.ActivityThresholdSOL):
		m.recordActivity(s, time.Unix(t.BlockTime, 0))
	}
	return false, nil
}

// recordActivity moves the stagnation clock and tracks the largest gap
func (m *Machine) recordActivity(s *Session, at time.Time) {
	if s.Position.State != PositionBought {
		return
	}
	// Batches arrive newest first, so an older transfer must not move the clock back
	if !at.After(s.Position.LastActivity) {
		return
	}
	gap := int64(at.Sub(s.Position.LastActivity).Seconds())
	s.Position.LastActivity = at
	if gap > s.Position.MaxGapSeconds {
		s.Position.MaxGapSeconds = gap
		m.metrics.SetActivityGapMax(gap)
	}
	if m.cfg.ActivityLogGap > 0 && time.Duration(gap)*time.Second > m.cfg.ActivityLogGap {
		m.logger.WithFields(map[string]interface{}{
			"gap_seconds":     gap,
			"max_gap_seconds": s.Position.MaxGapSeconds,
		}).Info("⏳ Smart money activity gap")
	}
}

func (m *Machine) handoff(ctx context.Context, s *Session, ev Event) error {
	from, to := s.Tracked, ev.Transfer.Recipient

	watermark, err := m.chain.GetLatestSignature(ctx, to)
	if err != nil {
		// The transfer itself is in the recipient's history, so it is a safe
		// watermark that does not skip anything newer.
		m.logger.WithError(err).WithField("account", to).Warn("Latest signature unavailable, using transfer as watermark")
		watermark = ev.Signature
	}

	m.logger.LogHandoff(from, to, ev.Signature)
	m.logger.LogEventTable(fmt.Sprintf("Detected over %g SOL transferring", m.cfg.TransferThresholdSOL), []logger.Field{
		{Name: "Signature", Value: ev.Signature},
		{Name: "From", Value: from},
		{Name: "To", Value: to},
		{Name: "Amount", Value: fmt.Sprintf("%g SOL", float64(-ev.Transfer.LamportDelta)/lamportsPerSol)},
	})
	m.metrics.RecordHandoff()
	m.notify(ctx, fmt.Sprintf("Tracking moved from %s to %s", from, to))

	s.Retarget(to, watermark)

	if s.Position.State != PositionBought {
		return nil
	}

	if !m.cfg.SellOnHandoff {
		m.logger.WithToken(s.Position.Token.Mint).WithField("amm_id", s.Position.AmmID).
			Warn("⚠️ Position abandoned on hand-off, tokens stay in the wallet")
		s.ResetPosition()
		m.metrics.SetPositionState(int(PositionNone))
		return nil
	}

	if s.Position.OrderInFlight {
		s.Position.ExitPending = true
		return nil
	}
	return m.sell(ctx, s, "handoff")
}

// onMint exits when more of the held token is minted
func (m *Machine) onMint(ctx context.Context, s *Session, ev Event) error {
	if !m.cfg.SellOnRemint || s.Position.State != PositionBought || s.Position.OrderInFlight {
		return nil
	}
	if ev.Mint.Mint != s.Position.Token.Mint {
		return nil
	}
	m.logger.WithToken(ev.Mint.Mint).WithField("amount", ev.Mint.Amount).Warn("🚨 Held token minted again")
	return m.sell(ctx, s, "remint")
}

func (m *Machine) onPoolCreated(ctx context.Context, s *Session, ev Event) error {
	pool := ev.Pool
	entry := m.logger.WithFields(map[string]interface{}{
		"amm_id": pool.AmmID,
		"mint":   pool.BaseMint,
	})

	switch {
	case pool.InitialPrice <= 0:
		entry.Warn("Pool has no initial price, skipping")
		return nil
	case pool.AmmID == s.Position.AmmID || s.Traded(pool.AmmID):
		entry.Debug("Pool already traded, ignoring")
		return nil
	case s.Position.State == PositionBought:
		entry.Info("Already holding a position, ignoring pool")
		return nil
	case s.Position.State == PositionSold:
		if s.Position.OrderInFlight || !m.cfg.RearmAfterSell {
			entry.Info("Position closed, ignoring pool")
			return nil
		}
	}

	if m.cfg.RequireFreezeDisabled && !pool.FreezeDisabled {
		entry.Info("🧊 Freeze authority still enabled, skipping pool")
		return nil
	}
	if pool.BaseMint == m.cfg.QuoteMint {
		entry.Info("Base mint is the quote currency, skipping pool")
		return nil
	}

	at := m.now()
	if pool.BlockTime > 0 {
		at = time.Unix(pool.BlockTime, 0)
	}

	s.Position = Position{
		State:         PositionBought,
		AmmID:         pool.AmmID,
		Token:         TokenDescriptor{Mint: pool.BaseMint, Decimals: pool.BaseDecimals},
		InitialPrice:  pool.InitialPrice,
		EntryTime:     m.now(),
		LastActivity:  at,
		OrderInFlight: true,
	}
	s.MarkTraded(pool.AmmID)
	m.metrics.SetPositionState(int(PositionBought))

	req := OrderRequest{
		Side:   SideBuy,
		Token:  s.Position.Token,
		AmmID:  pool.AmmID,
		From:   m.cfg.QuoteMint,
		To:     pool.BaseMint,
		Amount: uint64(solToLamports(m.cfg.BuyAmountSOL)),
	}
	m.logger.LogEventTable("Buying new token", []logger.Field{
		{Name: "Token Address", Value: pool.BaseMint},
		{Name: "AMM ID", Value: pool.AmmID},
		{Name: "Spent", Value: fmt.Sprintf("%g SOL", m.cfg.BuyAmountSOL)},
	})
	m.notify(ctx, fmt.Sprintf("Buying %s (%g SOL) on pool %s", pool.BaseMint, m.cfg.BuyAmountSOL, pool.AmmID))
	m.orders.Dispatch(req)
	return nil
}

// CheckPosition runs the per-tick exits: stagnation against wall time, then
// take-profit and loss-stop against the current price.
func (m *Machine) CheckPosition(ctx context.Context, s *Session) error {
	if s.Position.State != PositionBought || s.Position.OrderInFlight {
		return nil
	}
	if err := m.checkStagnation(ctx, s, m.now()); err != nil || s.Position.State != PositionBought {
		return err
	}

	mint := s.Position.Token.Mint
	balance, err := m.balances.GetTokenBalance(ctx, mint)
	if err != nil {
		return fmt.Errorf("token balance %s: %w", mint, err)
	}
	if balance == 0 {
		return nil
	}

	price, ok, err := m.prices.GetPrice(ctx, mint)
	if err != nil {
		return fmt.Errorf("price %s: %w", mint, err)
	}
	if !ok {
		return nil
	}

	initial := s.Position.InitialPrice
	if initial > 0 {
		ratio := price / initial
		m.metrics.SetPriceRatio(ratio)
		m.logger.WithFields(map[string]interface{}{
			"mint":          mint,
			"price":         price,
			"initial_price": initial,
			"take_profit":   fmt.Sprintf("%.1f%%", ratio/m.cfg.TakeProfit*100),
		}).Info("📈 Take-profit progress")
	}

	switch {
	case price >= initial*m.cfg.TakeProfit:
		return m.sell(ctx, s, "take_profit")
	case price < initial*m.cfg.LossStop:
		return m.sell(ctx, s, "loss_stop")
	}
	return nil
}

func (m *Machine) checkStagnation(ctx context.Context, s *Session, at time.Time) error {
	if m.cfg.StoppingTime <= 0 || s.Position.State != PositionBought || s.Position.OrderInFlight {
		return nil
	}
	idle := at.Sub(s.Position.LastActivity)
	if idle <= m.cfg.StoppingTime {
		return nil
	}

	m.logger.WithFields(map[string]interface{}{
		"idle_seconds":    int64(idle.Seconds()),
		"max_gap_seconds": s.Position.MaxGapSeconds,
	}).Info("🛑 Smart money went quiet, stopping")
	return m.sell(ctx, s, "stagnation")
}

// sell moves the position to Sold and dispatches a sell of the full balance.
// Balances at or below MinSellUnits are treated as already closed.
func (m *Machine) sell(ctx context.Context, s *Session, reason string) error {
	mint := s.Position.Token.Mint
	balance, err := m.balances.GetTokenBalance(ctx, mint)
	if err != nil {
		return fmt.Errorf("token balance %s: %w", mint, err)
	}

	s.Position.State = PositionSold
	s.Position.ExitPending = false
	m.metrics.SetPositionState(int(PositionSold))

	if balance <= m.cfg.MinSellUnits {
		m.logger.WithToken(mint).WithFields(map[string]interface{}{
			"balance": balance,
			"reason":  reason,
		}).Warn("Nothing worth selling, closing position")
		m.closePosition(s)
		return nil
	}

	s.Position.OrderInFlight = true
	m.logger.LogEventTable("Selling the token", []logger.Field{
		{Name: "Token Address", Value: mint},
		{Name: "Amount", Value: balance},
		{Name: "Reason", Value: reason},
	})
	m.notify(ctx, fmt.Sprintf("Selling %s (%s)", mint, reason))
	m.orders.Dispatch(OrderRequest{
		Side:   SideSell,
		Token:  s.Position.Token,
		AmmID:  s.Position.AmmID,
		From:   mint,
		To:     m.cfg.QuoteMint,
		Amount: balance,
	})
	return nil
}

// HandleOrderResult applies a finished order reported by the executor
func (m *Machine) HandleOrderResult(ctx context.Context, s *Session, r OrderResult) error {
	entry := m.logger.WithFields(map[string]interface{}{
		"side":      r.Request.Side.String(),
		"mint":      r.Request.Token.Mint,
		"amm_id":    r.Request.AmmID,
		"outcome":   r.Outcome.String(),
		"signature": r.Signature,
		"attempts":  r.Attempts,
	})

	if r.Request.AmmID != s.Position.AmmID || !s.Position.OrderInFlight {
		entry.Warn("Result for a position no longer tracked")
		return nil
	}
	s.Position.OrderInFlight = false

	switch r.Request.Side {
	case SideBuy:
		if r.Outcome == OutcomeAbandoned {
			entry.WithError(r.Err).Error("Buy abandoned, position reset")
			m.notify(ctx, fmt.Sprintf("Buy of %s abandoned: %v", r.Request.Token.Mint, r.Err))
			s.ResetPosition()
			m.metrics.SetPositionState(int(PositionNone))
			return nil
		}
		entry.Info("✅ Buy confirmed")
		m.notify(ctx, fmt.Sprintf("Bought %s, tx %s", r.Request.Token.Mint, r.Signature))
		if s.Position.ExitPending {
			return m.sell(ctx, s, "handoff")
		}
	case SideSell:
		if r.Outcome == OutcomeAbandoned {
			entry.WithError(r.Err).Error("Sell abandoned, tokens may remain in the wallet")
			m.notify(ctx, fmt.Sprintf("Sell of %s abandoned: %v", r.Request.Token.Mint, r.Err))
		} else {
			entry.Info("✅ Sell confirmed")
			m.notify(ctx, fmt.Sprintf("Sold %s, tx %s", r.Request.Token.Mint, r.Signature))
		}
		m.closePosition(s)
	}
	return nil
}

// closePosition leaves the position Sold, or re-arms it when configured
func (m *Machine) closePosition(s *Session) {
	if !m.cfg.RearmAfterSell {
		return
	}
	s.ResetPosition()
	m.metrics.SetPositionState(int(PositionNone))
}

func (m *Machine) notify(ctx context.Context, msg string) {
	if m.notifier == nil {
		return
	}
	go func() {
		if err := m.notifier.Notify(ctx, msg); err != nil {
			m.logger.WithError(err).Debug("Notification failed")
		}
	}()
}

func solToLamports(sol float64) int64 {
	return int64(sol * lamportsPerSol)
}
