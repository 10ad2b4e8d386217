package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-money-bot-go/internal/logger"
	"smart-money-bot-go/internal/observability"
)

// Config collects everything the follower loop needs
type Config struct {
	TrackWallet  string
	PollInterval time.Duration
	Classifier   ClassifierConfig
	Machine      MachineConfig
	Executor     ExecutorConfig
}

// Deps are the external capabilities of the follower
type Deps struct {
	Chain    Chain
	Status   StatusChecker
	Balances BalanceSource
	Swapper  Swapper
	Prices   PriceSource
	Notifier Notifier
	Journal  TradeJournal
	// Wake, when set, triggers an immediate tick (realtime log subscription).
	Wake <-chan struct{}
	// Follower, when set, is told about hand-offs.
	Follower Follower
}

// Bot runs the polling loop. Ticks never overlap and all Session writes
// happen on the goroutine running Run.
type Bot struct {
	cfg        Config
	session    *Session
	poller     *Poller
	classifier *Classifier
	machine    *Machine
	executor   *Executor
	wake       <-chan struct{}
	follower   Follower
	logger     *logger.Logger
	metrics    *observability.Metrics

	runCtx  context.Context
	results chan OrderResult
}

// NewBot wires the core components together
func NewBot(cfg Config, deps Deps, log *logger.Logger, metrics *observability.Metrics) *Bot {
	b := &Bot{
		cfg:        cfg,
		session:    NewSession(cfg.TrackWallet),
		poller:     NewPoller(deps.Chain, log),
		classifier: NewClassifier(cfg.Classifier, deps.Chain, log),
		executor:   NewExecutor(cfg.Executor, deps.Swapper, deps.Status, deps.Journal, log, metrics),
		wake:       deps.Wake,
		follower:   deps.Follower,
		logger:     log,
		metrics:    metrics,
		results:    make(chan OrderResult, 4),
	}
	b.machine = NewMachine(cfg.Machine, deps.Chain, deps.Balances, deps.Prices, b, deps.Notifier, log, metrics)
	return b
}

// Session exposes the session for inspection
func (b *Bot) Session() *Session {
	return b.session
}

// Dispatch runs the order on its own goroutine; the result comes back
// through the results channel and is applied by Run.
func (b *Bot) Dispatch(req OrderRequest) {
	ctx := b.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		res := b.executor.Execute(ctx, req)
		select {
		case b.results <- res:
		case <-ctx.Done():
		}
	}()
}

// Init positions the cursor at the tracked account's newest signature
func (b *Bot) Init(ctx context.Context) error {
	if err := b.poller.Init(ctx, &b.session.Cursor); err != nil {
		return fmt.Errorf("init cursor: %w", err)
	}
	if b.follower != nil {
		if err := b.follower.Follow(b.session.Tracked); err != nil {
			b.logger.WithError(err).Warn("Realtime subscription failed, polling only")
		}
	}
	b.logger.WithFields(map[string]interface{}{
		"account":   b.session.Tracked,
		"watermark": b.session.Cursor.LastSeen,
	}).Info("👀 Checking wallet")
	return nil
}

// Run ticks until ctx is cancelled. Each tick finishes before the next one
// is scheduled; a realtime wake-up only brings the next tick forward.
func (b *Bot) Run(ctx context.Context) error {
	b.runCtx = ctx
	if err := b.Init(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(b.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-b.results:
			if err := b.machine.HandleOrderResult(ctx, b.session, res); err != nil {
				b.boundaryError("order_result", err)
			}
			continue

		case <-b.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}

		case <-timer.C:
		}

		b.Tick(ctx)
		timer.Reset(b.cfg.PollInterval)
	}
}

// Tick runs one poll: fetch new transactions, classify and apply them in
// order, then check the open position. Errors are logged, never returned.
func (b *Bot) Tick(ctx context.Context) {
	start := time.Now()
	defer func() { b.metrics.RecordTick(time.Since(start)) }()

	s := b.session
	txs, err := b.poller.Poll(ctx, &s.Cursor)
	if err != nil {
		b.boundaryError("poll", err)
	}
	b.metrics.RecordTransactions(len(txs))

	for _, tx := range txs {
		ev, err := b.classifier.Classify(ctx, s, tx)
		if err != nil {
			b.boundaryError("classify", fmt.Errorf("%s: %w", tx.Signature, err))
			continue
		}
		if ev.Kind != EventUnclassified && !(ev.Kind == EventMint && ev.Mint.Repeat) {
			b.metrics.RecordEvent(ev.Kind.String())
			b.report(ev)
		}

		handedOff, err := b.machine.HandleEvent(ctx, s, ev)
		if err != nil {
			b.boundaryError("handle_event", fmt.Errorf("%s: %w", tx.Signature, err))
		}
		if handedOff {
			if b.follower != nil {
				if err := b.follower.Follow(s.Tracked); err != nil {
					b.logger.WithError(err).Warn("Realtime resubscription failed")
				}
			}
			b.logger.WithField("account", s.Tracked).Info("👀 Checking wallet")
			break
		}
	}

	if err := b.machine.CheckPosition(ctx, s); err != nil {
		b.boundaryError("check_position", err)
	}
}

func (b *Bot) report(ev Event) {
	switch ev.Kind {
	case EventMint:
		b.logger.LogMint(ev.Signature, ev.Mint.Mint, ev.Mint.Amount, ev.Mint.Decimals, ev.Mint.FreezeDisabled)
		b.logger.LogEventTable("New token is minted", []logger.Field{
			{Name: "Signature", Value: ev.Signature},
			{Name: "Token Mint", Value: ev.Mint.Mint},
			{Name: "Decimal", Value: ev.Mint.Decimals},
			{Name: "Amount", Value: ev.Mint.Amount},
			{Name: "Freeze Disabled", Value: ev.Mint.FreezeDisabled},
		})
	case EventPoolCreated:
		p := ev.Pool
		b.logger.LogPoolCreated(ev.Signature, p.AmmID, p.BaseMint, p.QuoteMint, p.InitialPrice)
		b.logger.LogEventTable("New pool is created", []logger.Field{
			{Name: "Signature", Value: ev.Signature},
			{Name: "AMM ID", Value: p.AmmID},
			{Name: "Base Mint", Value: p.BaseMint},
			{Name: "Quote Mint", Value: p.QuoteMint},
			{Name: "Base Decimal", Value: p.BaseDecimals},
			{Name: "Quote Decimal", Value: p.QuoteDecimals},
			{Name: "Starting Price", Value: fmt.Sprintf("%g SOL", p.InitialPrice)},
			{Name: "Freeze Disabled", Value: p.FreezeDisabled},
		})
	case EventTransfer:
		t := ev.Transfer
		b.logger.LogTransfer(ev.Signature, t.Sender, t.Recipient, float64(-t.LamportDelta)/lamportsPerSol)
	}
}

func (b *Bot) boundaryError(stage string, err error) {
	b.metrics.RecordTickError(stage)
	entry := b.logger.WithField("stage", stage).WithError(err)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, ErrTransientRPC):
		entry.Warn("Transient RPC failure, retrying next tick")
	case errors.Is(err, ErrMalformedLog), errors.Is(err, ErrPartialData):
		entry.Warn("Skipping undecodable transaction")
	default:
		entry.Error("Tick error")
	}
}
