package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botFixture struct {
	bot      *Bot
	chain    *fakeChain
	swapper  *fakeSwapper
	follower *fakeFollower
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	f := &botFixture{
		chain:    newFakeChain(),
		swapper:  &fakeSwapper{results: []swapResult{{sig: "buy1"}}},
		follower: &fakeFollower{},
	}
	f.chain.latest[smartMoney] = "s0"
	f.chain.latest[nextWallet] = "n0"
	f.chain.mints["BASE"] = &MintInfo{Decimals: 6}
	f.chain.mints[WrappedSOLMint] = &MintInfo{Decimals: 9}

	cfg := Config{
		TrackWallet:  smartMoney,
		PollInterval: time.Second,
		Classifier:   ClassifierConfig{AMMProgramID: testAMM, PoolLogMarker: "Create"},
		Machine:      defaultMachineConfig(),
		Executor:     DefaultExecutorConfig(),
	}
	deps := Deps{
		Chain:    f.chain,
		Status:   &fakeStatus{statuses: map[string][]SignatureStatus{"buy1": {StatusSucceeded}}},
		Balances: &fakeBalances{balances: map[string]uint64{}},
		Swapper:  f.swapper,
		Prices:   &fakePrices{},
		Follower: f.follower,
	}
	f.bot = NewBot(cfg, deps, testLogger(), nil)

	require.NoError(t, f.bot.Init(context.Background()))
	return f
}

func (f *botFixture) awaitResult(t *testing.T) OrderResult {
	t.Helper()
	select {
	case res := <-f.bot.results:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("no order result")
		return OrderResult{}
	}
}

func TestBotInit(t *testing.T) {
	f := newBotFixture(t)

	assert.Equal(t, "s0", f.bot.Session().Cursor.LastSeen)
	assert.Equal(t, []string{smartMoney}, f.follower.accounts)
}

func TestBotTickBuysOnNewPool(t *testing.T) {
	f := newBotFixture(t)
	f.chain.signatures[smartMoney] = history("p1", "s0")
	f.chain.txs["p1"] = poolTx("p1", "AMM1", "BASE", WrappedSOLMint, "Program log: Create", initLine)
	ctx := context.Background()

	f.bot.Tick(ctx)

	s := f.bot.Session()
	assert.Equal(t, "p1", s.Cursor.LastSeen)
	assert.Equal(t, PositionBought, s.Position.State)
	assert.True(t, s.Position.OrderInFlight)

	res := f.awaitResult(t)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, "buy1", res.Signature)

	require.NoError(t, f.bot.machine.HandleOrderResult(ctx, s, res))
	assert.Equal(t, PositionBought, s.Position.State)
	assert.False(t, s.Position.OrderInFlight)
	assert.Equal(t, "BASE", s.Position.Token.Mint)
}

func TestBotHandoffDropsRestOfBatch(t *testing.T) {
	f := newBotFixture(t)
	f.chain.signatures[smartMoney] = history("t2", "p1", "s0")
	f.chain.txs["t2"] = transferTx("t2", smartMoney, nextWallet, 60_000_000_000, 10_000_000_000)
	f.chain.txs["p1"] = poolTx("p1", "AMM1", "BASE", WrappedSOLMint, "Program log: Create", initLine)

	f.bot.Tick(context.Background())

	s := f.bot.Session()
	assert.Equal(t, nextWallet, s.Tracked)
	assert.Equal(t, SignatureCursor{Account: nextWallet, LastSeen: "n0"}, s.Cursor)
	assert.Equal(t, PositionNone, s.Position.State)
	assert.False(t, s.SeenPool("AMM1"))
	assert.Equal(t, 0, f.swapper.callCount())
	assert.Equal(t, []string{smartMoney, nextWallet}, f.follower.accounts)
}

func TestBotTickSurvivesPollErrors(t *testing.T) {
	f := newBotFixture(t)
	f.chain.sigErr = ErrTransientRPC

	f.bot.Tick(context.Background())

	assert.Equal(t, "s0", f.bot.Session().Cursor.LastSeen)
	assert.Equal(t, smartMoney, f.bot.Session().Tracked)
}

func TestBotRunAppliesResultsAndStops(t *testing.T) {
	f := newBotFixture(t)
	f.chain.signatures[smartMoney] = history("p1", "s0")
	f.chain.txs["p1"] = poolTx("p1", "AMM1", "BASE", WrappedSOLMint, "Program log: Create", initLine)

	wake := make(chan struct{}, 1)
	f.bot.wake = wake
	f.bot.cfg.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bot.Run(ctx) }()

	wake <- struct{}{}
	require.Eventually(t, func() bool { return f.swapper.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
