package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"smart-money-bot-go/internal/logger"
)

func testLogger() *logger.Logger {
	l, _ := logtest.NewNullLogger()
	return logger.Wrap(l)
}

type fakeChain struct {
	mu sync.Mutex

	latest     map[string]string
	latestErr  error
	signatures map[string][]SignatureInfo
	sigErr     error
	txs        map[string]*ParsedTransaction
	txErr      error
	mints      map[string]*MintInfo

	sinceCalls []string
	mintCalls  int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		latest:     map[string]string{},
		signatures: map[string][]SignatureInfo{},
		txs:        map[string]*ParsedTransaction{},
		mints:      map[string]*MintInfo{},
	}
}

func (f *fakeChain) GetLatestSignature(_ context.Context, account string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return "", f.latestErr
	}
	return f.latest[account], nil
}

// GetSignaturesSince returns the configured history (newest first) cut at watermark
func (f *fakeChain) GetSignaturesSince(_ context.Context, account, watermark string) ([]SignatureInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinceCalls = append(f.sinceCalls, watermark)
	if f.sigErr != nil {
		return nil, f.sigErr
	}
	var out []SignatureInfo
	for _, s := range f.signatures[account] {
		if s.Signature == watermark {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeChain) GetParsedTransactions(_ context.Context, signatures []string) ([]*ParsedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txErr != nil {
		return nil, f.txErr
	}
	out := make([]*ParsedTransaction, len(signatures))
	for i, sig := range signatures {
		out[i] = f.txs[sig]
	}
	return out, nil
}

func (f *fakeChain) GetMintInfo(_ context.Context, mint string) (*MintInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintCalls++
	info, ok := f.mints[mint]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mint %s", ErrTransientRPC, mint)
	}
	return info, nil
}

type fakeBalances struct {
	balances map[string]uint64
	err      error
}

func (f *fakeBalances) GetTokenBalance(_ context.Context, mint string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.balances[mint], nil
}

// fakePrices serves a fixed feed, one price per call
type fakePrices struct {
	feed  []float64
	calls int
}

func (f *fakePrices) GetPrice(context.Context, string) (float64, bool, error) {
	if f.calls >= len(f.feed) {
		return 0, false, nil
	}
	p := f.feed[f.calls]
	f.calls++
	return p, true, nil
}

type recordingDispatcher struct {
	requests []OrderRequest
}

func (d *recordingDispatcher) Dispatch(req OrderRequest) {
	d.requests = append(d.requests, req)
}

// fakeSwapper returns the scripted signatures (or errors) in order
type fakeSwapper struct {
	mu      sync.Mutex
	results []swapResult
	calls   []OrderRequest
}

type swapResult struct {
	sig string
	err error
}

func (f *fakeSwapper) Swap(_ context.Context, from, to, ammID string, amount uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, OrderRequest{From: from, To: to, AmmID: ammID, Amount: amount})
	if len(f.results) == 0 {
		return "", errors.New("no scripted swap result")
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.sig, r.err
}

func (f *fakeSwapper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeStatus replays a status sequence per signature, repeating the last one
type fakeStatus struct {
	mu       sync.Mutex
	statuses map[string][]SignatureStatus
}

func (f *fakeStatus) GetSignatureStatus(_ context.Context, sig string) (SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := f.statuses[sig]
	if len(seq) == 0 {
		return StatusPending, nil
	}
	st := seq[0]
	if len(seq) > 1 {
		f.statuses[sig] = seq[1:]
	}
	return st, nil
}

type fakeJournal struct {
	mu       sync.Mutex
	statuses []string
}

func (f *fakeJournal) LogTrade(t logger.TradeLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, t.Status)
	return nil
}

type fakeFollower struct {
	accounts []string
}

func (f *fakeFollower) Follow(account string) error {
	f.accounts = append(f.accounts, account)
	return nil
}
