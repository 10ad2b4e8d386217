package swap

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"smart-money-bot-go/internal/tracker"
)

const dryRunPrefix = "dryrun-"

// Quoter prices a swap without executing it
type Quoter interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (uint64, error)
}

// DryRun pretends to swap. Every signature it hands out confirms at once and
// the wallet balances it reports are the simulated result of its own swaps.
type DryRun struct {
	quoter Quoter
	logger *logrus.Logger

	mu       sync.Mutex
	balances map[string]uint64
}

// NewDryRun creates a dry-run swapper. quoter may be nil, in which case a
// buy credits one token unit per lamport spent.
func NewDryRun(quoter Quoter, logger *logrus.Logger) *DryRun {
	return &DryRun{
		quoter:   quoter,
		logger:   logger,
		balances: make(map[string]uint64),
	}
}

// Swap records the simulated trade and returns a synthetic signature
func (d *DryRun) Swap(ctx context.Context, fromMint, toMint, ammID string, amount uint64) (string, error) {
	out := amount
	if d.quoter != nil {
		quoted, err := d.quoter.Quote(ctx, fromMint, toMint, amount)
		if err != nil {
			d.logger.WithError(err).Debug("Dry-run quote failed, using 1:1")
		} else {
			out = quoted
		}
	}

	d.mu.Lock()
	if held := d.balances[fromMint]; held >= amount {
		d.balances[fromMint] = held - amount
	} else {
		d.balances[fromMint] = 0
	}
	d.balances[toMint] += out
	d.mu.Unlock()

	sig := dryRunPrefix + uuid.NewString()
	d.logger.WithFields(logrus.Fields{
		"signature": sig,
		"from":      fromMint,
		"to":        toMint,
		"amm_id":    ammID,
		"amount":    amount,
		"out":       out,
	}).Info("🧪 Dry-run swap")

	return sig, nil
}

// GetSignatureStatus confirms dry-run signatures immediately
func (d *DryRun) GetSignatureStatus(_ context.Context, signature string) (tracker.SignatureStatus, error) {
	if strings.HasPrefix(signature, dryRunPrefix) {
		return tracker.StatusSucceeded, nil
	}
	return tracker.StatusPending, nil
}

// GetTokenBalance returns the simulated balance of mint
func (d *DryRun) GetTokenBalance(_ context.Context, mint string) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balances[mint], nil
}
