package tracker

import (
	"context"
	"fmt"

	"smart-money-bot-go/internal/logger"
)

// Poller advances a signature cursor and fetches the new transactions
type Poller struct {
	chain  Chain
	logger *logger.Logger
}

// NewPoller creates a poller over chain
func NewPoller(chain Chain, log *logger.Logger) *Poller {
	return &Poller{chain: chain, logger: log}
}

// Init points the cursor at the newest signature of its account, so only
// activity after startup is delivered.
func (p *Poller) Init(ctx context.Context, cursor *SignatureCursor) error {
	latest, err := p.chain.GetLatestSignature(ctx, cursor.Account)
	if err != nil {
		return fmt.Errorf("latest signature of %s: %w", cursor.Account, err)
	}
	cursor.LastSeen = latest
	return nil
}

// Poll returns the successful transactions newer than the cursor, newest
// first. The cursor moves to the newest signature once every body in the
// batch has been fetched; on error it is left untouched.
func (p *Poller) Poll(ctx context.Context, cursor *SignatureCursor) ([]*ParsedTransaction, error) {
	sigs, err := p.chain.GetSignaturesSince(ctx, cursor.Account, cursor.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("signatures of %s: %w", cursor.Account, err)
	}
	if len(sigs) == 0 || sigs[0].Signature == cursor.LastSeen {
		return nil, nil
	}
	newest := sigs[0].Signature

	wanted := make([]string, 0, len(sigs))
	for _, s := range sigs {
		if s.Failed || s.Signature == cursor.LastSeen {
			continue
		}
		wanted = append(wanted, s.Signature)
	}

	var txs []*ParsedTransaction
	if len(wanted) > 0 {
		bodies, err := p.chain.GetParsedTransactions(ctx, wanted)
		if err != nil {
			return nil, fmt.Errorf("transactions of %s: %w", cursor.Account, err)
		}
		if len(bodies) != len(wanted) {
			return nil, fmt.Errorf("%w: asked for %d transactions, got %d", ErrPartialData, len(wanted), len(bodies))
		}
		txs = make([]*ParsedTransaction, 0, len(bodies))
		for i, tx := range bodies {
			if tx == nil {
				p.logger.WithField("signature", wanted[i]).Debug("Transaction body unavailable, dropping")
				continue
			}
			txs = append(txs, tx)
		}
	}

	cursor.LastSeen = newest

	p.logger.WithFields(map[string]interface{}{
		"account":   cursor.Account,
		"new":       len(sigs),
		"delivered": len(txs),
		"watermark": newest,
	}).Debug("Polled account")

	return txs, nil
}
