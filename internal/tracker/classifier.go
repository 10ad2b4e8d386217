package tracker

import (
	"context"
	"fmt"
	"strings"

	"smart-money-bot-go/internal/logger"
)

const systemProgramID = "11111111111111111111111111111111"

// ClassifierConfig selects the pool program and the log marker of pool creation
type ClassifierConfig struct {
	AMMProgramID  string
	PoolLogMarker string
}

// Classifier maps one parsed transaction to at most one Event
type Classifier struct {
	cfg     ClassifierConfig
	chain   Chain
	decoder *PoolDecoder
	logger  *logger.Logger
}

// NewClassifier creates a classifier
func NewClassifier(cfg ClassifierConfig, chain Chain, log *logger.Logger) *Classifier {
	return &Classifier{
		cfg:     cfg,
		chain:   chain,
		decoder: NewPoolDecoder(chain),
		logger:  log,
	}
}

// Classify applies, in order: tracked-account SOL transfer, token mint, pool
// creation. Mint and pool detections are de-duplicated against the session.
func (c *Classifier) Classify(ctx context.Context, s *Session, tx *ParsedTransaction) (Event, error) {
	ev := Event{Kind: EventUnclassified, Signature: tx.Signature, BlockTime: tx.BlockTime}

	if ix, ok := findInstruction(tx, isSystemTransfer); ok {
		transfer, err := c.transfer(s, tx, ix)
		if err != nil {
			return ev, err
		}
		if transfer != nil {
			ev.Kind = EventTransfer
			ev.Transfer = transfer
			return ev, nil
		}
	}

	if ix, ok := findInstruction(tx, isMintTo); ok {
		mint, err := c.mint(ctx, s, ix)
		if err != nil {
			return ev, err
		}
		ev.Kind = EventMint
		ev.Mint = mint
		return ev, nil
	}

	ix, ok := findInstruction(tx, func(ix Instruction) bool { return ix.ProgramID == c.cfg.AMMProgramID })
	if !ok || !hasLog(tx.LogMessages, c.cfg.PoolLogMarker) {
		return ev, nil
	}

	ammID, err := AmmID(ix)
	if err != nil {
		return ev, err
	}
	if s.SeenPool(ammID) {
		c.logger.WithField("amm_id", ammID).Debug("Pool already handled, skipping")
		return ev, nil
	}

	pool, err := c.decoder.Decode(ctx, ix, tx)
	if err != nil {
		return ev, fmt.Errorf("decode pool %s: %w", ammID, err)
	}
	s.MarkPool(ammID)

	ev.Kind = EventPoolCreated
	ev.Pool = pool
	return ev, nil
}

// transfer returns nil when the fee payer is not the tracked account
func (c *Classifier) transfer(s *Session, tx *ParsedTransaction, ix Instruction) (*Transfer, error) {
	if len(tx.AccountKeys) < 2 || len(tx.PreBalances) == 0 || len(tx.PostBalances) == 0 {
		return nil, fmt.Errorf("%w: transfer %s lacks keys or balances", ErrPartialData, tx.Signature)
	}

	sender := tx.AccountKeys[0]
	if sender != s.Tracked {
		return nil, nil
	}

	return &Transfer{
		Sender:       sender,
		Recipient:    tx.AccountKeys[1],
		LamportDelta: int64(tx.PostBalances[0]) - int64(tx.PreBalances[0]),
		BlockTime:    tx.BlockTime,
	}, nil
}

// mint flags a repeat of the last reported mint instead of looking it up again
func (c *Classifier) mint(ctx context.Context, s *Session, ix Instruction) (*MintEvent, error) {
	mint := ix.InfoString("mint")
	if mint == "" {
		return nil, fmt.Errorf("%w: mintTo without mint", ErrPartialData)
	}

	amount := ix.InfoString("amount")
	if amount == "" {
		if ta, ok := ix.Info["tokenAmount"].(map[string]interface{}); ok {
			amount, _ = ta["amount"].(string)
		}
	}
	if mint == s.LastMint {
		return &MintEvent{Mint: mint, Amount: amount, Repeat: true}, nil
	}

	info, err := c.chain.GetMintInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("mint info %s: %w", mint, err)
	}
	s.LastMint = mint

	return &MintEvent{
		Mint:           mint,
		Amount:         amount,
		Decimals:       info.Decimals,
		FreezeDisabled: !info.FreezeAuthority,
	}, nil
}

func isSystemTransfer(ix Instruction) bool {
	return ix.Type == "transfer" && (ix.Program == "system" || ix.ProgramID == systemProgramID)
}

func isMintTo(ix Instruction) bool {
	return ix.Type == "mintTo" || ix.Type == "mintToChecked"
}

func findInstruction(tx *ParsedTransaction, match func(Instruction) bool) (Instruction, bool) {
	for _, ix := range tx.Instructions {
		if match(ix) {
			return ix, true
		}
	}
	return Instruction{}, false
}

func hasLog(logs []string, marker string) bool {
	for _, l := range logs {
		if strings.Contains(l, marker) {
			return true
		}
	}
	return false
}
