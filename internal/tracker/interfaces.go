package tracker

import (
	"context"

	"smart-money-bot-go/internal/logger"
)

// Chain is the read side of the blockchain RPC used by the poller and classifier
type Chain interface {
	GetLatestSignature(ctx context.Context, account string) (string, error)
	// GetSignaturesSince returns signatures newer than watermark, newest first.
	GetSignaturesSince(ctx context.Context, account, watermark string) ([]SignatureInfo, error)
	// GetParsedTransactions returns one entry per signature; unavailable bodies are nil.
	GetParsedTransactions(ctx context.Context, signatures []string) ([]*ParsedTransaction, error)
	GetMintInfo(ctx context.Context, mint string) (*MintInfo, error)
}

// StatusChecker reports the confirmation state of a signature
type StatusChecker interface {
	GetSignatureStatus(ctx context.Context, signature string) (SignatureStatus, error)
}

// BalanceSource reports the trading wallet's raw token balance; zero when no account exists
type BalanceSource interface {
	GetTokenBalance(ctx context.Context, mint string) (uint64, error)
}

// Swapper executes a swap through the given pool and returns its signature
type Swapper interface {
	Swap(ctx context.Context, fromMint, toMint, ammID string, amount uint64) (string, error)
}

// PriceSource returns the native (SOL) price of a token, ok=false when unknown
type PriceSource interface {
	GetPrice(ctx context.Context, mint string) (float64, bool, error)
}

// Notifier pushes a human readable message to an operator channel
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Dispatcher runs an order asynchronously and reports its result to the loop
type Dispatcher interface {
	Dispatch(req OrderRequest)
}

// Follower is told when the tracked account changes
type Follower interface {
	Follow(account string) error
}

// TradeJournal records order attempts for audit
type TradeJournal interface {
	LogTrade(trade logger.TradeLog) error
}
