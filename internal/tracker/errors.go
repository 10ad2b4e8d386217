package tracker

import "errors"

var (
	// ErrTransientRPC marks a failed or timed out chain/network call.
	ErrTransientRPC = errors.New("transient rpc failure")
	// ErrMalformedLog marks a pool creation whose program log cannot be decoded.
	ErrMalformedLog = errors.New("malformed pool creation log")
	// ErrPartialData marks a transaction missing balances or account keys.
	ErrPartialData = errors.New("partial transaction data")
	// ErrOnChainFailure marks a submitted transaction that landed with an error.
	ErrOnChainFailure = errors.New("transaction failed on chain")
	// ErrRetriesExhausted marks an order abandoned after the attempt budget.
	ErrRetriesExhausted = errors.New("order retries exhausted")
)
