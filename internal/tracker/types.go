package tracker

import (
	"fmt"
	"time"
)

// EventKind tags the variant carried by an Event
type EventKind int

const (
	EventUnclassified EventKind = iota
	EventTransfer
	EventMint
	EventPoolCreated
)

func (k EventKind) String() string {
	switch k {
	case EventTransfer:
		return "transfer"
	case EventMint:
		return "mint"
	case EventPoolCreated:
		return "pool_created"
	default:
		return "unclassified"
	}
}

// Transfer is a native SOL movement signed by the tracked account
type Transfer struct {
	Sender       string
	Recipient    string
	LamportDelta int64
	BlockTime    int64
}

// MintEvent reports a token mint observed in the tracked account's history
type MintEvent struct {
	Mint           string
	Amount         string
	Decimals       uint8
	FreezeDisabled bool
	// Repeat is set when the mint equals the last reported one; repeats are
	// not reported but still reach the state machine.
	Repeat bool
}

// PoolCreated describes a freshly initialized AMM pool
type PoolCreated struct {
	AmmID          string
	BaseMint       string
	QuoteMint      string
	BaseDecimals   uint8
	QuoteDecimals  uint8
	InitialPrice   float64
	FreezeDisabled bool
	BlockTime      int64
}

// Event is the classification result for a single transaction.
// Exactly one of Transfer, Mint or Pool is set, according to Kind.
type Event struct {
	Kind      EventKind
	Signature string
	BlockTime int64
	Transfer  *Transfer
	Mint      *MintEvent
	Pool      *PoolCreated
}

// TokenDescriptor identifies the token currently being traded
type TokenDescriptor struct {
	Mint     string
	Decimals uint8
}

// ParsedTransaction is the subset of a jsonParsed transaction the classifier needs
type ParsedTransaction struct {
	Signature    string
	BlockTime    int64
	Failed       bool
	AccountKeys  []string
	Instructions []Instruction
	PreBalances  []uint64
	PostBalances []uint64
	LogMessages  []string
}

// Instruction is a top-level instruction. Parsed instructions carry Type and
// Info; partially decoded ones carry Accounts.
type Instruction struct {
	ProgramID string
	Program   string
	Type      string
	Info      map[string]interface{}
	Accounts  []string
}

// InfoString returns a string field from the parsed instruction info
func (ix Instruction) InfoString(key string) string {
	if ix.Info == nil {
		return ""
	}
	switch v := ix.Info[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// SignatureInfo is one entry of a signature history query
type SignatureInfo struct {
	Signature string
	Failed    bool
	BlockTime int64
}

// MintInfo is the decoded state of a token mint
type MintInfo struct {
	Decimals        uint8
	FreezeAuthority bool
}

// SignatureStatus is the confirmation state of a submitted transaction
type SignatureStatus int

const (
	StatusPending SignatureStatus = iota
	StatusSucceeded
	StatusFailed
)

func (s SignatureStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// PositionState is the trading state of the session
type PositionState int

const (
	PositionNone PositionState = iota
	PositionBought
	PositionSold
)

func (s PositionState) String() string {
	switch s {
	case PositionBought:
		return "bought"
	case PositionSold:
		return "sold"
	default:
		return "none"
	}
}

// Position is the single open (or last closed) trade of the process
type Position struct {
	State        PositionState
	AmmID        string
	Token        TokenDescriptor
	InitialPrice float64
	EntryTime    time.Time
	// LastActivity is the chain time of the last qualifying activity of the
	// tracked account while the position is open.
	LastActivity  time.Time
	MaxGapSeconds int64
	// OrderInFlight is set while a buy or sell is awaiting confirmation.
	OrderInFlight bool
	// ExitPending asks for a sell as soon as the in-flight buy confirms.
	ExitPending bool
}

// SignatureCursor is the polling watermark of an account
type SignatureCursor struct {
	Account  string
	LastSeen string
}

// OrderSide is the direction of a swap
type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// OrderRequest is what the state machine asks the executor to do
type OrderRequest struct {
	Side   OrderSide
	Token  TokenDescriptor
	AmmID  string
	From   string
	To     string
	Amount uint64
}

// OrderAttempt is a single submission of an order
type OrderAttempt struct {
	ID          string
	Request     OrderRequest
	Number      int
	Signature   string
	SubmittedAt time.Time
}

// OrderOutcome is the terminal state of an order
type OrderOutcome int

const (
	OutcomeConfirmed OrderOutcome = iota
	OutcomeAbandoned
)

func (o OrderOutcome) String() string {
	if o == OutcomeAbandoned {
		return "abandoned"
	}
	return "confirmed"
}

// OrderResult is reported back to the loop once an order is finished
type OrderResult struct {
	Request   OrderRequest
	Outcome   OrderOutcome
	Signature string
	Attempts  int
	Err       error
}
