package tracker

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	initLogMarker = "InitializeInstruction2"

	ammAccountIndex       = 4
	baseMintAccountIndex  = 8
	quoteMintAccountIndex = 9
)

// InitAmounts are the initial reserves announced in a pool initialization log
type InitAmounts struct {
	PC   uint64
	Coin uint64
}

// ParseInitLog finds the pool initialization line in the program logs and
// extracts init_pc_amount and init_coin_amount.
func ParseInitLog(logs []string) (InitAmounts, error) {
	var line string
	for _, l := range logs {
		if strings.Contains(l, initLogMarker) {
			line = l
			break
		}
	}
	if line == "" {
		return InitAmounts{}, fmt.Errorf("%w: no %s line", ErrMalformedLog, initLogMarker)
	}

	var amounts InitAmounts
	var havePC, haveCoin bool
	for _, pair := range strings.Split(line, ", ") {
		kv := strings.SplitN(pair, ": ", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		if key != "init_pc_amount" && key != "init_coin_amount" {
			continue
		}

		v, err := parseLeadingUint(kv[1])
		if err != nil {
			return InitAmounts{}, fmt.Errorf("%w: %s: %v", ErrMalformedLog, key, err)
		}
		if key == "init_pc_amount" {
			amounts.PC, havePC = v, true
		} else {
			amounts.Coin, haveCoin = v, true
		}
	}

	if !havePC || !haveCoin {
		return InitAmounts{}, fmt.Errorf("%w: missing init amounts in %q", ErrMalformedLog, line)
	}
	if amounts.Coin == 0 || amounts.PC == 0 {
		return InitAmounts{}, fmt.Errorf("%w: zero init amount in %q", ErrMalformedLog, line)
	}
	return amounts, nil
}

// parseLeadingUint parses the digits at the start of s, so that a value
// followed by " }" at the end of the log line still parses.
func parseLeadingUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return strconv.ParseUint(s[:end], 10, 64)
}

// InitialPrice is the pool's opening price of one base token in quote tokens
func InitialPrice(amounts InitAmounts, baseDecimals, quoteDecimals uint8) float64 {
	scale := math.Pow10(int(quoteDecimals) - int(baseDecimals))
	return float64(amounts.PC) / (float64(amounts.Coin) * scale)
}

// PoolDecoder turns an AMM initialization instruction into a PoolCreated event
type PoolDecoder struct {
	chain Chain
}

// NewPoolDecoder creates a decoder that resolves decimals through chain
func NewPoolDecoder(chain Chain) *PoolDecoder {
	return &PoolDecoder{chain: chain}
}

// AmmID returns the pool address referenced by an AMM instruction
func AmmID(ix Instruction) (string, error) {
	if len(ix.Accounts) <= quoteMintAccountIndex {
		return "", fmt.Errorf("%w: amm instruction has %d accounts", ErrPartialData, len(ix.Accounts))
	}
	return ix.Accounts[ammAccountIndex], nil
}

// Decode builds the PoolCreated event for ix within tx
func (d *PoolDecoder) Decode(ctx context.Context, ix Instruction, tx *ParsedTransaction) (*PoolCreated, error) {
	ammID, err := AmmID(ix)
	if err != nil {
		return nil, err
	}

	amounts, err := ParseInitLog(tx.LogMessages)
	if err != nil {
		return nil, err
	}

	baseMint := ix.Accounts[baseMintAccountIndex]
	quoteMint := ix.Accounts[quoteMintAccountIndex]

	baseInfo, err := d.chain.GetMintInfo(ctx, baseMint)
	if err != nil {
		return nil, fmt.Errorf("base mint %s: %w", baseMint, err)
	}
	quoteInfo, err := d.chain.GetMintInfo(ctx, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("quote mint %s: %w", quoteMint, err)
	}

	return &PoolCreated{
		AmmID:          ammID,
		BaseMint:       baseMint,
		QuoteMint:      quoteMint,
		BaseDecimals:   baseInfo.Decimals,
		QuoteDecimals:  quoteInfo.Decimals,
		InitialPrice:   InitialPrice(amounts, baseInfo.Decimals, quoteInfo.Decimals),
		FreezeDisabled: !baseInfo.FreezeAuthority,
		BlockTime:      tx.BlockTime,
	}, nil
}
