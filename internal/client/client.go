package client

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"smart-money-bot-go/internal/tracker"
)

// signaturePageSize is the largest page getSignaturesForAddress returns
const signaturePageSize = 1000

// Client represents a Solana RPC client wrapper. It implements the chain
// reads the follower needs plus transaction submission.
type Client struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
	logger     *logrus.Logger
}

// ClientConfig contains configuration for Solana client
type ClientConfig struct {
	RPCEndpoint string
	APIKey      string
	Commitment  string
}

// NewClient creates a new Solana RPC client
func NewClient(config ClientConfig, logger *logrus.Logger) *Client {
	if config.Commitment == "" {
		config.Commitment = string(rpc.CommitmentConfirmed)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if config.APIKey != "" {
		headers["Authorization"] = "Bearer " + config.APIKey
	}

	return &Client{
		client:     rpc.NewWithHeaders(config.RPCEndpoint, headers),
		commitment: rpc.CommitmentType(config.Commitment),
		logger:     logger,
	}
}

// GetLatestSignature returns the newest signature touching account, or ""
// when the account has no history.
func (c *Client) GetLatestSignature(ctx context.Context, account string) (string, error) {
	pubkey, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}

	limit := 1
	out, err := c.client.GetSignaturesForAddressWithOpts(ctx, pubkey, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	})
	if err != nil {
		return "", fmt.Errorf("%w: getSignaturesForAddress %s: %v", tracker.ErrTransientRPC, account, err)
	}
	if len(out) == 0 {
		return "", nil
	}
	return out[0].Signature.String(), nil
}

// GetSignaturesSince returns every signature newer than watermark, newest
// first, following pagination until the watermark is reached.
func (c *Client) GetSignaturesSince(ctx context.Context, account, watermark string) ([]tracker.SignatureInfo, error) {
	pubkey, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{Commitment: c.commitment}
	if watermark != "" {
		until, err := solana.SignatureFromBase58(watermark)
		if err != nil {
			return nil, fmt.Errorf("invalid watermark: %w", err)
		}
		opts.Until = until
	}
	limit := signaturePageSize
	opts.Limit = &limit

	var result []tracker.SignatureInfo
	for {
		page, err := c.client.GetSignaturesForAddressWithOpts(ctx, pubkey, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: getSignaturesForAddress %s: %v", tracker.ErrTransientRPC, account, err)
		}

		for _, s := range page {
			info := tracker.SignatureInfo{
				Signature: s.Signature.String(),
				Failed:    s.Err != nil,
			}
			if s.BlockTime != nil {
				info.BlockTime = int64(*s.BlockTime)
			}
			result = append(result, info)
		}

		// Without a watermark only the newest page matters
		if len(page) < signaturePageSize || watermark == "" {
			break
		}
		opts.Before = page[len(page)-1].Signature
	}

	return result, nil
}

// GetParsedTransactions fetches jsonParsed bodies in order. Transactions the
// node does not return yet come back as nil entries.
func (c *Client) GetParsedTransactions(ctx context.Context, signatures []string) ([]*tracker.ParsedTransaction, error) {
	result := make([]*tracker.ParsedTransaction, len(signatures))
	for i, sig := range signatures {
		tx, err := c.getParsedTransaction(ctx, sig)
		if err != nil {
			return nil, err
		}
		result[i] = tx
	}
	return result, nil
}

func (c *Client) getParsedTransaction(ctx context.Context, signature string) (*tracker.ParsedTransaction, error) {
	maxVersion := uint64(0)
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": maxVersion,
		},
	}

	var out *parsedTransactionResult
	if err := c.client.RPCCallForInto(ctx, &out, "getTransaction", params); err != nil {
		return nil, fmt.Errorf("%w: getTransaction %s: %v", tracker.ErrTransientRPC, signature, err)
	}
	if out == nil {
		c.logger.WithField("signature", signature).Debug("Transaction not available yet")
		return nil, nil
	}
	return out.toParsed(signature), nil
}

// GetMintInfo decodes the mint account of an SPL token
func (c *Client) GetMintInfo(ctx context.Context, mint string) (*tracker.MintInfo, error) {
	pubkey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint: %w", err)
	}

	var decoded token.Mint
	if err := c.client.GetAccountDataInto(ctx, pubkey, &decoded); err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: mint %s not found", tracker.ErrPartialData, mint)
		}
		return nil, fmt.Errorf("%w: getAccountInfo %s: %v", tracker.ErrTransientRPC, mint, err)
	}

	return &tracker.MintInfo{
		Decimals:        decoded.Decimals,
		FreezeAuthority: decoded.FreezeAuthority != nil,
	}, nil
}

// GetSignatureStatus maps a signature status onto pending, succeeded or failed
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (tracker.SignatureStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return tracker.StatusPending, fmt.Errorf("invalid signature: %w", err)
	}

	result, err := c.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return tracker.StatusPending, fmt.Errorf("%w: getSignatureStatuses: %v", tracker.ErrTransientRPC, err)
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return tracker.StatusPending, nil
	}

	status := result.Value[0]
	if status.Err != nil {
		return tracker.StatusFailed, nil
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return tracker.StatusSucceeded, nil
	default:
		return tracker.StatusPending, nil
	}
}

// GetTokenBalance sums the raw amount of mint held across owner's token accounts
func (c *Client) GetTokenBalance(ctx context.Context, owner, mint string) (uint64, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, fmt.Errorf("invalid owner: %w", err)
	}
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("invalid mint: %w", err)
	}

	result, err := c.client.GetTokenAccountsByOwner(ctx, ownerKey,
		&rpc.GetTokenAccountsConfig{Mint: &mintKey},
		&rpc.GetTokenAccountsOpts{Commitment: c.commitment, Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return 0, fmt.Errorf("%w: getTokenAccountsByOwner: %v", tracker.ErrTransientRPC, err)
	}

	var total uint64
	for _, acc := range result.Value {
		if acc == nil || acc.Account.Data == nil {
			continue
		}
		data := acc.Account.Data.GetBinary()
		// SPL token account layout: mint(32) owner(32) amount(u64 LE)
		if len(data) < 72 {
			continue
		}
		total += binary.LittleEndian.Uint64(data[64:72])
	}
	return total, nil
}

// GetLatestBlockhash returns the blockhash to build transactions against
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}

	return result.Value.Blockhash, nil
}

// SendTransaction sends a signed transaction without preflight. Confirmation
// is tracked separately through GetSignatureStatus.
func (c *Client) SendTransaction(ctx context.Context, transaction *solana.Transaction) (solana.Signature, error) {
	sig, err := c.client.SendTransactionWithOpts(ctx, transaction, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction failed: %w", err)
	}

	return sig, nil
}

// GetBalance gets account balance in lamports
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %w", err)
	}

	result, err := c.client.GetBalance(ctx, pubkey, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("getBalance failed: %w", err)
	}

	return result.Value, nil
}

// GetSlot gets current slot
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	result, err := c.client.GetSlot(ctx, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("getSlot failed: %w", err)
	}

	return result, nil
}

// parsedTransactionResult is the jsonParsed getTransaction response
type parsedTransactionResult struct {
	BlockTime *int64 `json:"blockTime"`
	Meta      *struct {
		Err          interface{} `json:"err"`
		PreBalances  []uint64    `json:"preBalances"`
		PostBalances []uint64    `json:"postBalances"`
		LogMessages  []string    `json:"logMessages"`
	} `json:"meta"`
	Transaction struct {
		Signatures []string `json:"signatures"`
		Message    struct {
			AccountKeys []struct {
				Pubkey string `json:"pubkey"`
			} `json:"accountKeys"`
			Instructions []parsedInstruction `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type parsedInstruction struct {
	ProgramID string          `json:"programId"`
	Program   string          `json:"program"`
	Parsed    json.RawMessage `json:"parsed"`
	Accounts  []string        `json:"accounts"`
}

func (r *parsedTransactionResult) toParsed(signature string) *tracker.ParsedTransaction {
	tx := &tracker.ParsedTransaction{Signature: signature}
	if r.BlockTime != nil {
		tx.BlockTime = *r.BlockTime
	}
	if r.Meta != nil {
		tx.Failed = r.Meta.Err != nil
		tx.PreBalances = r.Meta.PreBalances
		tx.PostBalances = r.Meta.PostBalances
		tx.LogMessages = r.Meta.LogMessages
	}
	for _, key := range r.Transaction.Message.AccountKeys {
		tx.AccountKeys = append(tx.AccountKeys, key.Pubkey)
	}
	for _, ix := range r.Transaction.Message.Instructions {
		tx.Instructions = append(tx.Instructions, ix.toInstruction())
	}
	return tx
}

func (ix parsedInstruction) toInstruction() tracker.Instruction {
	out := tracker.Instruction{
		ProgramID: ix.ProgramID,
		Program:   ix.Program,
		Accounts:  ix.Accounts,
	}
	// Some programs (memo) report parsed as a bare string
	if len(ix.Parsed) > 0 && ix.Parsed[0] == '{' {
		var parsed struct {
			Type string                 `json:"type"`
			Info map[string]interface{} `json:"info"`
		}
		if err := json.Unmarshal(ix.Parsed, &parsed); err == nil {
			out.Type = parsed.Type
			out.Info = parsed.Info
		}
	}
	return out
}
