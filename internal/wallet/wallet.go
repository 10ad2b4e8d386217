package wallet

import (
	"context"
	"errors"
	"fmt"

	"smart-money-bot-go/internal/config"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	bip39 "github.com/tyler-smith/go-bip39"
)

// BalanceReader is the part of the RPC client the wallet needs
type BalanceReader interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetTokenBalance(ctx context.Context, owner, mint string) (uint64, error)
}

// Wallet is the trading keypair
type Wallet struct {
	account types.Account
	signer  solana.PrivateKey
	reader  BalanceReader
	logger  *logrus.Logger
}

// WalletConfig contains wallet configuration. PrivateKey wins over Mnemonic.
type WalletConfig struct {
	PrivateKey string
	Mnemonic   string
	Passphrase string
	Network    string
}

// NewWallet creates a new wallet instance from a base58 private key or a
// BIP39 mnemonic
func NewWallet(cfg WalletConfig, reader BalanceReader, logger *logrus.Logger) (*Wallet, error) {
	account, err := accountFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	wallet := &Wallet{
		account: account,
		signer:  solana.PrivateKey(account.PrivateKey),
		reader:  reader,
		logger:  logger,
	}

	logger.WithFields(logrus.Fields{
		"public_key": wallet.Address(),
		"network":    cfg.Network,
	}).Info("Wallet initialized")

	return wallet, nil
}

func accountFromConfig(cfg WalletConfig) (types.Account, error) {
	switch {
	case cfg.PrivateKey != "":
		account, err := types.AccountFromBase58(cfg.PrivateKey)
		if err != nil {
			return types.Account{}, fmt.Errorf("invalid private key: %w", err)
		}
		return account, nil

	case cfg.Mnemonic != "":
		if !bip39.IsMnemonicValid(cfg.Mnemonic) {
			return types.Account{}, errors.New("invalid mnemonic")
		}
		// solana-keygen derivation: the first 32 bytes of the BIP39 seed
		seed := bip39.NewSeed(cfg.Mnemonic, cfg.Passphrase)
		account, err := types.AccountFromSeed(seed[:32])
		if err != nil {
			return types.Account{}, fmt.Errorf("derive account from mnemonic: %w", err)
		}
		return account, nil

	default:
		return types.Account{}, errors.New("private key or mnemonic is required")
	}
}

// PublicKey returns the wallet's public key
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.signer.PublicKey()
}

// Address returns the wallet's public key as base58 string
func (w *Wallet) Address() string {
	return w.account.PublicKey.ToBase58()
}

// Sign adds the wallet signature to a transaction built for it
func (w *Wallet) Sign(tx *solana.Transaction) error {
	pub := w.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &w.signer
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}

// GetBalance returns the wallet's SOL balance in lamports
func (w *Wallet) GetBalance(ctx context.Context) (uint64, error) {
	balance, err := w.reader.GetBalance(ctx, w.Address())
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"balance_lamports": balance,
		"balance_sol":      config.ConvertLamportsToSOL(balance),
	}).Debug("Retrieved wallet balance")

	return balance, nil
}

// GetBalanceSOL returns the wallet's SOL balance as float64
func (w *Wallet) GetBalanceSOL(ctx context.Context) (float64, error) {
	balance, err := w.GetBalance(ctx)
	if err != nil {
		return 0, err
	}
	return config.ConvertLamportsToSOL(balance), nil
}

// GetTokenBalance returns the raw amount of mint held by the wallet
func (w *Wallet) GetTokenBalance(ctx context.Context, mint string) (uint64, error) {
	return w.reader.GetTokenBalance(ctx, w.Address(), mint)
}
