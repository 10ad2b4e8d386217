package swap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"smart-money-bot-go/internal/tracker"
)

// ErrNoRoute is returned when the aggregator has no liquidity for the pair
var ErrNoRoute = errors.New("no swap route")

// Sender submits a signed transaction
type Sender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Signer signs transactions for the trading wallet
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(tx *solana.Transaction) error
}

// JupiterConfig contains the swap API settings
type JupiterConfig struct {
	QuoteURL            string
	SwapURL             string
	SlippageBP          int
	PriorityFeeLamports uint64
	// JitoTipLamports, when set, asks the API to add a Jito tip instead of a
	// plain priority fee.
	JitoTipLamports   uint64
	OnlyDirectRoutes  bool
	Dexes             []string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// JupiterSwapper executes swaps through the Jupiter aggregator: quote, build,
// sign locally, send through Sender.
type JupiterSwapper struct {
	cfg        JupiterConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	signer     Signer
	sender     Sender
	logger     *logrus.Logger
}

type quoteView struct {
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	RoutePlan      []struct {
		SwapInfo struct {
			AmmKey string `json:"ammKey"`
			Label  string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
	Error string `json:"error"`
}

func (q quoteView) routesThrough(ammID string) bool {
	for _, step := range q.RoutePlan {
		if step.SwapInfo.AmmKey == ammID {
			return true
		}
	}
	return false
}

// NewJupiterSwapper creates a swapper
func NewJupiterSwapper(cfg JupiterConfig, signer Signer, sender Sender, logger *logrus.Logger) *JupiterSwapper {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}

	return &JupiterSwapper{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
		signer:     signer,
		sender:     sender,
		logger:     logger,
	}
}

// Swap sells amount base units of fromMint for toMint. ammID is the pool the
// trade was decided on; a route through a different pool is logged.
func (s *JupiterSwapper) Swap(ctx context.Context, fromMint, toMint, ammID string, amount uint64) (string, error) {
	quote, view, err := s.getQuote(ctx, fromMint, toMint, amount)
	if err != nil {
		return "", err
	}

	if ammID != "" && !view.routesThrough(ammID) {
		s.logger.WithFields(logrus.Fields{
			"amm_id": ammID,
			"routes": len(view.RoutePlan),
		}).Warn("Quote does not route through the detected pool")
	}

	encoded, err := s.getSwapTransaction(ctx, quote)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode swap transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return "", fmt.Errorf("parse swap transaction: %w", err)
	}
	if err := s.signer.Sign(tx); err != nil {
		return "", err
	}

	sig, err := s.sender.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("%w: send swap: %v", tracker.ErrTransientRPC, err)
	}

	s.logger.WithFields(logrus.Fields{
		"signature":  sig.String(),
		"in_amount":  view.InAmount,
		"out_amount": view.OutAmount,
		"impact_pct": view.PriceImpactPct,
	}).Debug("Swap transaction sent")

	return sig.String(), nil
}

// Quote returns the output amount for swapping amount of inputMint into
// outputMint without building a transaction
func (s *JupiterSwapper) Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (uint64, error) {
	_, view, err := s.getQuote(ctx, inputMint, outputMint, amount)
	if err != nil {
		return 0, err
	}
	out, err := decimal.NewFromString(view.OutAmount)
	if err != nil {
		return 0, fmt.Errorf("decode out amount %q: %w", view.OutAmount, err)
	}
	return out.BigInt().Uint64(), nil
}

func (s *JupiterSwapper) getQuote(ctx context.Context, inputMint, outputMint string, amount uint64) (json.RawMessage, quoteView, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(s.cfg.SlippageBP))
	params.Set("swapMode", "ExactIn")
	if s.cfg.OnlyDirectRoutes {
		params.Set("onlyDirectRoutes", "true")
	}
	if len(s.cfg.Dexes) > 0 {
		params.Set("dexes", strings.Join(s.cfg.Dexes, ","))
	}

	body, err := s.do(ctx, http.MethodGet, s.cfg.QuoteURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, quoteView{}, fmt.Errorf("quote: %w", err)
	}

	var view quoteView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, quoteView{}, fmt.Errorf("decode quote: %w", err)
	}
	if view.Error != "" {
		return nil, quoteView{}, fmt.Errorf("%w: %s", ErrNoRoute, view.Error)
	}

	in, err := decimal.NewFromString(view.InAmount)
	if err != nil || !in.IsPositive() {
		return nil, quoteView{}, fmt.Errorf("%w: zero input amount", ErrNoRoute)
	}

	return body, view, nil
}

func (s *JupiterSwapper) getSwapTransaction(ctx context.Context, quote json.RawMessage) (string, error) {
	request := map[string]interface{}{
		"quoteResponse":           quote,
		"userPublicKey":           s.signer.PublicKey().String(),
		"wrapAndUnwrapSol":        true,
		"dynamicComputeUnitLimit": true,
	}
	switch {
	case s.cfg.JitoTipLamports > 0:
		request["prioritizationFeeLamports"] = map[string]uint64{"jitoTipLamports": s.cfg.JitoTipLamports}
	case s.cfg.PriorityFeeLamports > 0:
		request["prioritizationFeeLamports"] = s.cfg.PriorityFeeLamports
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal swap request: %w", err)
	}

	body, err := s.do(ctx, http.MethodPost, s.cfg.SwapURL, payload)
	if err != nil {
		return "", fmt.Errorf("swap: %w", err)
	}

	var response struct {
		SwapTransaction string `json:"swapTransaction"`
		Error           string `json:"error"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("decode swap response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("swap error: %s", response.Error)
	}
	if response.SwapTransaction == "" {
		return "", errors.New("no swapTransaction in response")
	}

	return response.SwapTransaction, nil
}

func (s *JupiterSwapper) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracker.ErrTransientRPC, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The API reports unroutable pairs with a 400 and an error body
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoRoute, apiErr.Error)
		}
		return nil, fmt.Errorf("%w: HTTP %d: %s", tracker.ErrTransientRPC, resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
