package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"smart-money-bot-go/internal/tracker"
)

// DexScreener reads token prices from the DexScreener token endpoint
type DexScreener struct {
	endpoint   string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	logger     *logrus.Logger
}

// DexScreenerConfig contains the price source settings
type DexScreenerConfig struct {
	Endpoint string
	Timeout  time.Duration
	// RequestsPerMinute caps outgoing calls; the public API allows 300.
	RequestsPerMinute int
}

type tokensResponse struct {
	Pairs []struct {
		ChainID     string `json:"chainId"`
		DexID       string `json:"dexId"`
		PairAddress string `json:"pairAddress"`
		PriceNative string `json:"priceNative"`
		PriceUsd    string `json:"priceUsd"`
	} `json:"pairs"`
}

// NewDexScreener creates a price source
func NewDexScreener(cfg DexScreenerConfig, logger *logrus.Logger) *DexScreener {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 300
	}

	return &DexScreener{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.New(cfg.RequestsPerMinute, ratelimit.Per(time.Minute)),
		logger:     logger,
	}
}

// GetPrice returns the native (SOL) price from the first pair that reports
// one. ok is false while the token has no indexed pair.
func (d *DexScreener) GetPrice(ctx context.Context, mint string) (float64, bool, error) {
	d.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"/"+mint, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("%w: price %s: %v", tracker.ErrTransientRPC, mint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return 0, false, fmt.Errorf("%w: price %s: HTTP %d: %s", tracker.ErrTransientRPC, mint, resp.StatusCode, string(body))
	}

	var data tokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, false, fmt.Errorf("decode price response: %w", err)
	}

	for _, pair := range data.Pairs {
		if pair.PriceNative == "" {
			continue
		}
		price, err := decimal.NewFromString(pair.PriceNative)
		if err != nil {
			return 0, false, fmt.Errorf("invalid priceNative %q: %w", pair.PriceNative, err)
		}

		d.logger.WithFields(logrus.Fields{
			"mint":  mint,
			"pair":  pair.PairAddress,
			"dex":   pair.DexID,
			"price": pair.PriceNative,
		}).Debug("Price fetched")

		return price.InexactFloat64(), true, nil
	}

	return 0, false, nil
}
