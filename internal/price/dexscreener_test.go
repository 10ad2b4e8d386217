package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-money-bot-go/internal/tracker"
)

func newTestSource(t *testing.T, status int, body string) (*DexScreener, *string) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	l, _ := logtest.NewNullLogger()
	return NewDexScreener(DexScreenerConfig{Endpoint: srv.URL + "/latest/dex/tokens/", RequestsPerMinute: 6000}, l), &path
}

func TestDexScreenerFirstPricedPair(t *testing.T) {
	src, path := newTestSource(t, http.StatusOK, `{"schemaVersion":"1.0.0","pairs":[
		{"chainId":"solana","dexId":"raydium","pairAddress":"P0","priceUsd":"0.1"},
		{"chainId":"solana","dexId":"raydium","pairAddress":"P1","priceNative":"0.000002","priceUsd":"0.0003"},
		{"chainId":"solana","dexId":"orca","pairAddress":"P2","priceNative":"0.5"}
	]}`)

	price, ok, err := src.GetPrice(context.Background(), "MintA")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 2e-6, price, 1e-15)
	assert.Equal(t, "/latest/dex/tokens/MintA", *path)
}

func TestDexScreenerNoPairs(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null pairs", `{"schemaVersion":"1.0.0","pairs":null}`},
		{"empty pairs", `{"pairs":[]}`},
		{"no native price", `{"pairs":[{"pairAddress":"P0","priceUsd":"1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := newTestSource(t, http.StatusOK, tt.body)

			_, ok, err := src.GetPrice(context.Background(), "MintA")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestDexScreenerErrors(t *testing.T) {
	src, _ := newTestSource(t, http.StatusTooManyRequests, `slow down`)
	_, ok, err := src.GetPrice(context.Background(), "MintA")
	assert.False(t, ok)
	assert.ErrorIs(t, err, tracker.ErrTransientRPC)

	src, _ = newTestSource(t, http.StatusOK, `{"pairs":[{"priceNative":"abc"}]}`)
	_, _, err = src.GetPrice(context.Background(), "MintA")
	assert.Error(t, err)

	src, _ = newTestSource(t, http.StatusOK, `not json`)
	_, _, err = src.GetPrice(context.Background(), "MintA")
	assert.Error(t, err)
}
