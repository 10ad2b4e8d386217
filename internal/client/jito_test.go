package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestTransaction(t *testing.T) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	to := solana.NewWallet().PublicKey()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1000, payer.PublicKey(), to).Build()},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func TestJitoSendTransaction(t *testing.T) {
	tx := signedTestTransaction(t)
	expected, err := tx.ToBase64()
	require.NoError(t, err)

	var gotAuth string
	var gotParams []json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("x-jito-auth")
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotParams = req.Params
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": 1, "result": tx.Signatures[0].String(),
		})
	}))
	defer srv.Close()

	l, _ := logtest.NewNullLogger()
	jc := NewJitoClient(JitoClientConfig{Endpoint: srv.URL, APIKey: "secret"}, l)

	sig, err := jc.SendTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)
	assert.Equal(t, "secret", gotAuth)

	require.Len(t, gotParams, 2)
	var encoded string
	require.NoError(t, json.Unmarshal(gotParams[0], &encoded))
	assert.Equal(t, expected, encoded)
	assert.JSONEq(t, `{"encoding":"base64"}`, string(gotParams[1]))
}

func TestJitoSendTransactionErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"rpc error", http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bad tx"}}`},
		{"http error", http.StatusTooManyRequests, `rate limited`},
		{"bad signature", http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"not-a-signature"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			l, _ := logtest.NewNullLogger()
			jc := NewJitoClient(JitoClientConfig{Endpoint: srv.URL}, l)

			_, err := jc.SendTransaction(context.Background(), signedTestTransaction(t))
			assert.Error(t, err)
		})
	}
}
