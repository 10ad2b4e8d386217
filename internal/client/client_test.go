package client

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-money-bot-go/internal/tracker"
)

const (
	wsolMint   = "So11111111111111111111111111111111111111112"
	tokenProg  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	raydiumAMM = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

type rpcCall struct {
	Method string
	Params []json.RawMessage
}

// rpcServer answers JSON-RPC requests from per-method handlers
type rpcServer struct {
	*httptest.Server
	mu       sync.Mutex
	handlers map[string]func(params []json.RawMessage) (interface{}, *rpcErr)
	calls    []rpcCall
}

type rpcErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newRPCServer(t *testing.T) *rpcServer {
	s := &rpcServer{handlers: map[string]func([]json.RawMessage) (interface{}, *rpcErr){}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.calls = append(s.calls, rpcCall{Method: req.Method, Params: req.Params})
		handler, ok := s.handlers[req.Method]
		s.mu.Unlock()

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if !ok {
			resp["error"] = rpcErr{Code: -32601, Message: "method not found"}
		} else if result, rerr := handler(req.Params); rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *rpcServer) handle(method string, fn func(params []json.RawMessage) (interface{}, *rpcErr)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

func (s *rpcServer) callsTo(method string) []rpcCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []rpcCall
	for _, c := range s.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(s *rpcServer) *Client {
	l, _ := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return NewClient(ClientConfig{RPCEndpoint: s.URL}, l)
}

func testSig(n byte) string {
	var sig solana.Signature
	sig[0] = n
	sig[63] = n
	return sig.String()
}

func accountValue(data []byte) map[string]interface{} {
	return map[string]interface{}{
		"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
		"executable": false,
		"lamports":   2039280,
		"owner":      tokenProg,
		"rentEpoch":  0,
	}
}

func TestClientGetLatestSignature(t *testing.T) {
	s := newRPCServer(t)
	s.handle("getSignaturesForAddress", func([]json.RawMessage) (interface{}, *rpcErr) {
		return []map[string]interface{}{{"signature": testSig(9), "slot": 10, "err": nil, "blockTime": 1700000000}}, nil
	})

	sig, err := newTestClient(s).GetLatestSignature(context.Background(), raydiumAMM)
	require.NoError(t, err)
	assert.Equal(t, testSig(9), sig)

	var opts map[string]interface{}
	require.NoError(t, json.Unmarshal(s.callsTo("getSignaturesForAddress")[0].Params[1], &opts))
	assert.EqualValues(t, 1, opts["limit"])
}

func TestClientGetLatestSignatureEmptyHistory(t *testing.T) {
	s := newRPCServer(t)
	s.handle("getSignaturesForAddress", func([]json.RawMessage) (interface{}, *rpcErr) {
		return []interface{}{}, nil
	})

	sig, err := newTestClient(s).GetLatestSignature(context.Background(), raydiumAMM)
	require.NoError(t, err)
	assert.Empty(t, sig)
}

func TestClientGetSignaturesSince(t *testing.T) {
	s := newRPCServer(t)
	s.handle("getSignaturesForAddress", func([]json.RawMessage) (interface{}, *rpcErr) {
		return []map[string]interface{}{
			{"signature": testSig(3), "slot": 12, "err": nil, "blockTime": 1700000003},
			{"signature": testSig(2), "slot": 11, "err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}, "blockTime": 1700000002},
		}, nil
	})

	sigs, err := newTestClient(s).GetSignaturesSince(context.Background(), raydiumAMM, testSig(1))
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, tracker.SignatureInfo{Signature: testSig(3), BlockTime: 1700000003}, sigs[0])
	assert.Equal(t, tracker.SignatureInfo{Signature: testSig(2), Failed: true, BlockTime: 1700000002}, sigs[1])

	var opts map[string]interface{}
	require.NoError(t, json.Unmarshal(s.callsTo("getSignaturesForAddress")[0].Params[1], &opts))
	assert.Equal(t, testSig(1), opts["until"])
}

func TestClientGetSignaturesSinceRPCError(t *testing.T) {
	s := newRPCServer(t)
	s.handle("getSignaturesForAddress", func([]json.RawMessage) (interface{}, *rpcErr) {
		return nil, &rpcErr{Code: -32005, Message: "node is behind"}
	})

	_, err := newTestClient(s).GetSignaturesSince(context.Background(), raydiumAMM, "")
	assert.ErrorIs(t, err, tracker.ErrTransientRPC)
}

func TestClientGetParsedTransactions(t *testing.T) {
	s := newRPCServer(t)
	s.handle("getTransaction", func(params []json.RawMessage) (interface{}, *rpcErr) {
		var sig string
		_ = json.Unmarshal(params[0], &sig)
		if sig == testSig(2) {
			return nil, nil
		}
		return map[string]interface{}{
			"blockTime": 1700000100,
			"slot":      55,
			"meta": map[string]interface{}{
				"err":          nil,
				"preBalances":  []uint64{60_000_000_000, 0, 1},
				"postBalances": []uint64{10_000_000_000, 50_000_000_000, 1},
				"logMessages":  []string{"Program log: Create", "Program log: done"},
			},
			"transaction": map[string]interface{}{
				"signatures": []string{sig},
				"message": map[string]interface{}{
					"accountKeys": []map[string]interface{}{
						{"pubkey": "Sender", "signer": true, "writable": true},
						{"pubkey": "Recipient", "signer": false, "writable": true},
						{"pubkey": "11111111111111111111111111111111", "signer": false, "writable": false},
					},
					"instructions": []map[string]interface{}{
						{
							"program":   "system",
							"programId": "11111111111111111111111111111111",
							"parsed": map[string]interface{}{
								"type": "transfer",
								"info": map[string]interface{}{"source": "Sender", "destination": "Recipient", "lamports": 50_000_000_000},
							},
						},
						{"program": "spl-memo", "programId": "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr", "parsed": "hello"},
						{"programId": raydiumAMM, "accounts": []string{"a", "b", "c"}, "data": "3iPuTgpWaaC"},
					},
				},
			},
		}, nil
	})

	txs, err := newTestClient(s).GetParsedTransactions(context.Background(), []string{testSig(1), testSig(2)})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Nil(t, txs[1])

	tx := txs[0]
	require.NotNil(t, tx)
	assert.Equal(t, testSig(1), tx.Signature)
	assert.Equal(t, int64(1700000100), tx.BlockTime)
	assert.False(t, tx.Failed)
	assert.Equal(t, []string{"Sender", "Recipient", "11111111111111111111111111111111"}, tx.AccountKeys)
	assert.Equal(t, []uint64{60_000_000_000, 0, 1}, tx.PreBalances)
	assert.Equal(t, []string{"Program log: Create", "Program log: done"}, tx.LogMessages)

	require.Len(t, tx.Instructions, 3)
	assert.Equal(t, "transfer", tx.Instructions[0].Type)
	assert.Equal(t, "system", tx.Instructions[0].Program)
	assert.Equal(t, "Recipient", tx.Instructions[0].InfoString("destination"))
	assert.Empty(t, tx.Instructions[1].Type)
	assert.Equal(t, raydiumAMM, tx.Instructions[2].ProgramID)
	assert.Equal(t, []string{"a", "b", "c"}, tx.Instructions[2].Accounts)

	var opts map[string]interface{}
	require.NoError(t, json.Unmarshal(s.callsTo("getTransaction")[0].Params[1], &opts))
	assert.Equal(t, "jsonParsed", opts["encoding"])
	assert.EqualValues(t, 0, opts["maxSupportedTransactionVersion"])
}

func TestClientGetMintInfo(t *testing.T) {
	freezeKey := solana.MustPublicKeyFromBase58(raydiumAMM)

	mintData := func(decimals byte, freeze bool) []byte {
		data := make([]byte, 82)
		binary.LittleEndian.PutUint64(data[36:44], 1_000_000_000)
		data[44] = decimals
		data[45] = 1
		if freeze {
			binary.LittleEndian.PutUint32(data[46:50], 1)
			copy(data[50:82], freezeKey[:])
		}
		return data
	}

	tests := []struct {
		name   string
		data   []byte
		want   tracker.MintInfo
		minted string
	}{
		{"freeze authority set", mintData(6, true), tracker.MintInfo{Decimals: 6, FreezeAuthority: true}, wsolMint},
		{"freeze authority revoked", mintData(9, false), tracker.MintInfo{Decimals: 9}, tokenProg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newRPCServer(t)
			s.handle("getAccountInfo", func([]json.RawMessage) (interface{}, *rpcErr) {
				return map[string]interface{}{
					"context": map[string]interface{}{"slot": 1},
					"value":   accountValue(tt.data),
				}, nil
			})

			info, err := newTestClient(s).GetMintInfo(context.Background(), tt.minted)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *info)
		})
	}
}

func TestClientGetMintInfoMissingAccount(t *testing.T) {
	s := newRPCServer(t)
	s.handle("getAccountInfo", func([]json.RawMessage) (interface{}, *rpcErr) {
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": nil}, nil
	})

	_, err := newTestClient(s).GetMintInfo(context.Background(), wsolMint)
	assert.ErrorIs(t, err, tracker.ErrPartialData)
}

func TestClientGetSignatureStatus(t *testing.T) {
	tests := []struct {
		name   string
		status interface{}
		want   tracker.SignatureStatus
	}{
		{"unknown", nil, tracker.StatusPending},
		{"processed", map[string]interface{}{"slot": 1, "err": nil, "confirmationStatus": "processed"}, tracker.StatusPending},
		{"confirmed", map[string]interface{}{"slot": 1, "err": nil, "confirmationStatus": "confirmed"}, tracker.StatusSucceeded},
		{"finalized", map[string]interface{}{"slot": 1, "err": nil, "confirmationStatus": "finalized"}, tracker.StatusSucceeded},
		{"failed", map[string]interface{}{"slot": 1, "err": map[string]interface{}{"InstructionError": []interface{}{1, "Custom"}}, "confirmationStatus": "confirmed"}, tracker.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newRPCServer(t)
			s.handle("getSignatureStatuses", func([]json.RawMessage) (interface{}, *rpcErr) {
				return map[string]interface{}{
					"context": map[string]interface{}{"slot": 1},
					"value":   []interface{}{tt.status},
				}, nil
			})

			status, err := newTestClient(s).GetSignatureStatus(context.Background(), testSig(4))
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestClientGetTokenBalance(t *testing.T) {
	tokenAccount := func(amount uint64) []byte {
		data := make([]byte, 165)
		binary.LittleEndian.PutUint64(data[64:72], amount)
		return data
	}

	s := newRPCServer(t)
	s.handle("getTokenAccountsByOwner", func([]json.RawMessage) (interface{}, *rpcErr) {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": []map[string]interface{}{
				{"pubkey": raydiumAMM, "account": accountValue(tokenAccount(1500))},
				{"pubkey": tokenProg, "account": accountValue(tokenAccount(2500))},
			},
		}, nil
	})

	balance, err := newTestClient(s).GetTokenBalance(context.Background(), raydiumAMM, wsolMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(4000), balance)

	var filter map[string]string
	require.NoError(t, json.Unmarshal(s.callsTo("getTokenAccountsByOwner")[0].Params[1], &filter))
	assert.Equal(t, wsolMint, filter["mint"])
}
