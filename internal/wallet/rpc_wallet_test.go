package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcReply struct {
	result interface{}
	code   int
	msg    string
}

// newRPCServer 模拟钱包的 JSON-RPC 端点, handler 按 method 返回结果或错误
func newRPCServer(t *testing.T, handler func(method string, params []json.RawMessage) rpcReply) *RPCWallet {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if reply.code != 0 {
			resp["error"] = map[string]interface{}{"code": reply.code, "message": reply.msg}
		} else {
			resp["result"] = reply.result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	wallet, err := DialRPCWallet(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(wallet.Close)
	return wallet
}

func TestRPCWalletGetCapabilities(t *testing.T) {
	w := newRPCServer(t, func(method string, params []json.RawMessage) rpcReply {
		assert.Equal(t, "wallet_getCapabilities", method)
		return rpcReply{result: map[string]interface{}{
			"0x2105": map[string]interface{}{
				"atomicBatch":      map[string]bool{"supported": true},
				"paymasterService": map[string]bool{"supported": true},
			},
			"0x01": map[string]interface{}{
				"atomic": map[string]string{"status": "ready"},
			},
			"0x89": map[string]interface{}{
				"atomic":           map[string]string{"status": "unsupported"},
				"paymasterService": map[string]bool{"supported": true},
			},
		}}
	})

	caps, err := w.GetCapabilities(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.True(t, caps.SupportsSponsoredBatch(8453))
	assert.Equal(t, types.ChainCapabilities{AtomicBatchSupported: true}, caps.For(1))
	assert.Equal(t, types.ChainCapabilities{PaymasterServiceSupported: true}, caps.For(137))
}

func TestRPCWalletGetCallsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status interface{}
		want   types.BundleState
	}{
		{"string pending", "PENDING", types.BundlePending},
		{"string confirmed", "CONFIRMED", types.BundleConfirmed},
		{"string failed", "FAILED", types.BundleFailed},
		{"code 100", 100, types.BundlePending},
		{"code 200", 200, types.BundleConfirmed},
		{"code 400", 400, types.BundleFailed},
		{"code 500", 500, types.BundleFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newRPCServer(t, func(method string, params []json.RawMessage) rpcReply {
				return rpcReply{result: map[string]interface{}{
					"status":   tt.status,
					"receipts": []map[string]string{{"transactionHash": "0xfeed"}},
				}}
			})
			st, err := w.GetCallsStatus(context.Background(), "bundle-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.State)
			assert.Equal(t, "0xfeed", st.Receipts[0].TransactionHash)
		})
	}
}

func TestRPCWalletErrorTranslation(t *testing.T) {
	tests := []struct {
		code int
		want errno.Errno
	}{
		{4001, errno.ErrWalletRejected},
		{-32002, errno.ErrPendingRequest},
		{-32601, errno.ErrCapabilityUnsupported},
		{5700, errno.ErrCapabilityUnsupported},
		{-32000, errno.ErrWalletRPC},
	}

	for _, tt := range tests {
		t.Run(tt.want.Message, func(t *testing.T) {
			w := newRPCServer(t, func(method string, params []json.RawMessage) rpcReply {
				return rpcReply{code: tt.code, msg: "boom"}
			})
			_, err := w.SendCalls(context.Background(), &types.SendCallsRequest{Version: "2.0.0"})
			require.Error(t, err)

			assert.True(t, errors.Is(err, tt.want))
			var rpcErr *RPCError
			require.True(t, errors.As(err, &rpcErr))
			assert.Equal(t, tt.code, rpcErr.Code)
			assert.Equal(t, "boom", rpcErr.Message)
		})
	}
}

func TestRPCWalletSendCallsRaw(t *testing.T) {
	var got types.SendCallsRequest
	w := newRPCServer(t, func(method string, params []json.RawMessage) rpcReply {
		require.Len(t, params, 1)
		require.NoError(t, json.Unmarshal(params[0], &got))
		return rpcReply{result: map[string]string{"id": "0xbundle"}}
	})

	raw, err := w.SendCalls(context.Background(), &types.SendCallsRequest{
		Version:        "2.0.0",
		ChainID:        "0x2105",
		From:           "0xabc",
		AtomicRequired: true,
		Calls:          []types.Call{{To: "0x01", Data: "0x", Value: "0x0"}},
		Capabilities:   types.SendCallsCapabilities{PaymasterService: &types.PaymasterService{URL: "https://pm.example"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"0xbundle"}`, string(raw))
	assert.Equal(t, "https://pm.example", got.Capabilities.PaymasterService.URL)
	assert.Equal(t, "0x2105", got.ChainID)
}

func TestRPCWalletSignDigest(t *testing.T) {
	sig := "0x" + strings.Repeat("11", 64) + "1b"
	w := newRPCServer(t, func(method string, params []json.RawMessage) rpcReply {
		assert.Equal(t, "eth_sign", method)
		return rpcReply{result: sig}
	})

	out, err := w.SignDigest(context.Background(), "0xabc", common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Len(t, out, 65)
	assert.Equal(t, byte(0x1b), out[64])

	short := newRPCServer(t, func(method string, params []json.RawMessage) rpcReply {
		return rpcReply{result: "0x1234"}
	})
	_, err = short.SignDigest(context.Background(), "0xabc", common.HexToHash("0x01"))
	assert.Error(t, err)
}

func TestRPCWalletSendTransaction(t *testing.T) {
	var args map[string]string
	w := newRPCServer(t, func(method string, params []json.RawMessage) rpcReply {
		assert.Equal(t, "eth_sendTransaction", method)
		require.NoError(t, json.Unmarshal(params[0], &args))
		return rpcReply{result: "0x" + strings.Repeat("ab", 32)}
	})

	hash, err := w.SendTransaction(context.Background(), "0xfrom", &types.UnsignedTransaction{
		To:      "0xto",
		Amount:  "1000",
		ChainID: 8453,
	})
	require.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("ab", 32), hash)
	assert.Equal(t, "0x3e8", args["value"])
	assert.Equal(t, "0x2105", args["chainId"])
	_, hasNonce := args["nonce"]
	assert.False(t, hasNonce)
}

func TestRPCWalletSendTransactionZeroNonce(t *testing.T) {
	var args map[string]string
	w := newRPCServer(t, func(method string, params []json.RawMessage) rpcReply {
		require.NoError(t, json.Unmarshal(params[0], &args))
		return rpcReply{result: "0x" + strings.Repeat("cd", 32)}
	})

	zero := uint64(0)
	_, err := w.SendTransaction(context.Background(), "0xfrom", &types.UnsignedTransaction{
		Nonce:   &zero,
		Data:    "0x6080",
		ChainID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "0x0", args["nonce"])
	_, hasTo := args["to"]
	assert.False(t, hasTo)
}
