package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// RPCWallet 通过 JSON-RPC 连接的外部钱包
type RPCWallet struct {
	client *rpc.Client
}

func NewRPCWallet(client *rpc.Client) *RPCWallet {
	return &RPCWallet{client: client}
}

// DialRPCWallet 连接钱包 RPC 地址 (http / ws)
func DialRPCWallet(ctx context.Context, url string) (*RPCWallet, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("连接钱包 RPC 失败: %w", err)
	}
	return NewRPCWallet(client), nil
}

func (w *RPCWallet) Close() {
	w.client.Close()
}

// GetCapabilities 兼容两种返回格式:
//
//	{"0x2105": {"atomicBatch": {"supported": true}, "paymasterService": {"supported": true}}}
//	{"0x2105": {"atomic": {"status": "supported"}, "paymasterService": {"supported": true}}}
func (w *RPCWallet) GetCapabilities(ctx context.Context, account string) (types.WalletCapabilities, error) {
	var raw map[string]map[string]json.RawMessage
	if err := w.client.CallContext(ctx, &raw, "wallet_getCapabilities", account); err != nil {
		return nil, translate(ctx, err)
	}
	return parseCapabilities(raw), nil
}

type supportedFlag struct {
	Supported bool `json:"supported"`
}

type atomicStatus struct {
	Status string `json:"status"`
}

func parseCapabilities(raw map[string]map[string]json.RawMessage) types.WalletCapabilities {
	caps := make(types.WalletCapabilities, len(raw))
	for chainKey, entries := range raw {
		var c types.ChainCapabilities

		if v, ok := entries["atomicBatch"]; ok {
			var f supportedFlag
			if json.Unmarshal(v, &f) == nil && f.Supported {
				c.AtomicBatchSupported = true
			}
		}
		if v, ok := entries["atomic"]; ok {
			var s atomicStatus
			if json.Unmarshal(v, &s) == nil && (s.Status == "supported" || s.Status == "ready") {
				c.AtomicBatchSupported = true
			}
		}
		if v, ok := entries["paymasterService"]; ok {
			var f supportedFlag
			if json.Unmarshal(v, &f) == nil && f.Supported {
				c.PaymasterServiceSupported = true
			}
		}

		caps[normalizeChainKey(chainKey)] = c
	}
	return caps
}

// normalizeChainKey "0x01" / "0X2105" 统一成最小十六进制
func normalizeChainKey(key string) string {
	lower := strings.ToLower(key)
	if !strings.HasPrefix(lower, "0x") {
		return lower
	}
	id, err := strconv.ParseUint(lower[2:], 16, 64)
	if err != nil {
		return lower
	}
	return types.ChainIDHex(id)
}

func (w *RPCWallet) SendCalls(ctx context.Context, req *types.SendCallsRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := w.client.CallContext(ctx, &raw, "wallet_sendCalls", req); err != nil {
		return nil, translate(ctx, err)
	}
	return raw, nil
}

type callsStatusResult struct {
	Status   json.RawMessage `json:"status"`
	Receipts []types.Receipt `json:"receipts"`
}

func (w *RPCWallet) GetCallsStatus(ctx context.Context, bundleID string) (*types.BundleStatus, error) {
	var res callsStatusResult
	if err := w.client.CallContext(ctx, &res, "wallet_getCallsStatus", bundleID); err != nil {
		return nil, translate(ctx, err)
	}
	state, err := parseBundleState(res.Status)
	if err != nil {
		return nil, err
	}
	return &types.BundleStatus{State: state, Receipts: res.Receipts}, nil
}

// parseBundleState 兼容字符串状态 (PENDING / CONFIRMED / FAILED) 和数字状态码
// 1xx 处理中, 2xx 已确认, 4xx 及以上失败
func parseBundleState(raw json.RawMessage) (types.BundleState, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToUpper(s) {
		case "PENDING":
			return types.BundlePending, nil
		case "CONFIRMED":
			return types.BundleConfirmed, nil
		case "FAILED":
			return types.BundleFailed, nil
		}
		return "", fmt.Errorf("unknown calls status %q", s)
	}

	var code int
	if err := json.Unmarshal(raw, &code); err != nil {
		return "", fmt.Errorf("invalid calls status %s", string(raw))
	}
	switch {
	case code >= 100 && code < 200:
		return types.BundlePending, nil
	case code >= 200 && code < 300:
		return types.BundleConfirmed, nil
	case code >= 400:
		return types.BundleFailed, nil
	}
	return "", fmt.Errorf("unknown calls status code %d", code)
}

// SignDigest 使用 eth_sign 对原始摘要签名
func (w *RPCWallet) SignDigest(ctx context.Context, account string, digest common.Hash) ([]byte, error) {
	var sig hexutil.Bytes
	if err := w.client.CallContext(ctx, &sig, "eth_sign", account, digest); err != nil {
		return nil, translate(ctx, err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("unexpected signature length %d", len(sig))
	}
	return sig, nil
}

type sendTxArgs struct {
	From     string          `json:"from"`
	To       string          `json:"to,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     string          `json:"data,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Nonce    *hexutil.Uint64 `json:"nonce,omitempty"`
	ChainID  *hexutil.Big    `json:"chainId,omitempty"`
}

// SendTransaction eth_sendTransaction, 由钱包负责签名和广播
func (w *RPCWallet) SendTransaction(ctx context.Context, account string, tx *types.UnsignedTransaction) (string, error) {
	args, err := buildSendTxArgs(account, tx)
	if err != nil {
		return "", err
	}
	var hash common.Hash
	if err := w.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return "", translate(ctx, err)
	}
	return hash.Hex(), nil
}

func buildSendTxArgs(account string, tx *types.UnsignedTransaction) (*sendTxArgs, error) {
	args := &sendTxArgs{From: account, To: tx.To, Data: tx.Data}
	if tx.Amount != "" {
		v, ok := new(big.Int).SetString(tx.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q", tx.Amount)
		}
		args.Value = (*hexutil.Big)(v)
	}
	if tx.GasPrice != "" {
		p, ok := new(big.Int).SetString(tx.GasPrice, 10)
		if !ok {
			return nil, fmt.Errorf("invalid gas price %q", tx.GasPrice)
		}
		args.GasPrice = (*hexutil.Big)(p)
	}
	if tx.GasLimit > 0 {
		g := hexutil.Uint64(tx.GasLimit)
		args.Gas = &g
	}
	if tx.Nonce != nil {
		n := hexutil.Uint64(*tx.Nonce)
		args.Nonce = &n
	}
	if tx.ChainID > 0 {
		args.ChainID = (*hexutil.Big)(big.NewInt(tx.ChainID))
	}
	return args, nil
}
