package wallet

import (
	"context"
	"encoding/json"

	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
)

// Port 钱包能力接口, 派发引擎只通过它和钱包交互
// 实现方负责把钱包错误码翻译成 *RPCError, 引擎不再二次包装
type Port interface {
	// GetCapabilities wallet_getCapabilities
	GetCapabilities(ctx context.Context, account string) (types.WalletCapabilities, error)
	// SendCalls wallet_sendCalls, 返回钱包原始结果 (字符串或对象), 由调用方归一化
	SendCalls(ctx context.Context, req *types.SendCallsRequest) (json.RawMessage, error)
	// GetCallsStatus wallet_getCallsStatus
	GetCallsStatus(ctx context.Context, bundleID string) (*types.BundleStatus, error)
	// SignDigest 对 32 字节摘要做原始签名, 返回 r || s || v (65 bytes)
	SignDigest(ctx context.Context, account string, digest common.Hash) ([]byte, error)
}

// TransactionSender 普通 (非 gasless) 交易的发送方
type TransactionSender interface {
	SendTransaction(ctx context.Context, account string, tx *types.UnsignedTransaction) (string, error)
}
