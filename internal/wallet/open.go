package wallet

import (
	"context"
	"errors"
	"fmt"

	"dispatch-core/pkg/logger"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	ModeRPC   = "rpc"
	ModeLocal = "local"
)

// Options 与 config.WalletConfig 对应
type Options struct {
	Mode           string
	RpcURL         string
	Account        string
	KeystorePath   string
	Password       string
	DerivationPath string
	NodeRpcURL     string
}

// Handle 打开后的钱包, Port 和 Sender 指向同一个实现
type Handle struct {
	Port    Port
	Sender  TransactionSender
	Account string
	closers []func()
}

func (h *Handle) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
}

// Open 按模式打开钱包
// local 模式下 Account 为空时使用派生出的地址
func Open(ctx context.Context, opts Options) (*Handle, error) {
	switch opts.Mode {
	case "", ModeRPC:
		if opts.RpcURL == "" {
			return nil, errors.New("wallet.rpc_url is required in rpc mode")
		}
		w, err := DialRPCWallet(ctx, opts.RpcURL)
		if err != nil {
			return nil, err
		}
		logger.Info("钱包 RPC 已连接", zap.String("url", opts.RpcURL))
		return &Handle{Port: w, Sender: w, Account: opts.Account, closers: []func(){w.Close}}, nil

	case ModeLocal:
		if opts.NodeRpcURL == "" {
			return nil, errors.New("wallet.node_rpc_url is required in local mode")
		}
		node, err := ethclient.DialContext(ctx, opts.NodeRpcURL)
		if err != nil {
			return nil, fmt.Errorf("连接节点失败: %w", err)
		}
		w, err := LoadLocalWallet(opts.KeystorePath, opts.Password, opts.DerivationPath, node)
		if err != nil {
			node.Close()
			return nil, err
		}
		account := opts.Account
		if account == "" {
			account = w.Address().Hex()
		}
		logger.Info("本地钱包已加载", zap.String("address", w.Address().Hex()))
		return &Handle{Port: w, Sender: w, Account: account, closers: []func(){node.Close}}, nil
	}
	return nil, fmt.Errorf("unknown wallet mode %q", opts.Mode)
}
