package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"dispatch-core/pkg/hdwallet"
	"dispatch-core/pkg/keystore"
	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainNode 普通交易广播需要的节点能力, *ethclient.Client 满足该接口
type ChainNode interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

var _ ChainNode = (*ethclient.Client)(nil)

// LocalWallet 进程内持有私钥的钱包
// 不支持 wallet_sendCalls, 能力查询返回空集, 派发时会自动落到授权或普通交易路径
type LocalWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	node    ChainNode
}

func NewLocalWallet(key *ecdsa.PrivateKey, node ChainNode) *LocalWallet {
	return &LocalWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		node:    node,
	}
}

// LoadLocalWallet Keystore -> 助记词 -> HD 派生私钥
func LoadLocalWallet(keystorePath, password, derivationPath string, node ChainNode) (*LocalWallet, error) {
	if _, err := os.Stat(keystorePath); err != nil {
		return nil, fmt.Errorf("未找到 Keystore 文件: %w", err)
	}
	if password == "" {
		return nil, errors.New("未提供 Keystore 密码 (环境变量 WALLET_PASSWORD)")
	}

	encrypted, err := keystore.LoadFromFile(keystorePath)
	if err != nil {
		return nil, err
	}
	mnemonic, err := keystore.DecryptMnemonic(encrypted, password)
	if err != nil {
		return nil, err
	}

	hd, err := hdwallet.NewFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	if derivationPath == "" {
		derivationPath = hdwallet.DefaultEthPath
	}
	key, _, err := hd.EthKey(derivationPath)
	if err != nil {
		return nil, err
	}
	return NewLocalWallet(key, node), nil
}

func (w *LocalWallet) Address() common.Address {
	return w.address
}

func (w *LocalWallet) GetCapabilities(ctx context.Context, account string) (types.WalletCapabilities, error) {
	return types.WalletCapabilities{}, nil
}

func (w *LocalWallet) SendCalls(ctx context.Context, req *types.SendCallsRequest) (json.RawMessage, error) {
	return nil, NewRPCError(CodeMethodNotFound, "wallet_sendCalls is not supported by local wallet")
}

func (w *LocalWallet) GetCallsStatus(ctx context.Context, bundleID string) (*types.BundleStatus, error) {
	return nil, NewRPCError(CodeMethodNotFound, "wallet_getCallsStatus is not supported by local wallet")
}

// SignDigest v 为 0/1
func (w *LocalWallet) SignDigest(ctx context.Context, account string, digest common.Hash) ([]byte, error) {
	if err := w.checkAccount(account); err != nil {
		return nil, err
	}
	return crypto.Sign(digest[:], w.key)
}

// SendTransaction 本地签名 (EIP-155) 并通过节点广播
func (w *LocalWallet) SendTransaction(ctx context.Context, account string, utx *types.UnsignedTransaction) (string, error) {
	if err := w.checkAccount(account); err != nil {
		return "", err
	}
	if w.node == nil {
		return "", errors.New("local wallet has no chain node configured")
	}
	tx := *utx
	if err := w.fillTxDefaults(ctx, &tx); err != nil {
		return "", err
	}

	signed, err := w.signTx(&tx)
	if err != nil {
		return "", err
	}
	if err := w.node.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("广播交易失败: %w", err)
	}
	return signed.Hash().Hex(), nil
}

func (w *LocalWallet) checkAccount(account string) error {
	if account != "" && common.HexToAddress(account) != w.address {
		return NewRPCError(CodeUnauthorized, fmt.Sprintf("account %s is not managed by this wallet", account))
	}
	return nil
}

// fillTxDefaults 补齐 nonce / gasPrice / gasLimit
func (w *LocalWallet) fillTxDefaults(ctx context.Context, utx *types.UnsignedTransaction) error {
	if utx.Nonce == nil {
		nonce, err := w.node.PendingNonceAt(ctx, w.address)
		if err != nil {
			return fmt.Errorf("获取 nonce 失败: %w", err)
		}
		utx.Nonce = &nonce
	}
	if utx.GasPrice == "" {
		price, err := w.node.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("获取 gas price 失败: %w", err)
		}
		utx.GasPrice = price.String()
	}
	if utx.GasLimit == 0 {
		value, _ := new(big.Int).SetString(utx.Amount, 10)
		gas, err := w.node.EstimateGas(ctx, ethereum.CallMsg{
			From:  w.address,
			To:    toAddress(utx.To),
			Value: value,
			Data:  common.FromHex(utx.Data),
		})
		if err != nil {
			return fmt.Errorf("估算 gas 失败: %w", err)
		}
		utx.GasLimit = gas
	}
	return nil
}

func (w *LocalWallet) signTx(utx *types.UnsignedTransaction) (*ethtypes.Transaction, error) {
	amount := new(big.Int)
	if utx.Amount != "" {
		if _, ok := amount.SetString(utx.Amount, 10); !ok {
			return nil, fmt.Errorf("invalid amount %q", utx.Amount)
		}
	}
	gasPrice, ok := new(big.Int).SetString(utx.GasPrice, 10)
	if !ok {
		return nil, fmt.Errorf("invalid gas price %q", utx.GasPrice)
	}
	if utx.ChainID <= 0 {
		return nil, fmt.Errorf("invalid chain id %d", utx.ChainID)
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    *utx.Nonce,
		To:       toAddress(utx.To),
		Value:    amount,
		Gas:      utx.GasLimit,
		GasPrice: gasPrice,
		Data:     common.FromHex(utx.Data),
	})
	signer := ethtypes.NewEIP155Signer(big.NewInt(utx.ChainID))
	return ethtypes.SignTx(tx, signer, w.key)
}

// toAddress 为空时返回 nil, 即合约创建
func toAddress(to string) *common.Address {
	if to == "" {
		return nil
	}
	addr := common.HexToAddress(to)
	return &addr
}
