package hdwallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultEthPath BIP-44 以太坊第一个地址
const DefaultEthPath = "m/44'/60'/0'/0/0"

var (
	ErrInvalidSeed = errors.New("无效的种子")
	ErrInvalidPath = errors.New("无效的派生路径")
)

// Wallet BIP-32 分层确定性钱包, 只保留以太坊签名需要的部分
type Wallet struct {
	master *hdkeychain.ExtendedKey
}

// NewFromSeed 使用 BIP-39 种子生成主密钥
// 以太坊不关心版本字节, 网络参数固定用 MainNet
func NewFromSeed(seed []byte) (*Wallet, error) {
	if len(seed) < hdkeychain.MinSeedBytes || len(seed) > hdkeychain.MaxSeedBytes {
		return nil, ErrInvalidSeed
	}
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("生成主密钥失败: %v", err)
	}
	return &Wallet{master: master}, nil
}

// NewFromMnemonic 助记词 -> 种子 -> 主密钥
func NewFromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, errors.New("无效的助记词")
	}
	return NewFromSeed(MnemonicToSeed(mnemonic, passphrase))
}

// DerivePath 解析路径并派生密钥
// 支持格式: m/44'/60'/0'/0/0 或 m/44h/60h/0h/0/0
func (w *Wallet) DerivePath(path string) (*hdkeychain.ExtendedKey, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "m" {
		return w.master, nil
	}
	if !strings.HasPrefix(path, "m/") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	current := w.master
	for _, segment := range strings.Split(path[2:], "/") {
		hardened := false
		if strings.HasSuffix(segment, "'") || strings.HasSuffix(segment, "h") {
			hardened = true
			segment = segment[:len(segment)-1]
		}

		val, err := strconv.ParseUint(segment, 10, 32)
		if err != nil || val >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: 无效的路径段 '%s'", ErrInvalidPath, segment)
		}
		index := uint32(val)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}

		// Derive 是 BIP-32 标准实现 (DeriveNonStandard 会丢前导零)
		current, err = current.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("派生子密钥失败: %v", err)
		}
	}
	return current, nil
}

// EthKey 派生以太坊私钥和地址
func (w *Wallet) EthKey(path string) (*ecdsa.PrivateKey, common.Address, error) {
	key, err := w.DerivePath(path)
	if err != nil {
		return nil, common.Address{}, err
	}
	var priv *btcec.PrivateKey
	priv, err = key.ECPrivKey()
	if err != nil {
		return nil, common.Address{}, err
	}
	ecdsaKey := priv.ToECDSA()
	return ecdsaKey, crypto.PubkeyToAddress(ecdsaKey.PublicKey), nil
}
