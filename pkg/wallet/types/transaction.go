package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind 交易描述来自哪个业务端点, 决定回执上报到哪个确认接口
type Kind string

const (
	KindSell Kind = "sell"
	KindSwap Kind = "swap"
)

// ParseKind 解析 sell / swap, 大小写不敏感
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSell:
		return KindSell, nil
	case KindSwap:
		return KindSwap, nil
	default:
		return "", fmt.Errorf("unknown transaction kind %q", s)
	}
}

// TransactionDescriptor 后端下发的待执行转账指令
// Kind 在解析时根据来源端点显式设置, 不能从字段推断
type TransactionDescriptor struct {
	ID              int64                        `json:"id"`
	Kind            Kind                         `json:"kind"`
	Chain           string                       `json:"chain"`
	Amount          decimal.Decimal              `json:"amount"`
	BatchCall       *BatchCallSpec               `json:"batchCall,omitempty"`
	Delegation      *DelegationAuthorizationSpec `json:"delegation,omitempty"`
	GaslessEligible bool                         `json:"gaslessEligible"`
	StandardTx      *UnsignedTransaction         `json:"standardTx,omitempty"`
}

// UnsignedTransaction represents a transaction waiting to be signed.
// 普通路径 (非 gasless) 使用, 字段与后端 depositTx 对齐
type UnsignedTransaction struct {
	Chain    string  `json:"chain"`
	From     string  `json:"from"`
	To       string  `json:"to,omitempty"`    // 为空表示合约创建
	Amount   string  `json:"amount"`          // Amount in base unit (Wei)
	Nonce    *uint64 `json:"nonce,omitempty"` // nil 表示交给钱包/节点决定, 0 是有效 nonce
	GasLimit uint64  `json:"gas_limit"`       // 0 表示交给钱包/节点估算
	GasPrice string  `json:"gas_price"`       // Gas Price in Wei, 为空时交给节点建议
	Data     string  `json:"data,omitempty"`  // Contract Data (Hex)

	// e.g. "m/44'/60'/0'/0/0", 本地钱包签名时使用
	DerivationPath string `json:"derivation_path,omitempty"`

	// ChainID for EIP-155 replay protection
	ChainID int64 `json:"chain_id"`
}
