package backend

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PaymentInfoRequest 请求付款信息
type PaymentInfoRequest struct {
	Asset         string          `json:"asset"`
	Blockchain    string          `json:"blockchain"`
	Amount        decimal.Decimal `json:"amount"`
	TargetAsset   string          `json:"targetAsset,omitempty"` // swap 使用
	WalletAddress string          `json:"walletAddress,omitempty"`
}

// PaymentInfo 后端返回的付款信息
type PaymentInfo struct {
	ID                   int64                 `json:"id"`
	Blockchain           string                `json:"blockchain"`
	Amount               decimal.Decimal       `json:"amount"`
	IsValid              *bool                 `json:"isValid,omitempty"`
	Error                string                `json:"error,omitempty"`
	DepositTx            *DepositTx            `json:"depositTx,omitempty"`
	EIP7702Authorization *AuthorizationPayload `json:"eip7702Authorization,omitempty"`
	GaslessAvailable     bool                  `json:"gaslessAvailable"`
}

// DepositTx 普通交易字段, eip5792 存在时表示可以走赞助批量交易
type DepositTx struct {
	ChainID  Quantity        `json:"chainId"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Value    string          `json:"value"`
	Data     string          `json:"data"`
	Nonce    *Quantity       `json:"nonce,omitempty"`
	GasLimit Quantity        `json:"gasLimit"`
	GasPrice string          `json:"gasPrice"`
	EIP5792  *EIP5792Payload `json:"eip5792,omitempty"`
}

type EIP5792Payload struct {
	PaymasterURL string       `json:"paymasterUrl"`
	ChainID      Quantity     `json:"chainId"`
	Calls        []types.Call `json:"calls"`
}

type AuthorizationPayload struct {
	ContractAddress string          `json:"contractAddress"`
	ChainID         Quantity        `json:"chainId"`
	Nonce           Quantity        `json:"nonce"`
	TypedData       json.RawMessage `json:"typedData,omitempty"`
}

// Quantity 兼容 JSON 数字, 十进制字符串和 0x 十六进制字符串
type Quantity uint64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*q = 0
		return nil
	}
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return fmt.Errorf("invalid quantity %s: %w", string(data), err)
	}
	*q = Quantity(v)
	return nil
}

// Uint64Ptr 字段缺失时为 nil
func (q *Quantity) Uint64Ptr() *uint64 {
	if q == nil {
		return nil
	}
	v := uint64(*q)
	return &v
}

// Descriptor 转换成派发引擎使用的交易描述
func (p *PaymentInfo) Descriptor(kind types.Kind) (*types.TransactionDescriptor, error) {
	if p.Error != "" {
		return nil, errno.ErrInvalidDescriptor.WithMessage(p.Error)
	}
	if p.IsValid != nil && !*p.IsValid {
		return nil, errno.ErrInvalidDescriptor.WithMessage(fmt.Sprintf("payment info %d is not valid", p.ID))
	}
	if p.ID == 0 {
		return nil, errno.ErrInvalidDescriptor.WithMessage("payment info has no id")
	}

	d := &types.TransactionDescriptor{
		ID:              p.ID,
		Kind:            kind,
		Chain:           p.Blockchain,
		Amount:          p.Amount,
		GaslessEligible: p.GaslessAvailable,
	}

	if tx := p.DepositTx; tx != nil {
		value, err := toDecimalString(tx.Value)
		if err != nil {
			return nil, errno.ErrInvalidDescriptor.WithMessage(err.Error())
		}
		gasPrice, err := toDecimalString(tx.GasPrice)
		if err != nil {
			return nil, errno.ErrInvalidDescriptor.WithMessage(err.Error())
		}
		d.StandardTx = &types.UnsignedTransaction{
			Chain:    p.Blockchain,
			From:     tx.From,
			To:       tx.To,
			Amount:   value,
			Nonce:    tx.Nonce.Uint64Ptr(),
			GasLimit: uint64(tx.GasLimit),
			GasPrice: gasPrice,
			Data:     tx.Data,
			ChainID:  int64(tx.ChainID),
		}

		if b := tx.EIP5792; b != nil && len(b.Calls) > 0 {
			chainID := uint64(b.ChainID)
			if chainID == 0 {
				chainID = uint64(tx.ChainID)
			}
			d.BatchCall = &types.BatchCallSpec{
				PaymasterURL: b.PaymasterURL,
				ChainID:      chainID,
				Calls:        b.Calls,
			}
		}
	}

	if a := p.EIP7702Authorization; a != nil {
		if !common.IsHexAddress(a.ContractAddress) {
			return nil, errno.ErrInvalidDescriptor.WithMessage("invalid delegation contract address " + a.ContractAddress)
		}
		d.Delegation = &types.DelegationAuthorizationSpec{
			ContractAddress: common.HexToAddress(a.ContractAddress),
			ChainID:         uint64(a.ChainID),
			Nonce:           uint64(a.Nonce),
			TypedPayload:    a.TypedData,
		}
	}

	return d, nil
}

// toDecimalString "0x..." 转成十进制字符串, 十进制原样返回
func toDecimalString(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		if len(v) == 2 {
			return "0", nil
		}
		n, ok := new(big.Int).SetString(v[2:], 16)
		if !ok {
			return "", fmt.Errorf("invalid hex quantity %q", v)
		}
		return n.String(), nil
	}
	if _, ok := new(big.Int).SetString(v, 10); !ok {
		return "", fmt.Errorf("invalid quantity %q", v)
	}
	return v, nil
}
