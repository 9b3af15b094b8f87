package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// DelegationAuthorizationSpec 账户委托授权参数
// TypedPayload 原样保留后端下发的 typed-data, 仅用于展示
type DelegationAuthorizationSpec struct {
	ContractAddress common.Address  `json:"contractAddress"`
	ChainID         uint64          `json:"chainId"`
	Nonce           uint64          `json:"nonce"`
	TypedPayload    json.RawMessage `json:"typedPayload,omitempty"`
}

// SignedAuthorization 签名后的授权元组 [chainId, address, nonce, yParity, r, s]
type SignedAuthorization struct {
	ChainID uint64         `json:"chainId"`
	Address common.Address `json:"address"`
	Nonce   uint64         `json:"nonce"`
	R       common.Hash    `json:"r"`
	S       common.Hash    `json:"s"`
	YParity uint8          `json:"yParity"`
}
