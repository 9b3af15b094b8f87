package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Call 批量交易中的单个调用
type Call struct {
	To    string `json:"to"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
}

// Normalize 补齐钱包要求的字段: data 缺省 "0x", value 缺省 "0x0"
func (c Call) Normalize() Call {
	if c.Data == "" {
		c.Data = "0x"
	}
	if c.Value == "" {
		c.Value = "0x0"
	}
	return c
}

// BatchCallSpec 后端提供的赞助批量交易参数
type BatchCallSpec struct {
	PaymasterURL string `json:"paymasterUrl"`
	ChainID      uint64 `json:"chainId"`
	Calls        []Call `json:"calls"`
}

// ChainIDHex 最小十六进制编码, 带 0x 前缀, 无前导零 (1 -> 0x1)
func ChainIDHex(chainID uint64) string {
	return hexutil.EncodeUint64(chainID)
}

type PaymasterService struct {
	URL string `json:"url"`
}

type SendCallsCapabilities struct {
	PaymasterService *PaymasterService `json:"paymasterService,omitempty"`
}

// SendCallsRequest wallet_sendCalls 的参数
type SendCallsRequest struct {
	Version        string                `json:"version"`
	ChainID        string                `json:"chainId"`
	From           string                `json:"from"`
	AtomicRequired bool                  `json:"atomicRequired"`
	Calls          []Call                `json:"calls"`
	Capabilities   SendCallsCapabilities `json:"capabilities"`
}

// BundleState 批量交易的状态, Confirmed 和 Failed 为终态
type BundleState string

const (
	BundlePending   BundleState = "PENDING"
	BundleConfirmed BundleState = "CONFIRMED"
	BundleFailed    BundleState = "FAILED"
)

func (s BundleState) Terminal() bool {
	return s == BundleConfirmed || s == BundleFailed
}

type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber,omitempty"`
	Status          string `json:"status,omitempty"`
}

type BundleStatus struct {
	State    BundleState `json:"state"`
	Receipts []Receipt   `json:"receipts,omitempty"`
}
