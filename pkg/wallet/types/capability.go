package types

// ChainCapabilities 钱包在单条链上的能力
type ChainCapabilities struct {
	AtomicBatchSupported      bool `json:"atomicBatchSupported"`
	PaymasterServiceSupported bool `json:"paymasterServiceSupported"`
}

// WalletCapabilities key 为十六进制链 ID ("0x1")
// 每次派发重新查询, 不跨交易缓存
type WalletCapabilities map[string]ChainCapabilities

// For 查询链能力, 未知链返回零值 (全部不支持)
func (w WalletCapabilities) For(chainID uint64) ChainCapabilities {
	if w == nil {
		return ChainCapabilities{}
	}
	return w[ChainIDHex(chainID)]
}

// SupportsSponsoredBatch 同时支持原子批量和 paymaster 才能走赞助批量路径
func (w WalletCapabilities) SupportsSponsoredBatch(chainID uint64) bool {
	c := w.For(chainID)
	return c.AtomicBatchSupported && c.PaymasterServiceSupported
}
