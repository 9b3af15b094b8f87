package dispatch

import (
	"context"

	"dispatch-core/internal/wallet"
	"dispatch-core/pkg/logger"
	"dispatch-core/pkg/wallet/types"

	"go.uber.org/zap"
)

// CapabilityProbe 查询钱包能力
// 钱包报错时返回空集, 由调用方按 "不支持" 处理
type CapabilityProbe struct {
	port wallet.Port
}

func NewCapabilityProbe(port wallet.Port) *CapabilityProbe {
	return &CapabilityProbe{port: port}
}

func (p *CapabilityProbe) Probe(ctx context.Context, account string) types.WalletCapabilities {
	caps, err := p.port.GetCapabilities(ctx, account)
	if err != nil {
		logger.Warn("钱包能力查询失败, 按不支持处理", zap.String("account", account), zap.Error(err))
		return types.WalletCapabilities{}
	}
	if caps == nil {
		return types.WalletCapabilities{}
	}
	return caps
}
