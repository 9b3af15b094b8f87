package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"dispatch-core/internal/wallet"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/wallet/types"
)

// PendingBundleID 钱包没有返回任何标识时使用
const PendingBundleID = "pending"

// DefaultSendCallsVersion wallet_sendCalls 请求版本
const DefaultSendCallsVersion = "2.0.0"

// BatchCallSubmitter 通过 wallet_sendCalls 提交赞助批量交易
type BatchCallSubmitter struct {
	port    wallet.Port
	probe   *CapabilityProbe
	version string
}

func NewBatchCallSubmitter(port wallet.Port, probe *CapabilityProbe, version string) *BatchCallSubmitter {
	if version == "" {
		version = DefaultSendCallsVersion
	}
	return &BatchCallSubmitter{port: port, probe: probe, version: version}
}

// Prepare 能力检查并构造请求, 不会触发钱包弹窗
// 没有 paymasterUrl 时按非赞助批量处理, 只要求 atomicBatch
// 钱包不支持时返回 errno.ErrCapabilityUnsupported
func (b *BatchCallSubmitter) Prepare(ctx context.Context, spec *types.BatchCallSpec, account string) (*types.SendCallsRequest, error) {
	if spec == nil || len(spec.Calls) == 0 {
		return nil, errno.ErrInvalidDescriptor.WithMessage("batch call spec has no calls")
	}

	sponsored := spec.PaymasterURL != ""
	chainHex := types.ChainIDHex(spec.ChainID)
	caps := b.probe.Probe(ctx, account).For(spec.ChainID)
	if !caps.AtomicBatchSupported || (sponsored && !caps.PaymasterServiceSupported) {
		return nil, errno.ErrCapabilityUnsupported.WithMessage(fmt.Sprintf(
			"chain %s: atomicBatch=%t paymasterService=%t sponsored=%t",
			chainHex, caps.AtomicBatchSupported, caps.PaymasterServiceSupported, sponsored))
	}

	calls := make([]types.Call, len(spec.Calls))
	for i, c := range spec.Calls {
		calls[i] = c.Normalize()
	}

	req := &types.SendCallsRequest{
		Version:        b.version,
		ChainID:        chainHex,
		From:           account,
		AtomicRequired: true,
		Calls:          calls,
	}
	if sponsored {
		req.Capabilities.PaymasterService = &types.PaymasterService{URL: spec.PaymasterURL}
	}
	return req, nil
}

// Send 提交到钱包, 返回 bundle id
func (b *BatchCallSubmitter) Send(ctx context.Context, req *types.SendCallsRequest) (string, error) {
	raw, err := b.port.SendCalls(ctx, req)
	if err != nil {
		return "", err
	}
	return normalizeBundleID(raw), nil
}

func (b *BatchCallSubmitter) Submit(ctx context.Context, spec *types.BatchCallSpec, account string) (string, error) {
	req, err := b.Prepare(ctx, spec, account)
	if err != nil {
		return "", err
	}
	return b.Send(ctx, req)
}

// normalizeBundleID 钱包可能返回字符串, 数字, {"id": ...} 或 {"bundleId": ...}
// 完全没有标识时才用 PendingBundleID
func normalizeBundleID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return PendingBundleID
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return PendingBundleID
	}

	id := bundleIDString(v)
	if obj, ok := v.(map[string]any); ok {
		id = bundleIDString(obj["id"])
		if id == "" {
			id = bundleIDString(obj["bundleId"])
		}
	}
	if id == "" {
		return PendingBundleID
	}
	return id
}

func bundleIDString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	}
	return ""
}
