package dispatch

import (
	"context"
	"errors"

	"dispatch-core/internal/wallet"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/logger"
	"dispatch-core/pkg/wallet/types"

	"go.uber.org/zap"
)

// Path 提交路径, 优先级 batch > delegation > standard
type Path string

const (
	PathBatch      Path = "batch"
	PathDelegation Path = "delegation"
	PathStandard   Path = "standard"
)

// Plan 选定的路径和已准备好的请求, 生成 Plan 不会触发钱包弹窗
type Plan struct {
	Path       Path
	Account    string
	SendCalls  *types.SendCallsRequest
	Delegation *types.DelegationAuthorizationSpec
	StandardTx *types.UnsignedTransaction
	// Skipped 因能力不足被跳过的路径
	Skipped []Path
}

// Outcome 钱包提交结果
type Outcome struct {
	Path          Path                       `json:"path"`
	BundleID      string                     `json:"bundleId,omitempty"`
	TxHash        string                     `json:"txHash,omitempty"`
	Authorization *types.SignedAuthorization `json:"authorization,omitempty"`
}

// Selector 按固定优先级选择并执行唯一的提交路径
type Selector struct {
	batch              *BatchCallSubmitter
	delegation         *DelegationAuthorizer
	standard           wallet.TransactionSender
	requireGaslessFlag bool
}

func NewSelector(batch *BatchCallSubmitter, delegation *DelegationAuthorizer, standard wallet.TransactionSender, requireGaslessFlag bool) *Selector {
	return &Selector{
		batch:              batch,
		delegation:         delegation,
		standard:           standard,
		requireGaslessFlag: requireGaslessFlag,
	}
}

// Plan 选路径
// 只有批量路径在本地能力检查阶段 (弹窗之前) 发现不支持时才会降级
func (s *Selector) Plan(ctx context.Context, d *types.TransactionDescriptor, account string) (*Plan, error) {
	plan := &Plan{Account: account}

	if d.BatchCall != nil {
		req, err := s.batch.Prepare(ctx, d.BatchCall, account)
		if err == nil {
			plan.Path = PathBatch
			plan.SendCalls = req
			return plan, nil
		}
		if !errors.Is(err, errno.ErrCapabilityUnsupported) {
			return nil, err
		}
		logger.Info("钱包不支持赞助批量交易, 降级", zap.Int64("id", d.ID), zap.String("reason", err.Error()))
		plan.Skipped = append(plan.Skipped, PathBatch)
	}

	if s.delegationAllowed(d) {
		plan.Path = PathDelegation
		plan.Delegation = d.Delegation
		return plan, nil
	}

	if d.StandardTx == nil {
		return nil, errno.ErrMissingStandardTx
	}
	plan.Path = PathStandard
	plan.StandardTx = d.StandardTx
	return plan, nil
}

// delegationAllowed 默认要求授权参数存在且 gaslessEligible=true;
// requireGaslessFlag 关闭时只看授权参数是否存在
func (s *Selector) delegationAllowed(d *types.TransactionDescriptor) bool {
	if d.Delegation == nil {
		if d.GaslessEligible {
			logger.Warn("gaslessEligible=true 但没有授权参数", zap.Int64("id", d.ID))
		}
		return false
	}
	if !d.GaslessEligible {
		if s.requireGaslessFlag {
			logger.Info("授权参数存在但 gaslessEligible=false, 按配置跳过授权路径", zap.Int64("id", d.ID))
			return false
		}
		logger.Warn("授权参数存在但 gaslessEligible=false, 以参数为准", zap.Int64("id", d.ID))
	}
	return true
}

// Execute 执行选定路径, 钱包只会被请求一次; 失败不会再尝试其它路径
func (s *Selector) Execute(ctx context.Context, plan *Plan) (*Outcome, error) {
	switch plan.Path {
	case PathBatch:
		id, err := s.batch.Send(ctx, plan.SendCalls)
		if err != nil {
			return nil, err
		}
		return &Outcome{Path: PathBatch, BundleID: id}, nil

	case PathDelegation:
		auth, err := s.delegation.Authorize(ctx, plan.Delegation, plan.Account)
		if err != nil {
			return nil, err
		}
		return &Outcome{Path: PathDelegation, Authorization: auth}, nil

	case PathStandard:
		if s.standard == nil {
			return nil, errors.New("no standard transaction sender configured")
		}
		hash, err := s.standard.SendTransaction(ctx, plan.Account, plan.StandardTx)
		if err != nil {
			return nil, err
		}
		return &Outcome{Path: PathStandard, TxHash: hash}, nil
	}
	return nil, errno.ErrInvalidDescriptor.WithMessage("unknown dispatch path " + string(plan.Path))
}

// Dispatch Plan + Execute
func (s *Selector) Dispatch(ctx context.Context, d *types.TransactionDescriptor, account string) (*Outcome, error) {
	plan, err := s.Plan(ctx, d, account)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, plan)
}
