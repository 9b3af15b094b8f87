package dispatch

import (
	"context"
	"fmt"
	"time"

	"dispatch-core/internal/wallet"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/logger"
	"dispatch-core/pkg/wallet/types"

	"go.uber.org/zap"
)

const (
	DefaultPollMaxAttempts = 5
	DefaultPollInterval    = 2 * time.Second
)

// Sleeper 两次查询之间的等待, 测试中替换掉
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleeper 可被 ctx 取消的等待
func ContextSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusPoller 有界轮询 wallet_getCallsStatus
type StatusPoller struct {
	port        wallet.Port
	maxAttempts int
	interval    time.Duration
	sleep       Sleeper
}

func NewStatusPoller(port wallet.Port, maxAttempts int, interval time.Duration, sleep Sleeper) *StatusPoller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if sleep == nil {
		sleep = ContextSleeper
	}
	return &StatusPoller{port: port, maxAttempts: maxAttempts, interval: interval, sleep: sleep}
}

type PollResult struct {
	TxHash   string
	State    types.BundleState
	Attempts int
}

// Poll 最多查询 maxAttempts 次, 最后一次查询后不再等待
// 已确认返回第一条回执的哈希; 失败返回 ErrTransactionFailed; 次数用完仍未终结返回 ErrTransactionTimeout
func (p *StatusPoller) Poll(ctx context.Context, bundleID string) (*PollResult, error) {
	res := &PollResult{State: types.BundlePending}

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		res.Attempts = attempt

		status, err := p.port.GetCallsStatus(ctx, bundleID)
		if err != nil {
			return res, err
		}
		res.State = status.State

		switch status.State {
		case types.BundleConfirmed:
			if len(status.Receipts) == 0 || status.Receipts[0].TransactionHash == "" {
				return res, errno.ErrMissingReceipt.WithMessage(fmt.Sprintf("bundle %s confirmed without receipt", bundleID))
			}
			res.TxHash = status.Receipts[0].TransactionHash
			return res, nil
		case types.BundleFailed:
			return res, errno.ErrTransactionFailed.WithMessage(fmt.Sprintf("bundle %s failed", bundleID))
		}

		logger.Debug("bundle 仍在处理中", zap.String("bundle_id", bundleID), zap.Int("attempt", attempt))
		if attempt < p.maxAttempts {
			if err := p.sleep(ctx, p.interval); err != nil {
				return res, err
			}
		}
	}

	return res, errno.ErrTransactionTimeout.WithMessage(
		fmt.Sprintf("bundle %s still pending after %d attempts", bundleID, p.maxAttempts))
}

// AwaitTerminal 只关心交易哈希时使用
func (p *StatusPoller) AwaitTerminal(ctx context.Context, bundleID string) (string, error) {
	res, err := p.Poll(ctx, bundleID)
	if err != nil {
		return "", err
	}
	return res.TxHash, nil
}
