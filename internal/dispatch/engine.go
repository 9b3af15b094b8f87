package dispatch

import (
	"context"
	"time"

	"dispatch-core/internal/wallet"
	"dispatch-core/pkg/logger"
	"dispatch-core/pkg/wallet/types"

	"go.uber.org/zap"
)

type Options struct {
	SendCallsVersion   string
	PollMaxAttempts    int
	PollInterval       time.Duration
	RequireGaslessFlag bool
	Sleeper            Sleeper
	// OnTransition 每次状态变化回调, 用于日志和监控
	OnTransition func(from, to State)
}

// Engine 单笔交易的派发流程: 选路径 -> 提交 -> (批量) 轮询 -> 上报
type Engine struct {
	selector     *Selector
	poller       *StatusPoller
	reporter     *Reporter
	onTransition func(from, to State)
}

func NewEngine(selector *Selector, poller *StatusPoller, reporter *Reporter, onTransition func(from, to State)) *Engine {
	return &Engine{
		selector:     selector,
		poller:       poller,
		reporter:     reporter,
		onTransition: onTransition,
	}
}

// New 用同一个钱包端口组装全部组件
func New(port wallet.Port, standard wallet.TransactionSender, confirmer Confirmer, opts Options) *Engine {
	probe := NewCapabilityProbe(port)
	selector := NewSelector(
		NewBatchCallSubmitter(port, probe, opts.SendCallsVersion),
		NewDelegationAuthorizer(port),
		standard,
		opts.RequireGaslessFlag,
	)
	poller := NewStatusPoller(port, opts.PollMaxAttempts, opts.PollInterval, opts.Sleeper)
	return NewEngine(selector, poller, NewReporter(confirmer), opts.OnTransition)
}

// Result Run 的返回, 出错时也会带上已经走过的状态和部分结果
type Result struct {
	Outcome     *Outcome
	ConfirmedID int64
	Skipped     []Path
	Run         *Run
}

func (r *Result) State() State {
	return r.Run.Current()
}

// Run 执行一次派发, 不做任何自动重试
func (e *Engine) Run(ctx context.Context, d *types.TransactionDescriptor, account string) (*Result, error) {
	res := &Result{Run: newRun(e.onTransition)}
	fields := []zap.Field{zap.Int64("id", d.ID), zap.String("kind", string(d.Kind)), zap.String("account", account)}

	fail := func(err error) (*Result, error) {
		_ = res.Run.advance(StateFailed)
		logger.Error("派发失败", append(fields, zap.String("state", string(res.Run.States[len(res.Run.States)-2])), zap.Error(err))...)
		return res, err
	}

	if err := res.Run.advance(StateProbing); err != nil {
		return fail(err)
	}
	plan, err := e.selector.Plan(ctx, d, account)
	if err != nil {
		return fail(err)
	}
	res.Skipped = plan.Skipped

	if err := res.Run.advance(StateDispatching); err != nil {
		return fail(err)
	}
	logger.Info("提交交易", append(fields, zap.String("path", string(plan.Path)))...)
	outcome, err := e.selector.Execute(ctx, plan)
	if err != nil {
		return fail(err)
	}
	res.Outcome = outcome

	if outcome.Path == PathBatch {
		if err := res.Run.advance(StatePolling); err != nil {
			return fail(err)
		}
		poll, err := e.poller.Poll(ctx, outcome.BundleID)
		res.Run.PollAttempts = poll.Attempts
		if err != nil {
			return fail(err)
		}
		outcome.TxHash = poll.TxHash
	}

	if err := res.Run.advance(StateConfirming); err != nil {
		return fail(err)
	}
	id, err := e.reporter.Confirm(ctx, d, outcome)
	if err != nil {
		return fail(err)
	}
	res.ConfirmedID = id

	if err := res.Run.advance(StateDone); err != nil {
		return fail(err)
	}
	logger.Info("派发完成", append(fields,
		zap.String("path", string(outcome.Path)),
		zap.String("tx_hash", outcome.TxHash),
		zap.Int64("confirmed_id", id))...)
	return res, nil
}
