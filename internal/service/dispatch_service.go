package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatch-core/internal/backend"
	"dispatch-core/internal/dispatch"
	"dispatch-core/internal/model"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/logger"
	"dispatch-core/pkg/monitor"
	"dispatch-core/pkg/utils/lock"
	"dispatch-core/pkg/wallet/types"

	"go.uber.org/zap"
)

// DescriptorSource 获取交易描述, *backend.Client 满足
type DescriptorSource interface {
	FetchPaymentInfo(ctx context.Context, kind types.Kind, req *backend.PaymentInfoRequest) (*types.TransactionDescriptor, error)
}

var _ DescriptorSource = (*backend.Client)(nil)

// Runner 派发引擎, *dispatch.Engine 满足
type Runner interface {
	Run(ctx context.Context, d *types.TransactionDescriptor, account string) (*dispatch.Result, error)
}

var _ Runner = (*dispatch.Engine)(nil)

// Prober 钱包能力查询
type Prober interface {
	Probe(ctx context.Context, account string) types.WalletCapabilities
}

// DispatchEvent 写入 outbox 的派发事件
type DispatchEvent struct {
	Kind         string    `json:"kind"`
	DescriptorID int64     `json:"descriptorId"`
	Account      string    `json:"account"`
	Path         string    `json:"path,omitempty"`
	BundleID     string    `json:"bundleId,omitempty"`
	TxHash       string    `json:"txHash,omitempty"`
	ConfirmedID  int64     `json:"confirmedId,omitempty"`
	State        string    `json:"state"`
	ErrorCode    int       `json:"errorCode,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Key 分区键, 同一笔交易的事件保持有序
func (e *DispatchEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.Kind, e.DescriptorID)
}

// DispatchService 派发入口: 取描述, 加锁, 执行, 落库
type DispatchService struct {
	source  DescriptorSource
	runner  Runner
	prober  Prober
	locker  lock.DistributedLock
	store   RecordStore
	lockTTL time.Duration
	now     func() time.Time
}

func NewDispatchService(source DescriptorSource, runner Runner, prober Prober, locker lock.DistributedLock, store RecordStore, lockTTL time.Duration) *DispatchService {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &DispatchService{
		source:  source,
		runner:  runner,
		prober:  prober,
		locker:  locker,
		store:   store,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// Dispatch 向后端请求付款信息后派发
func (s *DispatchService) Dispatch(ctx context.Context, kind types.Kind, req *backend.PaymentInfoRequest, account string) (*model.DispatchRecord, error) {
	d, err := s.source.FetchPaymentInfo(ctx, kind, req)
	if err != nil {
		logger.Warn("获取付款信息失败", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	return s.DispatchDescriptor(ctx, d, account)
}

// DispatchDescriptor 对同一个描述加锁后执行一次派发
// 引擎失败时记录仍会落库, 同时返回记录和错误
func (s *DispatchService) DispatchDescriptor(ctx context.Context, d *types.TransactionDescriptor, account string) (*model.DispatchRecord, error) {
	key := lockKey(d)
	token, ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	if !ok {
		return nil, errno.ErrDispatchInFlight.WithMessage(fmt.Sprintf("%s %d is already being dispatched", d.Kind, d.ID))
	}
	defer func() {
		// 请求被取消也要释放锁
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			logger.Warn("释放派发锁失败", zap.String("key", key), zap.Error(err))
		}
	}()

	started := s.now()
	res, runErr := s.runner.Run(ctx, d, account)

	rec := newRecord(d, account, res, runErr)
	rec.StartedAt = started
	rec.FinishedAt = s.now()
	observe(d, rec, res, runErr)

	// 请求取消时钱包可能已经提交, 记录必须落库
	if err := s.store.Save(context.WithoutCancel(ctx), rec, eventFor(rec)); err != nil {
		// 钱包已经签过名, 落库失败只记日志, 不能让调用方重试
		logger.Error("保存派发记录失败",
			zap.String("kind", rec.Kind), zap.Int64("id", rec.DescriptorID),
			zap.String("tx_hash", rec.TxHash), zap.Error(err))
	}

	return rec, runErr
}

// Capabilities 查询钱包能力, 钱包报错时为空
func (s *DispatchService) Capabilities(ctx context.Context, account string) types.WalletCapabilities {
	return s.prober.Probe(ctx, account)
}

// Latest 最近一次派发记录
func (s *DispatchService) Latest(ctx context.Context, kind types.Kind, id int64) (*model.DispatchRecord, error) {
	return s.store.Latest(ctx, string(kind), id)
}

func lockKey(d *types.TransactionDescriptor) string {
	return fmt.Sprintf("dispatch:%s:%d", d.Kind, d.ID)
}

func newRecord(d *types.TransactionDescriptor, account string, res *dispatch.Result, runErr error) *model.DispatchRecord {
	rec := &model.DispatchRecord{
		Kind:         string(d.Kind),
		DescriptorID: d.ID,
		Account:      account,
		Chain:        d.Chain,
		Amount:       d.Amount,
		State:        string(dispatch.StateFailed),
	}

	if res != nil {
		if res.Run != nil {
			rec.State = string(res.State())
			rec.PollAttempts = res.Run.PollAttempts
		}
		rec.ConfirmedID = res.ConfirmedID
		if len(res.Skipped) > 0 {
			skipped := make([]string, len(res.Skipped))
			for i, p := range res.Skipped {
				skipped[i] = string(p)
			}
			rec.Skipped = strings.Join(skipped, ",")
		}
		if o := res.Outcome; o != nil {
			rec.Path = string(o.Path)
			rec.BundleID = o.BundleID
			rec.TxHash = o.TxHash
		}
	}

	if runErr != nil {
		rec.State = string(dispatch.StateFailed)
		rec.ErrorCode, _ = errno.Decode(runErr)
		rec.ErrorMessage = runErr.Error()
	}
	return rec
}

func eventFor(rec *model.DispatchRecord) *DispatchEvent {
	return &DispatchEvent{
		Kind:         rec.Kind,
		DescriptorID: rec.DescriptorID,
		Account:      rec.Account,
		Path:         rec.Path,
		BundleID:     rec.BundleID,
		TxHash:       rec.TxHash,
		ConfirmedID:  rec.ConfirmedID,
		State:        rec.State,
		ErrorCode:    rec.ErrorCode,
		Timestamp:    rec.FinishedAt,
	}
}

func observe(d *types.TransactionDescriptor, rec *model.DispatchRecord, res *dispatch.Result, runErr error) {
	m := monitor.Business
	if m == nil {
		return
	}
	path := rec.Path
	if path == "" {
		path = "none"
	}
	m.DispatchTotal.WithLabelValues(rec.Kind, path, strings.ToLower(rec.State)).Inc()
	m.DispatchDuration.WithLabelValues(path).Observe(rec.FinishedAt.Sub(rec.StartedAt).Seconds())
	if rec.PollAttempts > 0 {
		m.PollAttempts.Observe(float64(rec.PollAttempts))
	}
	if res != nil {
		for _, p := range res.Skipped {
			m.PathSkippedTotal.WithLabelValues(string(p)).Inc()
		}
	}
	if errors.Is(runErr, errno.ErrConfirmationRejected) {
		m.ConfirmRejectedTotal.WithLabelValues(string(d.Kind)).Inc()
	}
}

// TransitionHook 状态变化写日志和指标, 传给 dispatch.Options.OnTransition
func TransitionHook(from, to dispatch.State) {
	logger.Debug("派发状态变化", zap.String("from", string(from)), zap.String("to", string(to)))
	if m := monitor.Business; m != nil {
		m.StateTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	}
}
