package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"dispatch-core/internal/backend"
	"dispatch-core/internal/dispatch"
	"dispatch-core/internal/model"
	"dispatch-core/pkg/errno"
	"dispatch-core/pkg/utils/lock"
	"dispatch-core/pkg/wallet/types"
)

type fakeSource struct {
	d    *types.TransactionDescriptor
	err  error
	kind types.Kind
}

func (s *fakeSource) FetchPaymentInfo(ctx context.Context, kind types.Kind, req *backend.PaymentInfoRequest) (*types.TransactionDescriptor, error) {
	s.kind = kind
	return s.d, s.err
}

type fakeRunner struct {
	res   *dispatch.Result
	err   error
	calls int
	// during 在 Run 执行期间回调, 用来检查锁状态
	during func()
}

func (r *fakeRunner) Run(ctx context.Context, d *types.TransactionDescriptor, account string) (*dispatch.Result, error) {
	r.calls++
	if r.during != nil {
		r.during()
	}
	return r.res, r.err
}

type fakeProber struct {
	caps types.WalletCapabilities
}

func (p *fakeProber) Probe(ctx context.Context, account string) types.WalletCapabilities {
	return p.caps
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	released []string
}

var _ lock.DistributedLock = (*fakeLocker)(nil)

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return lock.ErrNotHeld
	}
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

func (l *fakeLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

type fakeStore struct {
	records []*model.DispatchRecord
	events  []*DispatchEvent
	saveErr error

	outbox    []model.OutboxMessage
	sent      []uint64
	attempted []uint64
}

func (s *fakeStore) Save(ctx context.Context, rec *model.DispatchRecord, event *DispatchEvent) error {
	// 和 gorm 一样, 已取消的 context 不会开启事务
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	rec.ID = uint64(len(s.records) + 1)
	s.records = append(s.records, rec)
	s.events = append(s.events, event)
	return nil
}

func (s *fakeStore) Latest(ctx context.Context, kind string, descriptorID int64) (*model.DispatchRecord, error) {
	for i := len(s.records) - 1; i >= 0; i-- {
		if r := s.records[i]; r.Kind == kind && r.DescriptorID == descriptorID {
			return r, nil
		}
	}
	return nil, errno.ErrNotFound
}

func (s *fakeStore) PendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var out []model.OutboxMessage
	for _, m := range s.outbox {
		if m.Status == model.OutboxPending && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id uint64) error {
	for i := range s.outbox {
		if s.outbox[i].ID == id {
			s.outbox[i].Status = model.OutboxSent
		}
	}
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkAttempt(ctx context.Context, id uint64) error {
	s.attempted = append(s.attempted, id)
	return nil
}

type published struct {
	topic, key string
	payload    []byte
}

type fakeProducer struct {
	msgs   []published
	failOn map[string]bool
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if p.failOn[key] {
		return errors.New("broker unavailable")
	}
	p.msgs = append(p.msgs, published{topic, key, payload})
	return nil
}

func (p *fakeProducer) Close() error { return nil }
