package service

import (
	"context"
	"errors"
	"fmt"

	"dispatch-core/internal/model"
	"dispatch-core/pkg/errno"

	"gorm.io/gorm"
)

// RecordStore 派发记录和 outbox 持久化
type RecordStore interface {
	// Save 在同一个事务里写派发记录和对应的事件
	Save(ctx context.Context, rec *model.DispatchRecord, event *DispatchEvent) error
	// Latest 某个描述最近一次派发, 没有时返回 errno.ErrNotFound
	Latest(ctx context.Context, kind string, descriptorID int64) (*model.DispatchRecord, error)
}

// OutboxStore RelayService 使用
type OutboxStore interface {
	PendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id uint64) error
	MarkAttempt(ctx context.Context, id uint64) error
}

// GormRecordStore RecordStore 和 OutboxStore 的 PostgreSQL 实现
type GormRecordStore struct {
	db    *gorm.DB
	topic string
}

var (
	_ RecordStore = (*GormRecordStore)(nil)
	_ OutboxStore = (*GormRecordStore)(nil)
)

func NewGormRecordStore(db *gorm.DB, topic string) *GormRecordStore {
	return &GormRecordStore{db: db, topic: topic}
}

func (s *GormRecordStore) Save(ctx context.Context, rec *model.DispatchRecord, event *DispatchEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("%w: %v", errno.ErrDatabase, err)
		}
		if event == nil {
			return nil
		}
		if err := model.CreateOutboxMessage(tx, s.topic, event.Key(), event); err != nil {
			return fmt.Errorf("%w: %v", errno.ErrDatabase, err)
		}
		return nil
	})
}

func (s *GormRecordStore) Latest(ctx context.Context, kind string, descriptorID int64) (*model.DispatchRecord, error) {
	var rec model.DispatchRecord
	err := s.db.WithContext(ctx).
		Where("kind = ? AND descriptor_id = ?", kind, descriptorID).
		Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrDatabase, err)
	}
	return &rec, nil
}

func (s *GormRecordStore) PendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	var messages []model.OutboxMessage
	err := s.db.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (s *GormRecordStore) MarkSent(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

func (s *GormRecordStore) MarkAttempt(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}
