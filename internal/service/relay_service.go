package service

import (
	"context"
	"time"

	"dispatch-core/internal/service/mq"
	"dispatch-core/pkg/logger"
	"dispatch-core/pkg/monitor"

	"go.uber.org/zap"
)

// RelayService 把 outbox 里的派发事件搬运到 MQ, 至少投递一次
type RelayService struct {
	store     OutboxStore
	producer  mq.Producer
	interval  time.Duration
	batchSize int
}

func NewRelayService(store OutboxStore, producer mq.Producer) *RelayService {
	return &RelayService{
		store:     store,
		producer:  producer,
		interval:  500 * time.Millisecond,
		batchSize: 50,
	}
}

func (s *RelayService) Start(ctx context.Context) {
	logger.Info("[Relay] 启动消息中继服务")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Relay] 停止服务")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

// processPendingMessages 返回本轮投递成功的条数
func (s *RelayService) processPendingMessages(ctx context.Context) int {
	messages, err := s.store.PendingOutbox(ctx, s.batchSize)
	if err != nil {
		logger.Error("[Relay] 查询消息失败", zap.Error(err))
		return 0
	}
	if len(messages) == 0 {
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if err := s.producer.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			logger.Warn("[Relay] 发送消息失败", zap.Uint64("id", msg.ID), zap.Error(err))
			if err := s.store.MarkAttempt(ctx, msg.ID); err != nil {
				logger.Warn("[Relay] 更新重试次数失败", zap.Uint64("id", msg.ID), zap.Error(err))
			}
			relayed("failed")
			continue
		}

		// 发送成功后才标记, 标记失败下一轮会重发, 消费方需要幂等
		if err := s.store.MarkSent(ctx, msg.ID); err != nil {
			logger.Warn("[Relay] 更新状态失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		relayed("sent")
		sent++
	}
	logger.Debug("[Relay] 本轮投递完成", zap.Int("pending", len(messages)), zap.Int("sent", sent))
	return sent
}

func relayed(status string) {
	if m := monitor.Business; m != nil {
		m.OutboxRelayedTotal.WithLabelValues(status).Inc()
	}
}
