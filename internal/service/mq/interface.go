package mq

import "context"

// Producer 消息生产者, Kafka 和 Redis Stream 两种实现
type Producer interface {
	// Publish key 用于分区有序, 派发事件使用 "{kind}:{id}"
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}
