package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wallet-gas/pkg/logger"
)

// RedisProducer 实现 Producer 接口
type RedisProducer struct {
	client *redis.Client
	// maxLen 限制 Stream 长度 (近似裁剪)，0 表示不限制
	maxLen int64
}

// NewRedisProducer 创建 Redis 生产者
func NewRedisProducer(client *redis.Client, maxLen int64) *RedisProducer {
	return &RedisProducer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发送消息到 Redis Stream (XADD)
func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

// RedisConsumer 实现 Consumer 接口
type RedisConsumer struct {
	client *redis.Client
	group  string
	name   string
}

// NewRedisConsumer 创建 Redis 消费者
func NewRedisConsumer(client *redis.Client, group, name string) *RedisConsumer {
	return &RedisConsumer{
		client: client,
		group:  group,
		name:   name,
	}
}

// Subscribe 订阅 Redis Stream，阻塞直到 ctx 结束
func (c *RedisConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	// 1. 创建 Consumer Group (如果不存在)
	err := c.client.XGroupCreateMkStream(ctx, topic, c.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}

	logger.Info("redis stream subscribed", zap.String("topic", topic), zap.String("group", c.group))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// 2. 阻塞读取消息
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{topic, ">"},
			Count:    10,
			Block:    2 * time.Second,
		}).Result()

		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("redis stream read failed", zap.String("topic", topic), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		// 3. 处理消息
		for _, stream := range streams {
			for _, xMessage := range stream.Messages {
				val, ok := xMessage.Values["payload"].(string)
				if !ok {
					logger.Warn("redis stream message without payload", zap.String("id", xMessage.ID))
					c.ack(ctx, topic, xMessage.ID)
					continue
				}
				key, _ := xMessage.Values["key"].(string)

				msg := &Message{
					ID:      xMessage.ID,
					Topic:   topic,
					Key:     key,
					Payload: []byte(val),
				}

				if err := handler(msg); err != nil {
					logger.Warn("redis stream handler failed", zap.String("id", xMessage.ID), zap.Error(err))
					continue
				}
				c.ack(ctx, topic, xMessage.ID)
			}
		}
	}
}

func (c *RedisConsumer) ack(ctx context.Context, topic, id string) {
	c.client.XAck(ctx, topic, c.group, id)
}

func (c *RedisConsumer) Close() error {
	return c.client.Close()
}
