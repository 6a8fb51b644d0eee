package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"wallet-gas/internal/model"
	"wallet-gas/internal/service/mq"
	"wallet-gas/pkg/logger"
)

const defaultPublishBuffer = 1024

// DraftPublisher 将已提交的草稿转发到消息队列，供其他进程中的渲染上下文订阅
// 提交只负责入队，由单个后台 goroutine 按提交顺序发送；发布失败只记录日志，不影响提交
type DraftPublisher struct {
	producer mq.Producer
	topic    string
	timeout  time.Duration
	log      *zap.Logger

	events chan *model.TransactionDraft
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDraftPublisher(producer mq.Producer, topic string) *DraftPublisher {
	return NewDraftPublisherWithBuffer(producer, topic, defaultPublishBuffer)
}

// NewDraftPublisherWithBuffer buffer 满时新事件被丢弃并记录日志
func NewDraftPublisherWithBuffer(producer mq.Producer, topic string, buffer int) *DraftPublisher {
	if buffer <= 0 {
		buffer = defaultPublishBuffer
	}
	p := &DraftPublisher{
		producer: producer,
		topic:    topic,
		timeout:  3 * time.Second,
		log:      logger.Named("draft_publisher"),
		events:   make(chan *model.TransactionDraft, buffer),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Attach 注册为 DraftService 的全局订阅者
func (p *DraftPublisher) Attach(drafts *DraftService) {
	drafts.Watch(p.Publish)
}

// Publish 入队后立即返回
func (p *DraftPublisher) Publish(draft *model.TransactionDraft) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- draft:
	default:
		p.log.Warn("draft event buffer full, event dropped", zap.String("request_id", draft.RequestID))
	}
}

// Close 停止接收新事件，等待已入队事件发送完毕
func (p *DraftPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.done
}

func (p *DraftPublisher) run() {
	defer close(p.done)
	for draft := range p.events {
		p.send(draft)
	}
}

func (p *DraftPublisher) send(draft *model.TransactionDraft) {
	payload, err := json.Marshal(NewDraftView(draft, nil))
	if err != nil {
		p.log.Error("encode draft event failed", zap.String("request_id", draft.RequestID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	// key 使用 requestID，保证同一草稿的事件在同一分区内有序
	if err := p.producer.Publish(ctx, p.topic, draft.RequestID, payload); err != nil {
		p.log.Warn("publish draft event failed", zap.String("request_id", draft.RequestID), zap.Error(err))
	}
}
