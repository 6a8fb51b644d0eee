package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-gas/internal/model"
)

type recordedMessage struct {
	topic   string
	key     string
	payload []byte
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []recordedMessage
	err  error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, recordedMessage{topic: topic, key: key, payload: payload})
	return nil
}

func TestDraftPublisherForwardsCommits(t *testing.T) {
	f := newFixture(t)
	f.walletDraft(t, "r1", "2.2")

	producer := &fakeProducer{}
	publisher := NewDraftPublisher(producer, "wallet:events:draft")
	publisher.Attach(f.drafts)

	_, err := f.drafts.Update("r1", func(d *model.TransactionDraft) error {
		d.Selection.Tier = model.TierCustom
		d.Selection.Estimate = estimate(8, 8)
		d.Selection.GasLimit = 100000
		return nil
	})
	require.NoError(t, err)
	publisher.Close()

	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	assert.Equal(t, "wallet:events:draft", msg.topic)
	assert.Equal(t, "r1", msg.key)

	var view struct {
		RequestID string `json:"requestId"`
		ValueEth  string `json:"valueEth"`
		Selection struct {
			Tier         string `json:"tier"`
			MaxFeePerGas string `json:"maxFeePerGas"`
			GasLimit     string `json:"gasLimit"`
			EstimatedFee string `json:"estimatedFee"`
			TotalCost    string `json:"totalCost"`
		} `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(msg.payload, &view))
	assert.Equal(t, "r1", view.RequestID)
	assert.Equal(t, "2.2", view.ValueEth)
	assert.Equal(t, "custom", view.Selection.Tier)
	assert.Equal(t, "0x1dcd65000", view.Selection.MaxFeePerGas)
	assert.Equal(t, "0x186a0", view.Selection.GasLimit)
	assert.Equal(t, "0.0008", view.Selection.EstimatedFee)
	assert.Equal(t, "2.2008", view.Selection.TotalCost)
}

func TestDraftPublisherFailureDoesNotBlockCommit(t *testing.T) {
	f := newFixture(t)
	f.walletDraft(t, "r1", "1")
	publisher := NewDraftPublisher(&fakeProducer{err: errors.New("broker down")}, "wallet:events:draft")
	defer publisher.Close()
	publisher.Attach(f.drafts)

	_, err := f.drafts.Update("r1", func(d *model.TransactionDraft) error {
		d.Selection.Tier = model.TierHigh
		return nil
	})
	require.NoError(t, err)

	d, err := f.drafts.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, model.TierHigh, d.Selection.Tier)
}

// slowProducer 每条消息都要等 release 关闭后才返回
type slowProducer struct {
	fakeProducer
	release chan struct{}
}

func (p *slowProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.fakeProducer.Publish(ctx, topic, key, payload)
}

func TestConfirmEditNotDelayedBySlowBroker(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.walletDraft(t, "r1", "1")

	producer := &slowProducer{release: make(chan struct{})}
	publisher := NewDraftPublisher(producer, "wallet:events:draft")
	publisher.Attach(f.drafts)

	_, err := f.flow.OpenEdit(ctx, "r1")
	require.NoError(t, err)
	_, err = f.flow.SelectTier(ctx, "r1", model.TierHigh)
	require.NoError(t, err)

	start := time.Now()
	_, err = f.flow.ConfirmEdit(ctx, "r1")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	d, err := f.drafts.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, model.TierHigh, d.Selection.Tier)

	require.NoError(t, f.flow.DiscardDraft(ctx, "r1"))

	close(producer.release)
	publisher.Close()

	// 提交与删除事件按顺序送达
	require.Len(t, producer.sent, 2)
	var first, last struct {
		Discarded bool `json:"discarded"`
		Selection struct {
			Tier string `json:"tier"`
		} `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(producer.sent[0].payload, &first))
	require.NoError(t, json.Unmarshal(producer.sent[1].payload, &last))
	assert.Equal(t, "high", first.Selection.Tier)
	assert.False(t, first.Discarded)
	assert.True(t, last.Discarded)
}

func TestDraftPublisherDropsWhenBufferFull(t *testing.T) {
	f := newFixture(t)
	f.walletDraft(t, "r1", "1")

	producer := &slowProducer{release: make(chan struct{})}
	publisher := NewDraftPublisherWithBuffer(producer, "wallet:events:draft", 1)
	publisher.Attach(f.drafts)

	for i := 0; i < 5; i++ {
		_, err := f.drafts.Update("r1", func(d *model.TransactionDraft) error { return nil })
		require.NoError(t, err)
	}

	close(producer.release)
	publisher.Close()
	producer.mu.Lock()
	defer producer.mu.Unlock()
	assert.GreaterOrEqual(t, len(producer.sent), 1)
	assert.Less(t, len(producer.sent), 5, "events beyond the buffer are dropped, not blocking")
}
