package service

import (
	"context"

	"wallet-gas/internal/model"
)

// FeeEstimateProvider 提供当前网络的 low/medium/high 估算
// 由外部实现 (RPC 节点、gas station 等)，核心只消费
type FeeEstimateProvider interface {
	GetEstimates(ctx context.Context, network string) (model.FeeEstimates, error)
}

// Listener 接收已提交的草稿副本
type Listener func(draft *model.TransactionDraft)
