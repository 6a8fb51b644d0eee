package service

import (
	"context"
	"fmt"
	"sync"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/errno"
)

// StaticEstimateProvider 内存中的估算源，用于开发环境、CLI 与测试
// SetEstimates 相当于外部推送了一份新的基础估算
type StaticEstimateProvider struct {
	mu        sync.RWMutex
	estimates map[string]model.FeeEstimates
}

func NewStaticEstimateProvider() *StaticEstimateProvider {
	return &StaticEstimateProvider{estimates: make(map[string]model.FeeEstimates)}
}

func (p *StaticEstimateProvider) SetEstimates(network string, est model.FeeEstimates) error {
	for _, tier := range model.BaselineTiers {
		e, _ := est.ForTier(tier)
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%s estimate: %w", tier, err)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.estimates[network] = model.FeeEstimates{
		Low:        est.Low.Clone(),
		Medium:     est.Medium.Clone(),
		High:       est.High.Clone(),
		Congestion: est.Congestion,
	}
	return nil
}

func (p *StaticEstimateProvider) GetEstimates(ctx context.Context, network string) (model.FeeEstimates, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	est, ok := p.estimates[network]
	if !ok {
		return model.FeeEstimates{}, errno.ErrEstimatesUnavailable.WithMessage(network)
	}
	return model.FeeEstimates{
		Low:        est.Low.Clone(),
		Medium:     est.Medium.Clone(),
		High:       est.High.Clone(),
		Congestion: est.Congestion,
	}, nil
}
