package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/logger"
	"wallet-gas/pkg/monitor"
	"wallet-gas/pkg/units"
)

// SafetyVerdict 安全检查结果
type SafetyVerdict struct {
	// Alert 低于网络下限时非空，用于展示
	Alert *model.Alert
	// Raised 本次是否为该值第一次告警 (同一值重复出现不重复告警)
	Raised bool
	Floor  *big.Int
}

// SafetyService 检查费用是否低于网络隐含下限 (Low 档 maxFeePerGas)
// 只做提示，不阻塞确认
type SafetyService struct {
	provider FeeEstimateProvider
	log      *zap.Logger

	mu sync.Mutex
	// scope(requestID) -> 已告警过的 maxFeePerGas
	warned map[string]map[string]struct{}
}

func NewSafetyService(provider FeeEstimateProvider) *SafetyService {
	return &SafetyService{
		provider: provider,
		log:      logger.Named("safety"),
		warned:   make(map[string]map[string]struct{}),
	}
}

// Evaluate 对 selection 做下限检查，scope 通常是 requestID
func (s *SafetyService) Evaluate(ctx context.Context, scope, network string, selection model.GasFeeSelection) (SafetyVerdict, error) {
	est, err := s.provider.GetEstimates(ctx, network)
	if err != nil {
		return SafetyVerdict{}, fmt.Errorf("safety floor for %s: %w", network, err)
	}
	floor := est.Low.MaxFeePerGas
	if floor == nil || selection.Estimate.MaxFeePerGas == nil {
		return SafetyVerdict{}, nil
	}

	verdict := SafetyVerdict{Floor: new(big.Int).Set(floor)}
	if selection.Estimate.MaxFeePerGas.Cmp(floor) >= 0 {
		return verdict, nil
	}

	verdict.Alert = &model.Alert{
		Kind: model.AlertLowFee,
		Message: fmt.Sprintf("Max fee %s gwei is below the current network low of %s gwei; the transaction may stall",
			units.FormatGwei(selection.Estimate.MaxFeePerGas), units.FormatGwei(floor)),
	}

	value := selection.Estimate.MaxFeePerGas.String()
	s.mu.Lock()
	seen, ok := s.warned[scope]
	if !ok {
		seen = make(map[string]struct{})
		s.warned[scope] = seen
	}
	if _, dup := seen[value]; !dup {
		seen[value] = struct{}{}
		verdict.Raised = true
	}
	s.mu.Unlock()

	if verdict.Raised {
		monitor.Fee.LowFeeWarningsTotal.Inc()
		s.log.Info("low fee warning",
			zap.String("scope", scope),
			zap.String("max_fee_per_gas", value),
			zap.Stringer("floor", floor))
	}
	return verdict, nil
}

// Reset 丢弃 scope 的告警记录，草稿结束时调用
func (s *SafetyService) Reset(scope string) {
	s.mu.Lock()
	delete(s.warned, scope)
	s.mu.Unlock()
}
