package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/logger"
)

// TierContext 解析档位所需的上下文
type TierContext struct {
	Draft *model.TransactionDraft
	// StagedCustom 当前编辑会话中最近一次输入的自定义值，没有则为 nil
	StagedCustom *model.FeeEstimate
}

// TierService 将档位解析为具体费用
type TierService struct {
	provider FeeEstimateProvider
	defaults *CustomDefaultService
	log      *zap.Logger
}

func NewTierService(provider FeeEstimateProvider, defaults *CustomDefaultService) *TierService {
	return &TierService{
		provider: provider,
		defaults: defaults,
		log:      logger.Named("tier"),
	}
}

// Resolve 返回档位对应的费用
// Low/Medium/High: 网络估算的当前快照
// Custom: 会话暂存值 > 已保存默认值 > Medium
// DappSuggested: 草稿创建时请求携带的原值，不受后续估算刷新影响
func (s *TierService) Resolve(ctx context.Context, tier model.FeeTier, tc TierContext) (model.FeeEstimate, error) {
	if tc.Draft == nil {
		return model.FeeEstimate{}, errno.ErrDraftNotFound
	}

	switch tier {
	case model.TierLow, model.TierMedium, model.TierHigh:
		return s.baseline(ctx, tier, tc.Draft.Network)

	case model.TierCustom:
		if tc.StagedCustom != nil {
			return tc.StagedCustom.Clone(), nil
		}
		if s.defaults != nil {
			def, err := s.defaults.Load(ctx, tc.Draft.Account, tc.Draft.Network)
			if err != nil {
				// 读取失败不阻塞编辑，退回 Medium
				s.log.Warn("load custom fee default failed, falling back to medium",
					zap.String("request_id", tc.Draft.RequestID), zap.Error(err))
			} else if def != nil {
				return def.Estimate(), nil
			}
		}
		return s.baseline(ctx, model.TierMedium, tc.Draft.Network)

	case model.TierDappSuggested:
		if tc.Draft.Origin != model.OriginDapp || tc.Draft.DappSuggestion == nil {
			return model.FeeEstimate{}, errno.ErrTierUnavailable.WithMessage("no site suggested fee for this request")
		}
		return tc.Draft.DappSuggestion.Clone(), nil
	}

	return model.FeeEstimate{}, errno.ErrValidation.WithMessage(fmt.Sprintf("unknown fee tier %s", tier))
}

// Estimates 返回网络估算快照，用于编辑器展示全部基础档位
func (s *TierService) Estimates(ctx context.Context, network string) (model.FeeEstimates, error) {
	est, err := s.provider.GetEstimates(ctx, network)
	if err != nil {
		return model.FeeEstimates{}, fmt.Errorf("get estimates for %s: %w", network, err)
	}
	return est, nil
}

func (s *TierService) baseline(ctx context.Context, tier model.FeeTier, network string) (model.FeeEstimate, error) {
	est, err := s.Estimates(ctx, network)
	if err != nil {
		return model.FeeEstimate{}, err
	}
	e, _ := est.ForTier(tier)
	if err := e.Validate(); err != nil {
		return model.FeeEstimate{}, fmt.Errorf("%s estimate from provider: %w", tier, err)
	}
	return e, nil
}
