package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/logger"
	"wallet-gas/pkg/monitor"
	"wallet-gas/pkg/storage"
)

// CustomDefaultService 读写用户保存的自定义费用 (每个 账户+网络 一份)
type CustomDefaultService struct {
	store storage.Persistence
	log   *zap.Logger
}

func NewCustomDefaultService(store storage.Persistence) *CustomDefaultService {
	return &CustomDefaultService{
		store: store,
		log:   logger.Named("custom_default"),
	}
}

// Key 返回持久化使用的 key
func (s *CustomDefaultService) Key(account common.Address, network string) string {
	return fmt.Sprintf("gasfee:custom_default:%s:%s", strings.ToLower(account.Hex()), network)
}

// Save 覆盖写入，写失败重试一次；仍失败返回 ErrPersistence
func (s *CustomDefaultService) Save(ctx context.Context, account common.Address, network string, def model.CustomFeeDefault) error {
	if err := def.Estimate().Validate(); err != nil {
		return err
	}

	key := s.Key(account, network)
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		if err = s.store.Write(ctx, key, def); err == nil {
			monitor.Fee.CustomDefaultSaves.WithLabelValues("saved").Inc()
			s.log.Info("custom fee default saved",
				zap.String("key", key),
				zap.Stringer("max_fee_per_gas", def.MaxFeePerGas),
				zap.Stringer("max_priority_fee_per_gas", def.MaxPriorityFeePerGas))
			return nil
		}
		s.log.Warn("custom fee default write failed", zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
	}

	monitor.Fee.CustomDefaultSaves.WithLabelValues("failed").Inc()
	return fmt.Errorf("%w: %v", errno.ErrPersistence, err)
}

// Load 读取已保存的默认值，不存在时返回 (nil, nil)
func (s *CustomDefaultService) Load(ctx context.Context, account common.Address, network string) (*model.CustomFeeDefault, error) {
	var def model.CustomFeeDefault
	err := s.store.Read(ctx, s.Key(account, network), &def)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := def.Estimate().Validate(); err != nil {
		return nil, fmt.Errorf("stored custom default is invalid: %w", err)
	}
	return &def, nil
}
