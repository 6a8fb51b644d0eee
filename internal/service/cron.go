package service

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/logger"
)

// CronService 定时清理长时间无人访问的草稿 (dapp 页面关闭后不会再来确认或拒绝)
type CronService struct {
	cron    *cron.Cron
	drafts  *DraftService
	flow    *EditFlowService
	idleTTL time.Duration
	now     func() time.Time
}

func NewCronService(drafts *DraftService, flow *EditFlowService, idleTTL time.Duration) *CronService {
	return &CronService{
		cron:    cron.New(),
		drafts:  drafts,
		flow:    flow,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (s *CronService) Start() {
	_, _ = s.cron.AddFunc("@every 1m", func() { s.ExpireIdleDrafts(context.Background()) })

	s.cron.Start()
	logger.Info("Cron Service started", zap.Duration("draft_idle_ttl", s.idleTTL))
}

func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Cron Service stopped")
}

// ExpireIdleDrafts 丢弃超时无人访问的草稿，返回清理数量
// 有编辑会话或订阅者 (弹窗仍打开) 的草稿不会被清理
func (s *CronService) ExpireIdleDrafts(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)
	expired := 0
	for _, id := range s.drafts.IdleSince(cutoff) {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.flow.DiscardIfIdle(id, cutoff)
		if err != nil {
			if !errors.Is(err, errno.ErrDraftNotFound) {
				logger.Warn("expire idle draft failed", zap.String("request_id", id), zap.Error(err))
			}
			continue
		}
		if ok {
			expired++
		}
	}
	if expired > 0 {
		logger.Info("idle drafts expired", zap.Int("count", expired))
	}
	return expired
}
