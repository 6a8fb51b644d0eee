package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/lock"
	"wallet-gas/pkg/logger"
	"wallet-gas/pkg/monitor"
)

// EditState 编辑弹窗状态
type EditState int

const (
	StateClosed EditState = iota
	StateOpen
	StateSelectingTier
	StateCustomizing
	StateValidated
	StateSaved
	StateCancelled
)

func (s EditState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateSelectingTier:
		return "selecting_tier"
	case StateCustomizing:
		return "customizing"
	case StateValidated:
		return "validated"
	case StateSaved:
		return "saved"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("EditState(%d)", int(s))
	}
}

func (s EditState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// transitions 合法的状态迁移
var transitions = map[EditState][]EditState{
	StateClosed:        {StateOpen},
	StateOpen:          {StateSelectingTier, StateCustomizing, StateValidated, StateCancelled},
	StateSelectingTier: {StateSelectingTier, StateCustomizing, StateValidated, StateCancelled},
	StateCustomizing:   {StateSelectingTier, StateCustomizing, StateValidated, StateCancelled},
	StateValidated:     {StateSaved, StateCancelled},
	StateSaved:         {StateClosed},
	StateCancelled:     {StateClosed},
}

func canTransition(from, to EditState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EditPreview 编辑中的实时预览，不代表已提交
type EditPreview struct {
	RequestID     string
	State         EditState
	Staged        model.GasFeeSelection
	Amounts       model.Amounts
	Alert         *model.Alert
	SaveAsDefault bool
}

// EditResult ConfirmEdit 的结果
type EditResult struct {
	Draft   *model.TransactionDraft
	Amounts model.Amounts
	Alert   *model.Alert
	// DefaultSaved 是否写入了自定义默认值
	DefaultSaved bool
	// Notice 非阻塞提示，例如默认值保存失败
	Notice string
}

type editSession struct {
	mu sync.Mutex

	requestID string
	state     EditState
	draft     *model.TransactionDraft
	rollback  model.GasFeeSelection
	staged    model.GasFeeSelection
	// stagedCustom 最近一次输入的自定义值，切换档位不会清除
	stagedCustom  *model.FeeEstimate
	saveAsDefault bool
	amounts       model.Amounts
	alert         *model.Alert
	closed        bool
}

func (e *editSession) transition(to EditState) error {
	if !canTransition(e.state, to) {
		return fmt.Errorf("edit session %s: illegal transition %s -> %s", e.requestID, e.state, to)
	}
	e.state = to
	return nil
}

func (e *editSession) preview() *EditPreview {
	p := &EditPreview{
		RequestID:     e.requestID,
		State:         e.state,
		Staged:        e.staged.Clone(),
		Amounts:       cloneAmounts(e.amounts),
		SaveAsDefault: e.saveAsDefault,
	}
	if e.alert != nil {
		a := *e.alert
		p.Alert = &a
	}
	return p
}

// EditFlowService 编排费用编辑弹窗: 打开、选档、自定义、校验、保存/取消
// 编辑内容只暂存在会话里，保存时一次性提交到草稿
type EditFlowService struct {
	drafts   *DraftService
	tiers    *TierService
	safety   *SafetyService
	defaults *CustomDefaultService
	locker   lock.DistributedLock
	lockTTL  time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*editSession
}

func NewEditFlowService(drafts *DraftService, tiers *TierService, safety *SafetyService, defaults *CustomDefaultService, locker lock.DistributedLock, lockTTL time.Duration) *EditFlowService {
	if locker == nil {
		locker = lock.NewLocalLock()
	}
	return &EditFlowService{
		drafts:   drafts,
		tiers:    tiers,
		safety:   safety,
		defaults: defaults,
		locker:   locker,
		lockTTL:  lockTTL,
		now:      time.Now,
		log:      logger.Named("edit_flow"),
		sessions: make(map[string]*editSession),
	}
}

func lockKey(requestID string) string {
	return "gasfee:edit:" + requestID
}

// OpenEdit 打开编辑器，记录回滚点；同一请求同时只允许一个编辑会话
// s.mu 只用于占位，加锁与估算等 I/O 在占位之后进行，不影响其他请求
func (s *EditFlowService) OpenEdit(ctx context.Context, requestID string) (*EditPreview, error) {
	s.mu.Lock()
	if _, active := s.sessions[requestID]; active {
		s.mu.Unlock()
		return nil, errno.ErrEditSessionActive.WithMessage(requestID)
	}
	// 在 s.mu 内读取草稿，DiscardIfIdle 无法在读取与占位之间删除它
	draft, err := s.drafts.Get(requestID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sess := &editSession{
		requestID: requestID,
		state:     StateClosed,
		draft:     draft,
		rollback:  draft.Selection.Clone(),
		staged:    draft.Selection.Clone(),
	}
	// 新会话尚未对外可见，此处加锁不会阻塞
	sess.mu.Lock()
	defer sess.mu.Unlock()
	s.sessions[requestID] = sess
	s.mu.Unlock()

	acquired, err := s.locker.Acquire(ctx, lockKey(requestID), s.lockTTL)
	if err != nil {
		s.abandon(sess)
		return nil, fmt.Errorf("acquire edit lock for %s: %w", requestID, err)
	}
	if !acquired {
		s.abandon(sess)
		return nil, errno.ErrEditSessionActive.WithMessage(requestID + " is being edited elsewhere")
	}

	if draft.Selection.Tier == model.TierCustom {
		custom := draft.Selection.Estimate.Clone()
		sess.stagedCustom = &custom
	}
	if err := sess.transition(StateOpen); err != nil {
		s.abandon(sess)
		_ = s.locker.Release(ctx, lockKey(requestID))
		return nil, err
	}
	if err := s.refresh(ctx, sess); err != nil {
		s.abandon(sess)
		_ = s.locker.Release(ctx, lockKey(requestID))
		return nil, err
	}

	s.log.Info("edit session opened",
		zap.String("request_id", requestID),
		zap.Stringer("tier", sess.staged.Tier))
	return sess.preview(), nil
}

// SelectTier 选择档位并实时预览，不提交到草稿
func (s *EditFlowService) SelectTier(ctx context.Context, requestID string, tier model.FeeTier) (*EditPreview, error) {
	sess, err := s.session(requestID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, errno.ErrNoEditSession.WithMessage(requestID)
	}

	next := StateSelectingTier
	if tier == model.TierCustom {
		next = StateCustomizing
	}
	if !canTransition(sess.state, next) {
		return nil, fmt.Errorf("select tier in state %s: %w", sess.state, errno.ErrValidation)
	}

	est, err := s.tiers.Resolve(ctx, tier, TierContext{Draft: sess.draft, StagedCustom: sess.stagedCustom})
	if err != nil {
		return nil, err
	}

	prev := sess.staged
	sess.staged = model.GasFeeSelection{Tier: tier, Estimate: est, GasLimit: prev.GasLimit}
	if tier == model.TierCustom {
		custom := est.Clone()
		sess.stagedCustom = &custom
	}
	if err := s.refresh(ctx, sess); err != nil {
		sess.staged = prev
		return nil, err
	}
	_ = sess.transition(next)

	monitor.Fee.TierSelectedTotal.WithLabelValues(tier.String()).Inc()
	s.log.Debug("tier selected",
		zap.String("request_id", requestID),
		zap.Stringer("tier", tier),
		zap.Stringer("max_fee_per_gas", est.MaxFeePerGas))
	return sess.preview(), nil
}

// SetCustomFee 输入自定义费用 (进入 Customizing)
// maxFeePerGas < maxPriorityFeePerGas 时返回 ErrValidation，状态与暂存值不变
func (s *EditFlowService) SetCustomFee(ctx context.Context, requestID string, maxFeePerGas, maxPriorityFeePerGas *big.Int) (*EditPreview, error) {
	sess, err := s.session(requestID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, errno.ErrNoEditSession.WithMessage(requestID)
	}
	if !canTransition(sess.state, StateCustomizing) {
		return nil, fmt.Errorf("set custom fee in state %s: %w", sess.state, errno.ErrValidation)
	}

	est := model.FeeEstimate{MaxFeePerGas: maxFeePerGas, MaxPriorityFeePerGas: maxPriorityFeePerGas}
	if err := est.Validate(); err != nil {
		return nil, err
	}
	est = est.Clone()

	prev, prevCustom := sess.staged, sess.stagedCustom
	sess.staged = model.GasFeeSelection{Tier: model.TierCustom, Estimate: est, GasLimit: prev.GasLimit}
	custom := est.Clone()
	sess.stagedCustom = &custom
	if err := s.refresh(ctx, sess); err != nil {
		sess.staged, sess.stagedCustom = prev, prevCustom
		return nil, err
	}
	_ = sess.transition(StateCustomizing)
	return sess.preview(), nil
}

// SetGasLimit 修改 gas 上限 (高级设置)，不改变档位
func (s *EditFlowService) SetGasLimit(ctx context.Context, requestID string, gasLimit uint64) (*EditPreview, error) {
	sess, err := s.session(requestID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, errno.ErrNoEditSession.WithMessage(requestID)
	}
	if gasLimit < params.TxGas {
		return nil, errno.ErrValidation.WithMessage(fmt.Sprintf("gas limit must be at least %d", params.TxGas))
	}
	if !canTransition(sess.state, StateCustomizing) {
		return nil, fmt.Errorf("set gas limit in state %s: %w", sess.state, errno.ErrValidation)
	}

	prev := sess.staged.GasLimit
	sess.staged.GasLimit = gasLimit
	if err := s.refresh(ctx, sess); err != nil {
		sess.staged.GasLimit = prev
		return nil, err
	}
	_ = sess.transition(StateCustomizing)
	return sess.preview(), nil
}

// ToggleSaveAsDefault 勾选/取消 "保存为默认值"
func (s *EditFlowService) ToggleSaveAsDefault(requestID string, enabled bool) (*EditPreview, error) {
	sess, err := s.session(requestID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, errno.ErrNoEditSession.WithMessage(requestID)
	}
	sess.saveAsDefault = enabled
	return sess.preview(), nil
}

// ConfirmEdit 校验并提交暂存值
// 低费用提示不阻塞保存；默认值写入失败只返回 Notice，草稿照常更新
// 草稿订阅者在提交时被同步回调，回调中不能再调用本服务的同一 requestID
func (s *EditFlowService) ConfirmEdit(ctx context.Context, requestID string) (*EditResult, error) {
	sess, err := s.session(requestID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, errno.ErrNoEditSession.WithMessage(requestID)
	}

	if err := sess.staged.Validate(); err != nil {
		return nil, err
	}
	amounts, err := ComputeAmounts(sess.staged, sess.draft.Value)
	if err != nil {
		return nil, err
	}
	if err := sess.transition(StateValidated); err != nil {
		return nil, err
	}

	// 1. 安全检查 (仅提示)
	verdict, err := s.safety.Evaluate(ctx, requestID, sess.draft.Network, sess.staged)
	if err != nil {
		s.log.Warn("safety check skipped", zap.String("request_id", requestID), zap.Error(err))
	}
	sess.alert = verdict.Alert

	// 2. 提交到草稿
	staged := sess.staged.Clone()
	committed, err := s.drafts.Update(requestID, func(d *model.TransactionDraft) error {
		d.Selection = staged
		return nil
	})
	if err != nil {
		if errors.Is(err, errno.ErrDraftNotFound) {
			sess.state = StateCancelled
			s.close(ctx, sess, StateCancelled)
		} else {
			// 回到编辑状态，用户可修正后重试
			sess.state = StateCustomizing
		}
		return nil, err
	}
	_ = sess.transition(StateSaved)

	result := &EditResult{Draft: committed, Amounts: amounts, Alert: sess.alert}

	// 3. 保存默认值 (用户显式勾选且为自定义档位)
	if sess.saveAsDefault && staged.Tier == model.TierCustom && s.defaults != nil {
		def := model.CustomFeeDefault{
			MaxFeePerGas:         new(big.Int).Set(staged.Estimate.MaxFeePerGas),
			MaxPriorityFeePerGas: new(big.Int).Set(staged.Estimate.MaxPriorityFeePerGas),
			SavedAt:              s.now(),
		}
		if err := s.defaults.Save(ctx, committed.Account, committed.Network, def); err != nil {
			result.Notice = "Your custom gas fee was applied to this transaction but could not be saved as default"
			s.log.Warn("custom default not saved", zap.String("request_id", requestID), zap.Error(err))
		} else {
			result.DefaultSaved = true
		}
	}

	s.close(ctx, sess, StateSaved)
	s.log.Info("edit session saved",
		zap.String("request_id", requestID),
		zap.Stringer("tier", staged.Tier),
		zap.Bool("default_saved", result.DefaultSaved))
	return result, nil
}

// CancelEdit 放弃暂存值，草稿保持打开前的状态
func (s *EditFlowService) CancelEdit(ctx context.Context, requestID string) error {
	sess, err := s.session(requestID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return errno.ErrNoEditSession.WithMessage(requestID)
	}
	if err := sess.transition(StateCancelled); err != nil {
		return err
	}
	sess.staged = sess.rollback.Clone()
	s.close(ctx, sess, StateCancelled)
	s.log.Info("edit session cancelled", zap.String("request_id", requestID))
	return nil
}

// Preview 返回当前会话的暂存预览
func (s *EditFlowService) Preview(requestID string) (*EditPreview, error) {
	sess, err := s.session(requestID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, errno.ErrNoEditSession.WithMessage(requestID)
	}
	return sess.preview(), nil
}

// State 返回编辑状态，没有会话时为 Closed
func (s *EditFlowService) State(requestID string) EditState {
	s.mu.Lock()
	sess, ok := s.sessions[requestID]
	s.mu.Unlock()
	if !ok {
		return StateClosed
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// DiscardDraft 结束请求: 取消进行中的编辑，删除草稿与告警记录
func (s *EditFlowService) DiscardDraft(ctx context.Context, requestID string) error {
	if err := s.CancelEdit(ctx, requestID); err != nil && !errors.Is(err, errno.ErrNoEditSession) {
		return err
	}
	s.safety.Reset(requestID)
	return s.drafts.Discard(requestID)
}

// DiscardIfIdle 没有编辑会话且草稿自 cutoff 起无人访问时删除草稿，返回是否删除
// 会话检查与删除都在 s.mu 内完成，与 OpenEdit 互斥
func (s *EditFlowService) DiscardIfIdle(requestID string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	if _, active := s.sessions[requestID]; active {
		s.mu.Unlock()
		return false, nil
	}
	entry, err := s.drafts.detach(requestID, cutoff)
	s.mu.Unlock()
	if err != nil || entry == nil {
		return false, err
	}
	s.safety.Reset(requestID)
	s.drafts.notifyDiscarded(entry)
	return true, nil
}

func (s *EditFlowService) session(requestID string) (*editSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[requestID]
	if !ok {
		return nil, errno.ErrNoEditSession.WithMessage(requestID)
	}
	return sess, nil
}

// refresh 重新计算暂存 selection 的金额与低费用提示
func (s *EditFlowService) refresh(ctx context.Context, sess *editSession) error {
	amounts, err := ComputeAmounts(sess.staged, sess.draft.Value)
	if err != nil {
		return err
	}
	sess.amounts = amounts

	verdict, err := s.safety.Evaluate(ctx, sess.requestID, sess.draft.Network, sess.staged)
	if err != nil {
		s.log.Warn("safety check skipped", zap.String("request_id", sess.requestID), zap.Error(err))
		sess.alert = nil
		return nil
	}
	sess.alert = verdict.Alert
	return nil
}

// close 结束会话并释放编辑锁，调用方持有 sess.mu
func (s *EditFlowService) close(ctx context.Context, sess *editSession, outcome EditState) {
	sess.state = StateClosed
	sess.closed = true

	s.mu.Lock()
	if s.sessions[sess.requestID] == sess {
		delete(s.sessions, sess.requestID)
	}
	s.mu.Unlock()

	if err := s.locker.Release(ctx, lockKey(sess.requestID)); err != nil {
		s.log.Warn("release edit lock failed", zap.String("request_id", sess.requestID), zap.Error(err))
	}
	monitor.Fee.EditSessionsTotal.WithLabelValues(outcome.String()).Inc()
}

// abandon 撤销 OpenEdit 的占位，调用方持有 sess.mu
func (s *EditFlowService) abandon(sess *editSession) {
	sess.closed = true
	s.mu.Lock()
	if s.sessions[sess.requestID] == sess {
		delete(s.sessions, sess.requestID)
	}
	s.mu.Unlock()
}

func cloneAmounts(a model.Amounts) model.Amounts {
	var out model.Amounts
	if a.EstimatedFee != nil {
		out.EstimatedFee = new(big.Int).Set(a.EstimatedFee)
	}
	if a.TotalCost != nil {
		out.TotalCost = new(big.Int).Set(a.TotalCost)
	}
	return out
}
