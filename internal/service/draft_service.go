package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/logger"
	"wallet-gas/pkg/monitor"
)

// DraftRequest 一次交易请求 (钱包内部发起或 dapp 发起)
type DraftRequest struct {
	// RequestID 为空时自动生成
	RequestID  string
	Origin     model.Origin
	DappOrigin string
	Account    common.Address
	Network    string
	To         common.Address
	Value      *big.Int
	// GasLimit 为 0 时使用默认值
	GasLimit uint64
	// SuggestedFee dapp 在请求里带的费用建议
	SuggestedFee *model.FeeEstimate
}

// Mutation 修改草稿副本，返回错误则放弃本次修改
type Mutation func(draft *model.TransactionDraft) error

type draftEntry struct {
	mu        sync.RWMutex
	draft     *model.TransactionDraft
	discarded bool

	// lastSeen 最近一次读写或订阅 (UnixNano)，读锁下也会更新
	lastSeen atomic.Int64

	// notifyMu 保证同一草稿的通知按提交顺序送达
	notifyMu  sync.Mutex
	listeners map[int]Listener
	nextID    int
}

func (e *draftEntry) touch(t time.Time) {
	e.lastSeen.Store(t.UnixNano())
}

// idle 调用方持有 e.mu
func (e *draftEntry) idle(cutoff time.Time) bool {
	return !e.discarded && len(e.listeners) == 0 && e.lastSeen.Load() < cutoff.UnixNano()
}

// DraftService 维护每个 requestID 唯一的权威草稿
// 页面与确认弹窗都通过它读写，各自不保留副本
type DraftService struct {
	tiers           *TierService
	defaultGasLimit uint64
	now             func() time.Time
	log             *zap.Logger

	mu       sync.RWMutex
	drafts   map[string]*draftEntry
	watchers []Listener
}

func NewDraftService(tiers *TierService, defaultGasLimit uint64) *DraftService {
	if defaultGasLimit == 0 {
		defaultGasLimit = 21000
	}
	return &DraftService{
		tiers:           tiers,
		defaultGasLimit: defaultGasLimit,
		now:             time.Now,
		log:             logger.Named("draft"),
		drafts:          make(map[string]*draftEntry),
	}
}

// Create 为新请求建立草稿
// dapp 请求带建议费用时初始档位为 DappSuggested，否则为 Medium
func (s *DraftService) Create(ctx context.Context, req DraftRequest) (*model.TransactionDraft, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Origin != model.OriginWallet && req.Origin != model.OriginDapp {
		return nil, errno.ErrValidation.WithMessage(fmt.Sprintf("unknown request origin %q", req.Origin))
	}
	if req.Value == nil {
		req.Value = new(big.Int)
	}
	if req.Value.Sign() < 0 {
		return nil, errno.ErrValidation.WithMessage("transaction value must not be negative")
	}
	if req.GasLimit == 0 {
		req.GasLimit = s.defaultGasLimit
	}
	if req.GasLimit < params.TxGas {
		return nil, errno.ErrValidation.WithMessage(fmt.Sprintf("gas limit must be at least %d", params.TxGas))
	}

	now := s.now()
	draft := &model.TransactionDraft{
		RequestID:  req.RequestID,
		Origin:     req.Origin,
		DappOrigin: req.DappOrigin,
		Account:    req.Account,
		Network:    req.Network,
		To:         req.To,
		Value:      new(big.Int).Set(req.Value),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if req.SuggestedFee != nil {
		if req.Origin != model.OriginDapp {
			return nil, errno.ErrValidation.WithMessage("only dapp requests may carry a suggested fee")
		}
		if err := req.SuggestedFee.Validate(); err != nil {
			return nil, err
		}
		suggestion := req.SuggestedFee.Clone()
		draft.DappSuggestion = &suggestion
	}

	initial := model.TierMedium
	if draft.DappSuggestion != nil {
		initial = model.TierDappSuggested
	}
	est, err := s.tiers.Resolve(ctx, initial, TierContext{Draft: draft})
	if err != nil {
		return nil, err
	}
	draft.Selection = model.GasFeeSelection{Tier: initial, Estimate: est, GasLimit: req.GasLimit}

	s.mu.Lock()
	if _, exists := s.drafts[draft.RequestID]; exists {
		s.mu.Unlock()
		return nil, errno.ErrDraftExists.WithMessage(draft.RequestID)
	}
	entry := &draftEntry{draft: draft, listeners: make(map[int]Listener)}
	entry.touch(now)
	s.drafts[draft.RequestID] = entry
	s.mu.Unlock()

	monitor.Fee.DraftsActive.Inc()
	s.log.Info("draft created",
		zap.String("request_id", draft.RequestID),
		zap.String("origin", string(draft.Origin)),
		zap.Stringer("tier", initial))
	return draft.Clone(), nil
}

// Get 返回草稿副本
func (s *DraftService) Get(requestID string) (*model.TransactionDraft, error) {
	entry, err := s.entry(requestID)
	if err != nil {
		return nil, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	if entry.discarded {
		return nil, errno.ErrDraftNotFound.WithMessage(requestID)
	}
	entry.touch(s.now())
	return entry.draft.Clone(), nil
}

// Update 以 mutation 修改草稿并整体替换，返回前同步通知所有订阅者
// 返回后任意上下文的 Get 都能读到本次写入
// 订阅者不能在回调里对同一 requestID 调用 Update
func (s *DraftService) Update(requestID string, mutation Mutation) (*model.TransactionDraft, error) {
	entry, err := s.entry(requestID)
	if err != nil {
		return nil, err
	}

	entry.notifyMu.Lock()
	defer entry.notifyMu.Unlock()

	entry.mu.Lock()
	if entry.discarded {
		entry.mu.Unlock()
		return nil, errno.ErrDraftNotFound.WithMessage(requestID)
	}
	current := entry.draft
	next := current.Clone()
	if err := mutation(next); err != nil {
		entry.mu.Unlock()
		return nil, err
	}

	// 身份字段与 dapp 建议值不可变
	next.RequestID = current.RequestID
	next.Origin = current.Origin
	next.DappOrigin = current.DappOrigin
	next.CreatedAt = current.CreatedAt
	next.DappSuggestion = nil
	if current.DappSuggestion != nil {
		suggestion := current.DappSuggestion.Clone()
		next.DappSuggestion = &suggestion
	}

	if err := s.validate(next); err != nil {
		entry.mu.Unlock()
		return nil, err
	}
	next.UpdatedAt = s.now()
	next.Discarded = false
	entry.draft = next
	entry.touch(next.UpdatedAt)

	listeners := make([]Listener, 0, len(entry.listeners))
	for _, l := range entry.listeners {
		listeners = append(listeners, l)
	}
	entry.mu.Unlock()

	s.mu.RLock()
	watchers := append([]Listener(nil), s.watchers...)
	s.mu.RUnlock()

	for _, l := range append(listeners, watchers...) {
		l(next.Clone())
	}

	s.log.Debug("draft updated",
		zap.String("request_id", requestID),
		zap.Stringer("tier", next.Selection.Tier),
		zap.Stringer("max_fee_per_gas", next.Selection.Estimate.MaxFeePerGas),
		zap.Uint64("gas_limit", next.Selection.GasLimit))
	return next.Clone(), nil
}

// Subscribe 订阅某个草稿的提交，返回取消订阅函数
func (s *DraftService) Subscribe(requestID string, listener Listener) (func(), error) {
	entry, err := s.entry(requestID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	if entry.discarded {
		entry.mu.Unlock()
		return nil, errno.ErrDraftNotFound.WithMessage(requestID)
	}
	id := entry.nextID
	entry.nextID++
	entry.listeners[id] = listener
	entry.touch(s.now())
	entry.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Lock()
			delete(entry.listeners, id)
			entry.mu.Unlock()
		})
	}, nil
}

// Watch 订阅所有草稿的提交 (例如转发到消息队列)
func (s *DraftService) Watch(listener Listener) {
	s.mu.Lock()
	s.watchers = append(s.watchers, listener)
	s.mu.Unlock()
}

// Discard 请求确认、拒绝或窗口关闭后删除草稿
// 订阅者会收到一份 Discarded=true 的最后通知
func (s *DraftService) Discard(requestID string) error {
	entry, err := s.detach(requestID, time.Time{})
	if err != nil {
		return err
	}
	s.notifyDiscarded(entry)
	return nil
}

// IdleSince 返回 cutoff 之后无人读写、也没有订阅者的草稿 ID
func (s *DraftService) IdleSince(cutoff time.Time) []string {
	s.mu.RLock()
	entries := make(map[string]*draftEntry, len(s.drafts))
	for id, e := range s.drafts {
		entries[id] = e
	}
	s.mu.RUnlock()

	var ids []string
	for id, e := range entries {
		e.mu.RLock()
		idle := e.idle(cutoff)
		e.mu.RUnlock()
		if idle {
			ids = append(ids, id)
		}
	}
	return ids
}

// detach 从表中移除草稿，之后该草稿的读写与订阅都返回 ErrDraftNotFound
// cutoff 非零时只移除空闲草稿，不空闲返回 (nil, nil)
func (s *DraftService) detach(requestID string, cutoff time.Time) (*draftEntry, error) {
	s.mu.Lock()
	entry, ok := s.drafts[requestID]
	if !ok {
		s.mu.Unlock()
		return nil, errno.ErrDraftNotFound.WithMessage(requestID)
	}
	entry.mu.Lock()
	if !cutoff.IsZero() && !entry.idle(cutoff) {
		entry.mu.Unlock()
		s.mu.Unlock()
		return nil, nil
	}
	entry.discarded = true
	entry.mu.Unlock()
	delete(s.drafts, requestID)
	s.mu.Unlock()

	monitor.Fee.DraftsActive.Dec()
	s.log.Info("draft discarded", zap.String("request_id", requestID))
	return entry, nil
}

// notifyDiscarded 排在该草稿所有已提交通知之后
func (s *DraftService) notifyDiscarded(entry *draftEntry) {
	entry.notifyMu.Lock()
	defer entry.notifyMu.Unlock()

	entry.mu.Lock()
	tombstone := entry.draft.Clone()
	tombstone.Discarded = true
	tombstone.UpdatedAt = s.now()
	listeners := make([]Listener, 0, len(entry.listeners))
	for _, l := range entry.listeners {
		listeners = append(listeners, l)
	}
	entry.listeners = make(map[int]Listener)
	entry.mu.Unlock()

	s.mu.RLock()
	watchers := append([]Listener(nil), s.watchers...)
	s.mu.RUnlock()

	for _, l := range append(listeners, watchers...) {
		l(tombstone.Clone())
	}
}

func (s *DraftService) entry(requestID string) (*draftEntry, error) {
	s.mu.RLock()
	entry, ok := s.drafts[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, errno.ErrDraftNotFound.WithMessage(requestID)
	}
	return entry, nil
}

func (s *DraftService) validate(d *model.TransactionDraft) error {
	if d.Value == nil || d.Value.Sign() < 0 {
		return errno.ErrValidation.WithMessage("transaction value must not be negative")
	}
	if err := d.Selection.Validate(); err != nil {
		return err
	}
	if d.Selection.Tier == model.TierDappSuggested && d.Origin != model.OriginDapp {
		return errno.ErrTierUnavailable.WithMessage("site suggested fee is only available for dapp requests")
	}
	return nil
}
