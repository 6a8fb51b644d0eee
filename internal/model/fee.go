package model

import (
	"fmt"
	"math/big"
	"strings"

	"wallet-gas/pkg/errno"
)

// FeeTier 费用档位，每个草稿同一时间只有一个生效档位
type FeeTier int

const (
	TierLow FeeTier = iota + 1
	TierMedium
	TierHigh
	TierCustom
	TierDappSuggested
)

// BaselineTiers 是网络估算提供的三个基础档位
var BaselineTiers = []FeeTier{TierLow, TierMedium, TierHigh}

// AllTiers 按编辑器中的展示顺序排列
var AllTiers = []FeeTier{TierLow, TierMedium, TierHigh, TierDappSuggested, TierCustom}

func (t FeeTier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierCustom:
		return "custom"
	case TierDappSuggested:
		return "dappSuggested"
	default:
		return fmt.Sprintf("FeeTier(%d)", int(t))
	}
}

// Emoji 编辑器中的档位图标
func (t FeeTier) Emoji() string {
	switch t {
	case TierLow:
		return "🐢"
	case TierMedium:
		return "🦊"
	case TierHigh:
		return "🦍"
	case TierCustom:
		return "⚙️"
	case TierDappSuggested:
		return "🌐"
	default:
		return ""
	}
}

// Label 编辑器中的档位名称
func (t FeeTier) Label() string {
	switch t {
	case TierLow:
		return "Low"
	case TierMedium:
		return "Market"
	case TierHigh:
		return "Aggressive"
	case TierCustom:
		return "Advanced"
	case TierDappSuggested:
		return "Site suggested"
	default:
		return ""
	}
}

// IsBaseline reports whether the tier is sourced from network estimates.
func (t FeeTier) IsBaseline() bool {
	return t == TierLow || t == TierMedium || t == TierHigh
}

func (t FeeTier) MarshalText() ([]byte, error) {
	if _, err := ParseFeeTier(t.String()); err != nil {
		return nil, err
	}
	return []byte(t.String()), nil
}

func (t *FeeTier) UnmarshalText(text []byte) error {
	parsed, err := ParseFeeTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseFeeTier 解析档位标识，大小写不敏感
func ParseFeeTier(s string) (FeeTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	case "custom":
		return TierCustom, nil
	case "dappsuggested":
		return TierDappSuggested, nil
	}
	return 0, errno.ErrValidation.WithMessage(fmt.Sprintf("unknown fee tier %q", s))
}

// FeeEstimate 一组 EIP-1559 费用参数，金额单位均为 wei
type FeeEstimate struct {
	MaxFeePerGas            *big.Int
	MaxPriorityFeePerGas    *big.Int
	EstimatedConfirmSeconds int64
}

// Validate 检查 maxFeePerGas >= maxPriorityFeePerGas
func (e FeeEstimate) Validate() error {
	if e.MaxFeePerGas == nil || e.MaxPriorityFeePerGas == nil {
		return errno.ErrValidation.WithMessage("fee values are required")
	}
	if e.MaxFeePerGas.Sign() < 0 || e.MaxPriorityFeePerGas.Sign() < 0 {
		return errno.ErrValidation.WithMessage("fee values must not be negative")
	}
	if e.MaxFeePerGas.Cmp(e.MaxPriorityFeePerGas) < 0 {
		return errno.ErrValidation.WithMessage("max fee per gas is lower than max priority fee per gas")
	}
	return nil
}

// Clone returns a deep copy so callers never share big.Int storage.
func (e FeeEstimate) Clone() FeeEstimate {
	return FeeEstimate{
		MaxFeePerGas:            cloneBig(e.MaxFeePerGas),
		MaxPriorityFeePerGas:    cloneBig(e.MaxPriorityFeePerGas),
		EstimatedConfirmSeconds: e.EstimatedConfirmSeconds,
	}
}

func (e FeeEstimate) Equal(o FeeEstimate) bool {
	return bigEqual(e.MaxFeePerGas, o.MaxFeePerGas) &&
		bigEqual(e.MaxPriorityFeePerGas, o.MaxPriorityFeePerGas) &&
		e.EstimatedConfirmSeconds == o.EstimatedConfirmSeconds
}

// FeeEstimates 网络估算快照
type FeeEstimates struct {
	Low    FeeEstimate
	Medium FeeEstimate
	High   FeeEstimate
	// Congestion 网络拥堵程度 0..1，仅用于展示
	Congestion float64
}

// ForTier 返回基础档位的估算值
func (e FeeEstimates) ForTier(t FeeTier) (FeeEstimate, bool) {
	switch t {
	case TierLow:
		return e.Low.Clone(), true
	case TierMedium:
		return e.Medium.Clone(), true
	case TierHigh:
		return e.High.Clone(), true
	}
	return FeeEstimate{}, false
}

// GasFeeSelection 当前选中的档位、费用与 gas 上限
type GasFeeSelection struct {
	Tier     FeeTier
	Estimate FeeEstimate
	GasLimit uint64
}

func (s GasFeeSelection) Validate() error {
	if s.GasLimit == 0 {
		return errno.ErrValidation.WithMessage("gas limit must be greater than zero")
	}
	return s.Estimate.Validate()
}

func (s GasFeeSelection) Clone() GasFeeSelection {
	return GasFeeSelection{Tier: s.Tier, Estimate: s.Estimate.Clone(), GasLimit: s.GasLimit}
}

func (s GasFeeSelection) Equal(o GasFeeSelection) bool {
	return s.Tier == o.Tier && s.GasLimit == o.GasLimit && s.Estimate.Equal(o.Estimate)
}

// Amounts 由 selection 推导出的展示金额 (wei)
type Amounts struct {
	EstimatedFee *big.Int
	TotalCost    *big.Int
}

// AlertKind 提示类型
type AlertKind string

const AlertLowFee AlertKind = "low_fee_warning"

// Alert 附着在 selection 上的临时提示，不持久化
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}
