package service

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/units"
)

// SelectionView selection 的对外 JSON 形式，wei 数量用 0x 十六进制
type SelectionView struct {
	Tier                 model.FeeTier  `json:"tier"`
	TierLabel            string         `json:"tierLabel"`
	TierEmoji            string         `json:"tierEmoji"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	GasLimit             hexutil.Uint64 `json:"gasLimit"`
	// 以下为展示字段
	MaxFeePerGasGwei string `json:"maxFeePerGasGwei"`
	EstimatedFee     string `json:"estimatedFee,omitempty"`
	TotalCost        string `json:"totalCost,omitempty"`
}

// DraftView 草稿的对外 JSON 形式，HTTP 响应与消息队列事件共用
type DraftView struct {
	RequestID  string        `json:"requestId"`
	Origin     model.Origin  `json:"origin"`
	DappOrigin string        `json:"dappOrigin,omitempty"`
	Account    string        `json:"account"`
	Network    string        `json:"network"`
	To         string        `json:"to"`
	Value      *hexutil.Big  `json:"value"`
	ValueEth   string        `json:"valueEth"`
	Selection  SelectionView `json:"selection"`
	Alert      *model.Alert  `json:"alert,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Discarded  bool          `json:"discarded,omitempty"`
}

// NewSelectionView 金额计算失败时只省略展示金额
func NewSelectionView(sel model.GasFeeSelection, amounts *model.Amounts) SelectionView {
	v := SelectionView{
		Tier:                 sel.Tier,
		TierLabel:            sel.Tier.Label(),
		TierEmoji:            sel.Tier.Emoji(),
		MaxFeePerGas:         (*hexutil.Big)(sel.Estimate.MaxFeePerGas),
		MaxPriorityFeePerGas: (*hexutil.Big)(sel.Estimate.MaxPriorityFeePerGas),
		GasLimit:             hexutil.Uint64(sel.GasLimit),
		MaxFeePerGasGwei:     units.FormatGwei(sel.Estimate.MaxFeePerGas),
	}
	if amounts != nil {
		v.EstimatedFee = units.FormatEther(amounts.EstimatedFee)
		v.TotalCost = units.FormatEther(amounts.TotalCost)
	}
	return v
}

func NewDraftView(d *model.TransactionDraft, alert *model.Alert) DraftView {
	var amounts *model.Amounts
	if a, err := ComputeAmounts(d.Selection, d.Value); err == nil {
		amounts = &a
	}
	return DraftView{
		RequestID:  d.RequestID,
		Origin:     d.Origin,
		DappOrigin: d.DappOrigin,
		Account:    d.Account.Hex(),
		Network:    d.Network,
		To:         d.To.Hex(),
		Value:      (*hexutil.Big)(d.Value),
		ValueEth:   units.FormatEther(d.Value),
		Selection:  NewSelectionView(d.Selection, amounts),
		Alert:      alert,
		UpdatedAt:  d.UpdatedAt,
		Discarded:  d.Discarded,
	}
}
