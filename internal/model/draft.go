package model

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Origin 交易请求来源
type Origin string

const (
	OriginWallet Origin = "wallet"
	OriginDapp   Origin = "dapp"
)

// TransactionDraft 每个请求唯一的交易草稿，页面与确认弹窗共同读取
type TransactionDraft struct {
	RequestID string
	Origin    Origin
	// DappOrigin 发起请求的站点，例如 https://app.example.org
	DappOrigin string
	Account    common.Address
	Network    string
	To         common.Address
	Value      *big.Int
	Selection  GasFeeSelection
	// DappSuggestion 请求携带的建议费用，草稿生命周期内不可变
	DappSuggestion *FeeEstimate
	CreatedAt      time.Time
	UpdatedAt      time.Time
	// Discarded 草稿被删除时发给订阅者的最后一次通知
	Discarded bool
}

// Clone 深拷贝草稿，存储之外的读者永远拿到副本
func (d *TransactionDraft) Clone() *TransactionDraft {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Value = cloneBig(d.Value)
	cp.Selection = d.Selection.Clone()
	if d.DappSuggestion != nil {
		s := d.DappSuggestion.Clone()
		cp.DappSuggestion = &s
	}
	return &cp
}

// CustomFeeDefault 用户显式保存的自定义费用
type CustomFeeDefault struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	SavedAt              time.Time
}

// Estimate 转换为 FeeEstimate
func (d CustomFeeDefault) Estimate() FeeEstimate {
	return FeeEstimate{
		MaxFeePerGas:         cloneBig(d.MaxFeePerGas),
		MaxPriorityFeePerGas: cloneBig(d.MaxPriorityFeePerGas),
	}
}

type customFeeDefaultJSON struct {
	MaxFeePerGas         *hexutil.Big `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas"`
	SavedAt              time.Time    `json:"savedAt"`
}

// MarshalJSON 以 0x 十六进制编码 wei 数量，与钱包存储格式一致
func (d CustomFeeDefault) MarshalJSON() ([]byte, error) {
	return json.Marshal(customFeeDefaultJSON{
		MaxFeePerGas:         (*hexutil.Big)(d.MaxFeePerGas),
		MaxPriorityFeePerGas: (*hexutil.Big)(d.MaxPriorityFeePerGas),
		SavedAt:              d.SavedAt,
	})
}

func (d *CustomFeeDefault) UnmarshalJSON(data []byte) error {
	var raw customFeeDefaultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.MaxFeePerGas = raw.MaxFeePerGas.ToInt()
	d.MaxPriorityFeePerGas = raw.MaxPriorityFeePerGas.ToInt()
	d.SavedAt = raw.SavedAt
	return nil
}
