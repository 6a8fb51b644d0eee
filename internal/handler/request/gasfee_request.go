package request

import "github.com/ethereum/go-ethereum/common/hexutil"

// CreateDraftRequest 钱包或 dapp 发起的交易请求，数量字段与 eth_sendTransaction 一致使用 0x 十六进制 wei
type CreateDraftRequest struct {
	RequestID    string          `json:"requestId"`
	Origin       string          `json:"origin" binding:"required,oneof=wallet dapp"`
	DappOrigin   string          `json:"dappOrigin"`
	From         string          `json:"from" binding:"required,eth_addr"`
	To           string          `json:"to" binding:"omitempty,eth_addr"`
	Network      string          `json:"network"`
	Value        *hexutil.Big    `json:"value"`
	Gas          *hexutil.Uint64 `json:"gas"`
	SuggestedFee *SuggestedFee   `json:"suggestedFee"`
}

// SuggestedFee dapp 在请求中携带的费用
type SuggestedFee struct {
	MaxFeePerGas         *hexutil.Big `json:"maxFeePerGas" binding:"required"`
	MaxPriorityFeePerGas *hexutil.Big `json:"maxPriorityFeePerGas" binding:"required"`
}

type SelectTierRequest struct {
	Tier string `json:"tier" binding:"required,fee_tier"`
}

// CustomFeeRequest 用户在高级设置里输入的 gwei 十进制字符串
type CustomFeeRequest struct {
	MaxFeePerGas         string `json:"maxFeePerGas" binding:"required"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas" binding:"required"`
}

type GasLimitRequest struct {
	GasLimit uint64 `json:"gasLimit" binding:"required,min=21000"`
}

type SaveAsDefaultRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
