package service

import (
	"math/big"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/errno"
)

// ComputeAmounts 计算预估手续费与总花费 (wei)
// estimatedFee = maxFeePerGas * gasLimit
// totalCost    = value + estimatedFee
// 全程整数运算，任何一个输入变化都应重新调用
func ComputeAmounts(selection model.GasFeeSelection, value *big.Int) (model.Amounts, error) {
	if selection.GasLimit == 0 {
		return model.Amounts{}, errno.ErrValidation.WithMessage("gas limit must be greater than zero")
	}
	if selection.Estimate.MaxFeePerGas == nil || selection.Estimate.MaxFeePerGas.Sign() < 0 {
		return model.Amounts{}, errno.ErrValidation.WithMessage("max fee per gas is required")
	}
	if value == nil || value.Sign() < 0 {
		return model.Amounts{}, errno.ErrValidation.WithMessage("transaction value must not be negative")
	}

	fee := new(big.Int).Mul(selection.Estimate.MaxFeePerGas, new(big.Int).SetUint64(selection.GasLimit))
	total := new(big.Int).Add(value, fee)
	return model.Amounts{EstimatedFee: fee, TotalCost: total}, nil
}

// CheckFunds 供确认流程判断余额是否足够支付 totalCost
func CheckFunds(amounts model.Amounts, balance *big.Int) error {
	if balance == nil || amounts.TotalCost == nil {
		return errno.ErrValidation.WithMessage("balance and total cost are required")
	}
	if balance.Cmp(amounts.TotalCost) < 0 {
		return errno.ErrUnderfunded.WithMessage("have " + balance.String() + " want " + amounts.TotalCost.String())
	}
	return nil
}
