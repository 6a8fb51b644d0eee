package service

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-gas/internal/model"
	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/units"
)

func ether(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := units.ParseEther(s)
	require.NoError(t, err)
	return v
}

func TestComputeAmounts(t *testing.T) {
	tests := []struct {
		name      string
		maxFee    int64 // gwei
		priority  int64 // gwei
		gasLimit  uint64
		value     string // ETH
		wantFee   string
		wantTotal string
	}{
		{"21000 gas at 100 gwei", 100, 2, 21000, "0", "0.0021", "0.0021"},
		{"custom 8/8 gwei with 100000 gas", 8, 8, 100000, "2.2", "0.0008", "2.2008"},
		{"dapp suggested 20 gwei", 20, 2, 21000, "3", "0.00042", "3.00042"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := model.GasFeeSelection{
				Tier:     model.TierCustom,
				Estimate: model.FeeEstimate{MaxFeePerGas: units.GweiToWei(tt.maxFee), MaxPriorityFeePerGas: units.GweiToWei(tt.priority)},
				GasLimit: tt.gasLimit,
			}
			got, err := ComputeAmounts(sel, ether(t, tt.value))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, units.FormatEther(got.EstimatedFee))
			assert.Equal(t, tt.wantTotal, units.FormatEther(got.TotalCost))
		})
	}
}

func TestComputeAmountsIsExactOnRepeat(t *testing.T) {
	sel := model.GasFeeSelection{
		Estimate: model.FeeEstimate{MaxFeePerGas: big.NewInt(1_000_000_007), MaxPriorityFeePerGas: big.NewInt(1)},
		GasLimit: 21001,
	}
	value := ether(t, "0.1")
	first, err := ComputeAmounts(sel, value)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := ComputeAmounts(sel, value)
		require.NoError(t, err)
		assert.Equal(t, 0, first.TotalCost.Cmp(again.TotalCost))
	}
	assert.Equal(t, "0.1", units.FormatEther(value), "inputs are not mutated")
}

func TestComputeAmountsRejectsZeroGasLimit(t *testing.T) {
	sel := model.GasFeeSelection{Estimate: model.FeeEstimate{MaxFeePerGas: big.NewInt(1), MaxPriorityFeePerGas: big.NewInt(1)}}
	_, err := ComputeAmounts(sel, big.NewInt(0))
	assert.True(t, errors.Is(err, errno.ErrValidation))
}

func TestCheckFunds(t *testing.T) {
	amounts := model.Amounts{EstimatedFee: big.NewInt(10), TotalCost: big.NewInt(110)}
	assert.NoError(t, CheckFunds(amounts, big.NewInt(110)))
	assert.True(t, errors.Is(CheckFunds(amounts, big.NewInt(109)), errno.ErrUnderfunded))
}
