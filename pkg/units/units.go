// Package units converts between wei and human display units. Values produced
// here are for presentation only and must not be fed back into fee math.
package units

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
)

const (
	gweiExp  = 9
	etherExp = 18
)

// FormatEther renders a wei amount in ETH without trailing zeros, e.g. 2.2008.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -etherExp).String()
}

// FormatGwei renders a wei amount in gwei.
func FormatGwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -gweiExp).String()
}

// ParseGwei 解析用户输入的 gwei 数值 (可带小数)，返回 wei
func ParseGwei(s string) (*big.Int, error) {
	return parseUnit(s, gweiExp, "gwei")
}

// ParseEther 解析以 ETH 为单位的金额，返回 wei
func ParseEther(s string) (*big.Int, error) {
	return parseUnit(s, etherExp, "ether")
}

// GweiToWei is a shorthand for whole-gwei constants.
func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(params.GWei))
}

func parseUnit(s string, exp int32, unit string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("malformed %s amount %q: %w", unit, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative %s amount %q", unit, s)
	}
	shifted := d.Shift(exp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%s amount %q is more precise than 1 wei", unit, s)
	}
	return shifted.BigInt(), nil
}
