package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"wallet-gas/internal/model"
	"wallet-gas/internal/service"
	"wallet-gas/pkg/errno"
	"wallet-gas/pkg/units"
)

var amountsCmd = &cobra.Command{
	Use:   "amounts",
	Short: "计算预估手续费与总花费 (Offline)",
	Long:  `estimatedFee = maxFeePerGas * gasLimit, totalCost = value + estimatedFee，全部按 wei 整数计算。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		maxFee, _ := cmd.Flags().GetString("max-fee")
		priority, _ := cmd.Flags().GetString("priority-fee")
		gasLimit, _ := cmd.Flags().GetUint64("gas-limit")
		value, _ := cmd.Flags().GetString("value")
		balance, _ := cmd.Flags().GetString("balance")
		return printAmounts(cmd.OutOrStdout(), maxFee, priority, gasLimit, value, balance)
	},
}

func init() {
	rootCmd.AddCommand(amountsCmd)
	amountsCmd.Flags().String("max-fee", "", "maxFeePerGas (gwei)")
	amountsCmd.Flags().String("priority-fee", "", "maxPriorityFeePerGas (gwei)")
	amountsCmd.Flags().Uint64("gas-limit", 21000, "gas 上限")
	amountsCmd.Flags().String("value", "0", "转账金额 (ETH)")
	amountsCmd.Flags().String("balance", "", "账户余额 (ETH)，给出时检查余额是否足够")
	_ = amountsCmd.MarkFlagRequired("max-fee")
	_ = amountsCmd.MarkFlagRequired("priority-fee")
}

func printAmounts(w io.Writer, maxFee, priority string, gasLimit uint64, value, balance string) error {
	maxFeeWei, err := units.ParseGwei(maxFee)
	if err != nil {
		return err
	}
	priorityWei, err := units.ParseGwei(priority)
	if err != nil {
		return err
	}
	valueWei, err := units.ParseEther(value)
	if err != nil {
		return err
	}

	sel := model.GasFeeSelection{
		Tier:     model.TierCustom,
		Estimate: model.FeeEstimate{MaxFeePerGas: maxFeeWei, MaxPriorityFeePerGas: priorityWei},
		GasLimit: gasLimit,
	}
	if err := sel.Validate(); err != nil {
		return err
	}
	amounts, err := service.ComputeAmounts(sel, valueWei)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Estimated fee: %s ETH\n", units.FormatEther(amounts.EstimatedFee))
	fmt.Fprintf(w, "Total cost:    %s ETH\n", units.FormatEther(amounts.TotalCost))

	if balance == "" {
		return nil
	}
	balanceWei, err := units.ParseEther(balance)
	if err != nil {
		return err
	}
	if err := service.CheckFunds(amounts, balanceWei); err != nil {
		if errors.Is(err, errno.ErrUnderfunded) {
			fmt.Fprintln(w, "❌ Insufficient funds")
		}
		return err
	}
	fmt.Fprintln(w, "✅ Balance covers total cost")
	return nil
}
