package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"wallet-gas/internal/model"
	"wallet-gas/internal/service/observer"
	"wallet-gas/pkg/units"
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "查看当前网络的三档费用 (Online)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rpcURL, _ := cmd.Flags().GetString("rpc")
		network, _ := cmd.Flags().GetString("network")

		fmt.Fprintf(cmd.OutOrStdout(), "正在连接 RPC: %s ...\n", rpcURL)
		obs, err := observer.Dial(rpcURL, network, time.Minute)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		est, err := obs.GetEstimates(ctx, network)
		if err != nil {
			return err
		}
		printTiers(cmd.OutOrStdout(), network, est)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tiersCmd)
	tiersCmd.Flags().String("rpc", "https://cloudflare-eth.com", "RPC 节点地址")
	tiersCmd.Flags().String("network", "mainnet", "网络名称")
}

func printTiers(w io.Writer, network string, est model.FeeEstimates) {
	fmt.Fprintf(w, "Network: %s (congestion %.0f%%)\n", network, est.Congestion*100)
	for _, tier := range model.BaselineTiers {
		e, _ := est.ForTier(tier)
		fmt.Fprintf(w, "%s %-10s max %s gwei, priority %s gwei, ~%ds\n",
			tier.Emoji(), tier.Label(),
			units.FormatGwei(e.MaxFeePerGas), units.FormatGwei(e.MaxPriorityFeePerGas),
			e.EstimatedConfirmSeconds)
	}
}
