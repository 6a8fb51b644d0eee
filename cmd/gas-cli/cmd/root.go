package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "gas-cli",
	Short: "EIP-1559 费用估算命令行工具",
	Long: `查看节点给出的 low/medium/high 三档费用，离线计算手续费与总花费，
以及订阅 gas-server 发布的草稿提交事件。`,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
