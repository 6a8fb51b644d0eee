package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"wallet-gas/internal/service/mq"
	"wallet-gas/pkg/database"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "订阅草稿提交事件 (Redis Streams)",
	Long:  `gas-server 配置了 fee.draft_topic 且 redis.mq_type=redis 时，每次保存草稿都会发布一条事件。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("redis")
		topic, _ := cmd.Flags().GetString("topic")
		group, _ := cmd.Flags().GetString("group")

		rdb, err := database.ConnectRedis(addr, "", 0)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Close 同时关闭 Redis 连接
		consumer := mq.NewRedisConsumer(rdb, group, "gas-cli-"+uuid.NewString()[:8])
		defer consumer.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "正在订阅 %s ...\n", topic)
		err = consumer.Subscribe(ctx, topic, func(msg *mq.Message) error {
			fmt.Fprintf(out, "[%s] %s %s\n", msg.ID, msg.Key, msg.Payload)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "订阅失败: %v\n", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("redis", "localhost:6379", "Redis 地址")
	watchCmd.Flags().String("topic", "wallet:events:draft", "草稿事件主题")
	watchCmd.Flags().String("group", "gas-cli", "消费组")
}
