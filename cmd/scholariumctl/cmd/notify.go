package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xiebiao/scholarium/internal/app"
	"github.com/xiebiao/scholarium/internal/domain/notification"
	"github.com/xiebiao/scholarium/pkg/mq"
)

var (
	notifyQueue string
	notifyKeys  []string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "通知队列",
}

var notifyListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "消费并打印通知",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, l, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.MQ.Enabled {
			return fmt.Errorf("未启用消息队列（mq.enabled=false）")
		}

		consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, app.NotificationExchangeType, notifyQueue, notifyKeys)
		if err != nil {
			return err
		}
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return consumer.Consume(ctx, func(routingKey string, body []byte) error {
			var n notification.Notification
			if err := json.Unmarshal(body, &n); err != nil {
				// 格式错误的消息重新入队只会反复失败
				l.Warn("丢弃无法解析的通知", "routing_key", routingKey, "error", err)
				return nil
			}
			fmt.Fprintf(out, "%s %-28s account=%d item=%d purchase=%d %s\n",
				n.CreatedAt.Format("2006-01-02 15:04:05"), n.Kind, n.AccountID, n.ItemID, n.PurchaseID, n.Subject)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyListenCmd)

	notifyListenCmd.Flags().StringVar(&notifyQueue, "queue", "scholarium.notifications", "队列名")
	notifyListenCmd.Flags().StringSliceVar(&notifyKeys, "key", []string{"#"}, "绑定的路由键，可重复")
}
