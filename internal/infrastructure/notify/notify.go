// Package notify 通知投递实现：RabbitMQ或日志
package notify

import (
	"context"
	"log/slog"

	"github.com/xiebiao/scholarium/internal/domain/notification"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/metrics"
)

// Publisher 消息发布接口，由mq.Publisher实现
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// MQNotifier 以通知类型为路由键发布到交换机
// 员工、运维和用户通知由各自的队列按路由键订阅
type MQNotifier struct {
	pub    Publisher
	logger *slog.Logger
}

func NewMQNotifier(pub Publisher, logger *slog.Logger) *MQNotifier {
	metrics.InitMetrics()
	return &MQNotifier{pub: pub, logger: logger.With("component", "notifier")}
}

func (n *MQNotifier) Notify(ctx context.Context, msg notification.Notification) error {
	if err := n.pub.Publish(ctx, string(msg.Kind), msg); err != nil {
		metrics.IncCounterVec(metrics.NotificationsTotal, map[string]string{"kind": string(msg.Kind), "result": "failure"})
		return apperrors.WrapCode(err, apperrors.ErrCodeNotifyError, "通知投递失败")
	}
	metrics.IncCounterVec(metrics.NotificationsTotal, map[string]string{"kind": string(msg.Kind), "result": "success"})
	n.logger.DebugContext(ctx, "通知已发布", "kind", msg.Kind, "subject", msg.Subject)
	return nil
}

// LogNotifier 未配置消息队列时只写日志
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	metrics.InitMetrics()
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, msg notification.Notification) error {
	metrics.IncCounterVec(metrics.NotificationsTotal, map[string]string{"kind": string(msg.Kind), "result": "logged"})
	n.logger.InfoContext(ctx, "通知",
		"kind", msg.Kind,
		"account_id", msg.AccountID,
		"item_id", msg.ItemID,
		"purchase_id", msg.PurchaseID,
		"subject", msg.Subject,
		"detail", msg.Detail)
	return nil
}
