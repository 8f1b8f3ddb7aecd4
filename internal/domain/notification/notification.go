package notification

import (
	"context"
	"time"
)

// Kind 通知类型，同时作为消息队列的路由键
type Kind string

const (
	KindProtectionViolation Kind = "sync.protection_violation"  // 同步删除被已完成购买阻止（运维）
	KindShippingRequired    Kind = "purchase.shipping_required" // 需要发货（员工）
	KindStaffPurchase       Kind = "purchase.staff"             // 购买通知（员工）
	KindItemRequested       Kind = "item.requested"             // 用户申请定价或补货（员工）
	KindItemAvailable       Kind = "item.available"             // 申请的商品已加入购物车（用户）
)

// Notification 副作用通知
// 说明：通知不属于核心状态，投递失败只记录日志
type Notification struct {
	Kind       Kind      `json:"kind"`
	AccountID  uint      `json:"account_id,omitempty"`
	ItemID     uint      `json:"item_id,omitempty"`
	PurchaseID uint      `json:"purchase_id,omitempty"`
	Subject    string    `json:"subject"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notifier 通知投递接口
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
