package lending

import (
	"context"
	"time"
)

// Repository 出借仓储接口
type Repository interface {
	// Open 在商品行锁内确认仍有空闲副本后登记出借
	// 没有空闲副本时返回inventory.ErrInsufficientStock，不限库存总是成功
	Open(ctx context.Context, l *Lending) error
	// DeleteByPurchase 删除购买对应的出借，不存在时不报错
	DeleteByPurchase(ctx context.Context, purchaseID uint) error

	FindByID(ctx context.Context, id uint) (*Lending, error)
	FindByPurchase(ctx context.Context, purchaseID uint) (*Lending, error)
	// ListByAccount 按创建时间倒序；activeOnly时只返回未归还的
	ListByAccount(ctx context.Context, accountID uint, activeOnly bool) ([]*Lending, error)
	CountActive(ctx context.Context, itemID uint) (int, error)

	MarkShipped(ctx context.Context, id uint, at time.Time) error
	// MarkReturned 已归还时返回ErrAlreadyReturned
	MarkReturned(ctx context.Context, id uint, at time.Time) error
	MarkCharged(ctx context.Context, id uint, at time.Time) error
}
