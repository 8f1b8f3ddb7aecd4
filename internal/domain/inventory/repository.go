package inventory

import (
	"context"
)

// Repository 库存仓储接口
// Sell/Restock/ReconcileStock必须是原子操作，同一商品的并发调用由数据库串行化
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uint) error

	FindTypeBySlug(ctx context.Context, slug string) (*ItemType, error)
	// EnsureType 按Slug查找，不存在时用t创建
	EnsureType(ctx context.Context, t *ItemType) (*ItemType, error)

	// FindItem 查询商品，同时加载类型、产品和折扣
	FindItem(ctx context.Context, id uint) (*Item, error)
	FindItemByProductAndType(ctx context.Context, productID, typeID uint) (*Item, error)
	FindItemByAttachment(ctx context.Context, attachmentID uint) (*Item, error)
	ListItemsByProduct(ctx context.Context, productID uint) ([]*Item, error)
	CreateItem(ctx context.Context, item *Item) error
	UpdateItemPrice(ctx context.Context, id uint, price *int) error
	SetDiscounts(ctx context.Context, id uint, discounts []Discount) error
	DeleteItem(ctx context.Context, id uint) error

	// Sell 扣减库存，扣减后小于0时返回ErrInsufficientStock；不限库存总是成功
	Sell(ctx context.Context, id uint, quantity int) error
	// Restock 增加库存；不限库存保持不变
	Restock(ctx context.Context, id uint, quantity int) error
	// ReconcileStock 按增量规则应用远程库存并更新同步基线，返回调整前后的库存
	ReconcileStock(ctx context.Context, id uint, remote *int) (prev, next *int, err error)

	// 到货/定价申请
	AddRequest(ctx context.Context, itemID, accountID uint) error
	RemoveRequest(ctx context.Context, itemID, accountID uint) error
	ListRequests(ctx context.Context, itemID uint) ([]uint, error)
}
