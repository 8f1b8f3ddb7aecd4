package purchase

import (
	"context"
	"time"
)

// Repository 购买记录仓储接口
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	FindByID(ctx context.Context, id uint) (*Purchase, error)

	// FindCartLine 查询账户对某商品的购物车行（未执行、非赠予），不存在返回ErrPurchaseNotFound
	FindCartLine(ctx context.Context, accountID, itemID uint) (*Purchase, error)
	IncrementQuantity(ctx context.Context, id uint, delta int) error
	ListCart(ctx context.Context, accountID uint) ([]*Purchase, error)

	// ListExecuted 分页查询已执行的购买，按执行时间倒序
	ListExecuted(ctx context.Context, accountID uint, page, pageSize int) ([]*Purchase, int64, error)
	HasExecuted(ctx context.Context, accountID, itemID uint) (bool, error)
	// CountExecutedByItems 统计一组商品的已执行购买数，用于同步删除保护
	CountExecutedByItems(ctx context.Context, itemIDs []uint) (int64, error)

	// MarkExecuted 仅在未执行时生效，否则返回ErrAlreadyExecuted
	MarkExecuted(ctx context.Context, id uint, date time.Time, total int) error

	Delete(ctx context.Context, id uint) error
	// DeleteUnexecutedByItems 删除一组商品的未执行购买（商品删除前清理购物车）
	DeleteUnexecutedByItems(ctx context.Context, itemIDs []uint) (int64, error)
}

// Transactor 事务执行器，fn内通过ctx使用同一事务
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
