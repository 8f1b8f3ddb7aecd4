package account

import (
	"context"
)

// Repository 账户仓储接口
// 余额相关方法必须是原子的条件更新，同一账户的并发调用由数据库串行化
type Repository interface {
	// Create 创建账户，用户已有账户时返回ErrAccountDuplicate
	Create(ctx context.Context, a *Account) error

	// FindByID 查询账户及其已执行的捐赠
	FindByID(ctx context.Context, id uint) (*Account, error)

	// FindByUserID 根据用户ID查询账户
	FindByUserID(ctx context.Context, userID uint) (*Account, error)

	// Spend 扣减余额，扣减后小于0时返回ErrInsufficientBalance且不修改
	Spend(ctx context.Context, id uint, amount int) error

	// Refill 增加余额
	Refill(ctx context.Context, id uint, amount int) error

	CreateDonation(ctx context.Context, d *Donation) error
	FindDonationByPaymentID(ctx context.Context, paymentID string) (*Donation, error)

	// MarkDonationExecuted 仅在未执行时生效，否则返回ErrDonationExecuted
	MarkDonationExecuted(ctx context.Context, id uint, payerReference string) error

	DeleteDonation(ctx context.Context, id uint) error

	ListLevels(ctx context.Context) ([]Level, error)
	SaveLevel(ctx context.Context, l *Level) error
}
