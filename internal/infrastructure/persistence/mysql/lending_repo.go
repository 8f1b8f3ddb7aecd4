package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/lending"
)

// lendingRepository 出借仓储实现
// 可借数量不落库，由 stock - 未归还出借数 得出；
// Open在商品行锁内计数，同一商品的并发出借被串行化
type lendingRepository struct {
	db *gorm.DB
}

// NewLendingRepository 创建出借仓储
func NewLendingRepository(db *gorm.DB) lending.Repository {
	return &lendingRepository{db: db}
}

func (r *lendingRepository) getDB(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db)
}

func (r *lendingRepository) Open(ctx context.Context, l *lending.Lending) error {
	return r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		var item ItemModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stock").
			First(&item, l.ItemID).Error
		if err != nil {
			if isNotFound(err) {
				return inventory.ErrItemNotFound
			}
			return dbError(err, "锁定商品失败")
		}

		if item.Stock != nil {
			active, err := countActiveLendings(tx, l.ItemID)
			if err != nil {
				return err
			}
			if active >= *item.Stock {
				return inventory.ErrInsufficientStock
			}
		}

		model := toLendingModel(l)
		if err := tx.Create(model).Error; err != nil {
			if isDuplicateError(err) {
				return lending.ErrDuplicateLending
			}
			return dbError(err, "登记出借失败")
		}
		l.ID = model.ID
		l.CreatedAt = model.CreatedAt
		return nil
	})
}

func (r *lendingRepository) DeleteByPurchase(ctx context.Context, purchaseID uint) error {
	if err := r.getDB(ctx).Where("purchase_id = ?", purchaseID).Delete(&LendingModel{}).Error; err != nil {
		return dbError(err, "删除出借失败")
	}
	return nil
}

func (r *lendingRepository) FindByID(ctx context.Context, id uint) (*lending.Lending, error) {
	var model LendingModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, lending.ErrLendingNotFound
		}
		return nil, dbError(err, "查询出借失败")
	}
	return toLendingEntity(&model), nil
}

func (r *lendingRepository) FindByPurchase(ctx context.Context, purchaseID uint) (*lending.Lending, error) {
	var model LendingModel
	if err := r.getDB(ctx).Where("purchase_id = ?", purchaseID).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, lending.ErrLendingNotFound
		}
		return nil, dbError(err, "查询出借失败")
	}
	return toLendingEntity(&model), nil
}

func (r *lendingRepository) ListByAccount(ctx context.Context, accountID uint, activeOnly bool) ([]*lending.Lending, error) {
	query := r.getDB(ctx).Where("account_id = ?", accountID)
	if activeOnly {
		query = query.Where("returned_at IS NULL")
	}
	var models []LendingModel
	if err := query.Order("created_at DESC, id DESC").Find(&models).Error; err != nil {
		return nil, dbError(err, "查询出借失败")
	}
	out := make([]*lending.Lending, len(models))
	for i := range models {
		out[i] = toLendingEntity(&models[i])
	}
	return out, nil
}

func (r *lendingRepository) CountActive(ctx context.Context, itemID uint) (int, error) {
	return countActiveLendings(r.getDB(ctx), itemID)
}

func (r *lendingRepository) MarkShipped(ctx context.Context, id uint, at time.Time) error {
	return r.mark(ctx, id, "shipped_at", at)
}

func (r *lendingRepository) MarkCharged(ctx context.Context, id uint, at time.Time) error {
	return r.mark(ctx, id, "charged_at", at)
}

// MarkReturned 只修改未归还的记录
func (r *lendingRepository) MarkReturned(ctx context.Context, id uint, at time.Time) error {
	db := r.getDB(ctx)
	result := db.Model(&LendingModel{}).
		Where("id = ? AND returned_at IS NULL", id).
		Update("returned_at", at)
	if result.Error != nil {
		return dbError(result.Error, "登记归还失败")
	}
	if result.RowsAffected == 0 {
		ok, err := rowExists(db, &LendingModel{}, id)
		if err != nil {
			return err
		}
		if !ok {
			return lending.ErrLendingNotFound
		}
		return lending.ErrAlreadyReturned
	}
	return nil
}

func (r *lendingRepository) mark(ctx context.Context, id uint, column string, at time.Time) error {
	db := r.getDB(ctx)
	result := db.Model(&LendingModel{}).Where("id = ?", id).Update(column, at)
	if result.Error != nil {
		return dbError(result.Error, "更新出借失败")
	}
	if result.RowsAffected == 0 {
		ok, err := rowExists(db, &LendingModel{}, id)
		if err != nil {
			return err
		}
		if !ok {
			return lending.ErrLendingNotFound
		}
	}
	return nil
}

func countActiveLendings(db *gorm.DB, itemID uint) (int, error) {
	var n int64
	err := db.Model(&LendingModel{}).
		Where("item_id = ? AND returned_at IS NULL", itemID).
		Count(&n).Error
	if err != nil {
		return 0, dbError(err, "统计出借失败")
	}
	return int(n), nil
}

func toLendingModel(l *lending.Lending) *LendingModel {
	return &LendingModel{
		ID:         l.ID,
		PurchaseID: l.PurchaseID,
		AccountID:  l.AccountID,
		ItemID:     l.ItemID,
		ShippedAt:  l.Shipped,
		ReturnedAt: l.Returned,
		ChargedAt:  l.Charged,
	}
}

func toLendingEntity(m *LendingModel) *lending.Lending {
	return &lending.Lending{
		ID:         m.ID,
		PurchaseID: m.PurchaseID,
		AccountID:  m.AccountID,
		ItemID:     m.ItemID,
		Shipped:    m.ShippedAt,
		Returned:   m.ReturnedAt,
		Charged:    m.ChargedAt,
		CreatedAt:  m.CreatedAt,
	}
}
