package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/scholarium/internal/domain/purchase"
)

// purchaseRepository 购买记录仓储实现
type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository 创建购买记录仓储
func NewPurchaseRepository(db *gorm.DB) purchase.Repository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) getDB(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db)
}

func (r *purchaseRepository) Create(ctx context.Context, p *purchase.Purchase) error {
	model := toPurchaseModel(p)
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		return dbError(err, "创建购买记录失败")
	}
	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	return nil
}

func (r *purchaseRepository) FindByID(ctx context.Context, id uint) (*purchase.Purchase, error) {
	var model PurchaseModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, purchase.ErrPurchaseNotFound
		}
		return nil, dbError(err, "查询购买记录失败")
	}
	return toPurchaseEntity(&model), nil
}

func (r *purchaseRepository) cart(ctx context.Context, accountID uint) *gorm.DB {
	return r.getDB(ctx).Where("account_id = ? AND executed = ? AND free = ?", accountID, false, false)
}

func (r *purchaseRepository) FindCartLine(ctx context.Context, accountID, itemID uint) (*purchase.Purchase, error) {
	var model PurchaseModel
	if err := r.cart(ctx, accountID).Where("item_id = ?", itemID).Order("id ASC").First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, purchase.ErrPurchaseNotFound
		}
		return nil, dbError(err, "查询购物车失败")
	}
	return toPurchaseEntity(&model), nil
}

// IncrementQuantity 只修改未执行的记录
func (r *purchaseRepository) IncrementQuantity(ctx context.Context, id uint, delta int) error {
	result := r.getDB(ctx).Model(&PurchaseModel{}).
		Where("id = ? AND executed = ?", id, false).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return dbError(result.Error, "更新购买数量失败")
	}
	if result.RowsAffected == 0 {
		return purchase.ErrPurchaseNotFound
	}
	return nil
}

func (r *purchaseRepository) ListCart(ctx context.Context, accountID uint) ([]*purchase.Purchase, error) {
	var models []PurchaseModel
	if err := r.cart(ctx, accountID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, dbError(err, "查询购物车失败")
	}
	return toPurchaseEntities(models), nil
}

// ListExecuted 分页查询已执行的购买
func (r *purchaseRepository) ListExecuted(ctx context.Context, accountID uint, page, pageSize int) ([]*purchase.Purchase, int64, error) {
	var (
		models []PurchaseModel
		total  int64
	)

	query := r.getDB(ctx).Model(&PurchaseModel{}).Where("account_id = ? AND executed = ?", accountID, true)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "查询购买总数失败")
	}

	offset := (page - 1) * pageSize
	err := query.Order("date DESC").Order("id DESC").Limit(pageSize).Offset(offset).Find(&models).Error
	if err != nil {
		return nil, 0, dbError(err, "查询购买列表失败")
	}
	return toPurchaseEntities(models), total, nil
}

func (r *purchaseRepository) HasExecuted(ctx context.Context, accountID, itemID uint) (bool, error) {
	var count int64
	err := r.getDB(ctx).Model(&PurchaseModel{}).
		Where("account_id = ? AND item_id = ? AND executed = ?", accountID, itemID, true).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "查询购买记录失败")
	}
	return count > 0, nil
}

func (r *purchaseRepository) CountExecutedByItems(ctx context.Context, itemIDs []uint) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.getDB(ctx).Model(&PurchaseModel{}).
		Where("item_id IN ? AND executed = ?", itemIDs, true).
		Count(&count).Error
	if err != nil {
		return 0, dbError(err, "统计购买记录失败")
	}
	return count, nil
}

// MarkExecuted 条件UPDATE保证同一购买只执行一次
func (r *purchaseRepository) MarkExecuted(ctx context.Context, id uint, date time.Time, total int) error {
	db := r.getDB(ctx)
	result := db.Model(&PurchaseModel{}).
		Where("id = ? AND executed = ?", id, false).
		Updates(map[string]interface{}{
			"executed": true,
			"date":     date,
			"total":    total,
		})
	if result.Error != nil {
		return dbError(result.Error, "标记购买执行失败")
	}

	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return purchase.ErrAlreadyExecuted
	}
	return nil
}

func (r *purchaseRepository) Delete(ctx context.Context, id uint) error {
	result := r.getDB(ctx).Delete(&PurchaseModel{}, id)
	if result.Error != nil {
		return dbError(result.Error, "删除购买记录失败")
	}
	if result.RowsAffected == 0 {
		return purchase.ErrPurchaseNotFound
	}
	return nil
}

func (r *purchaseRepository) DeleteUnexecutedByItems(ctx context.Context, itemIDs []uint) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	result := r.getDB(ctx).Where("item_id IN ? AND executed = ?", itemIDs, false).Delete(&PurchaseModel{})
	if result.Error != nil {
		return 0, dbError(result.Error, "清理购物车失败")
	}
	return result.RowsAffected, nil
}

func toPurchaseModel(p *purchase.Purchase) *PurchaseModel {
	return &PurchaseModel{
		ID:        p.ID,
		AccountID: p.AccountID,
		ItemID:    p.ItemID,
		Quantity:  p.Quantity,
		Executed:  p.Executed,
		Date:      p.Date,
		Free:      p.Free,
		Total:     p.Total,
		CreatedAt: p.CreatedAt,
	}
}

func toPurchaseEntity(m *PurchaseModel) *purchase.Purchase {
	return &purchase.Purchase{
		ID:        m.ID,
		AccountID: m.AccountID,
		ItemID:    m.ItemID,
		Quantity:  m.Quantity,
		Executed:  m.Executed,
		Date:      m.Date,
		Free:      m.Free,
		Total:     m.Total,
		CreatedAt: m.CreatedAt,
	}
}

func toPurchaseEntities(models []PurchaseModel) []*purchase.Purchase {
	out := make([]*purchase.Purchase, len(models))
	for i := range models {
		out[i] = toPurchaseEntity(&models[i])
	}
	return out
}
