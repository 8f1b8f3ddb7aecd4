package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/scholarium/internal/domain/inventory"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// inventoryRepository 库存仓储实现
// 库存修改使用条件UPDATE：
//
//	UPDATE inventory_items SET stock = stock - ? WHERE id = ? AND (stock IS NULL OR stock >= ?)
//
// stock为NULL（不限库存）时表达式结果仍为NULL，不需要分支
type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存仓储
func NewInventoryRepository(db *gorm.DB) inventory.Repository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) getDB(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db)
}

// =========================================
// 产品
// =========================================

func (r *inventoryRepository) CreateProduct(ctx context.Context, p *inventory.Product) error {
	model := &ProductModel{Kind: string(p.Kind), Title: p.Title, Date: p.Date}
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		return dbError(err, "创建产品失败")
	}
	p.ID = model.ID
	return nil
}

func (r *inventoryRepository) UpdateProduct(ctx context.Context, p *inventory.Product) error {
	db := r.getDB(ctx)
	result := db.Model(&ProductModel{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"kind":  string(p.Kind),
		"title": p.Title,
		"date":  p.Date,
	})
	if result.Error != nil {
		return dbError(result.Error, "更新产品失败")
	}
	if result.RowsAffected == 0 {
		ok, err := rowExists(db, &ProductModel{}, p.ID)
		if err != nil {
			return err
		}
		if !ok {
			return inventory.ErrProductNotFound
		}
	}
	return nil
}

func (r *inventoryRepository) DeleteProduct(ctx context.Context, id uint) error {
	result := r.getDB(ctx).Delete(&ProductModel{}, id)
	if result.Error != nil {
		return dbError(result.Error, "删除产品失败")
	}
	if result.RowsAffected == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

// =========================================
// 商品类型
// =========================================

func (r *inventoryRepository) FindTypeBySlug(ctx context.Context, slug string) (*inventory.ItemType, error) {
	var model ItemTypeModel
	if err := r.getDB(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, inventory.ErrItemTypeNotFound
		}
		return nil, dbError(err, "查询商品类型失败")
	}
	t := toItemTypeEntity(&model)
	return &t, nil
}

// EnsureType 已存在的类型保持原配置，不会被t覆盖
func (r *inventoryRepository) EnsureType(ctx context.Context, t *inventory.ItemType) (*inventory.ItemType, error) {
	existing, err := r.FindTypeBySlug(ctx, t.Slug)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, inventory.ErrItemTypeNotFound) {
		return nil, err
	}

	model := toItemTypeModel(t)
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return r.FindTypeBySlug(ctx, t.Slug)
		}
		return nil, dbError(err, "创建商品类型失败")
	}
	created := toItemTypeEntity(model)
	return &created, nil
}

// =========================================
// 商品
// =========================================

func (r *inventoryRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.getDB(ctx).Preload("Type").Preload("Product").Preload("Discounts")
}

func (r *inventoryRepository) FindItem(ctx context.Context, id uint) (*inventory.Item, error) {
	var model ItemModel
	if err := r.withAssociations(ctx).First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, inventory.ErrItemNotFound
		}
		return nil, dbError(err, "查询商品失败")
	}
	return r.loadItem(ctx, &model)
}

func (r *inventoryRepository) FindItemByProductAndType(ctx context.Context, productID, typeID uint) (*inventory.Item, error) {
	var model ItemModel
	err := r.withAssociations(ctx).
		Where("product_id = ? AND type_id = ? AND attachment_id IS NULL", productID, typeID).
		First(&model).Error
	if err != nil {
		if isNotFound(err) {
			return nil, inventory.ErrItemNotFound
		}
		return nil, dbError(err, "查询商品失败")
	}
	return r.loadItem(ctx, &model)
}

func (r *inventoryRepository) FindItemByAttachment(ctx context.Context, attachmentID uint) (*inventory.Item, error) {
	var model ItemModel
	if err := r.withAssociations(ctx).Where("attachment_id = ?", attachmentID).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, inventory.ErrItemNotFound
		}
		return nil, dbError(err, "查询商品失败")
	}
	return r.loadItem(ctx, &model)
}

func (r *inventoryRepository) ListItemsByProduct(ctx context.Context, productID uint) ([]*inventory.Item, error) {
	var models []ItemModel
	if err := r.withAssociations(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, dbError(err, "查询商品失败")
	}
	out := make([]*inventory.Item, len(models))
	for i := range models {
		item, err := r.loadItem(ctx, &models[i])
		if err != nil {
			return nil, err
		}
		out[i] = item
	}
	return out, nil
}

// loadItem 转换为实体，出借类型补充未归还的出借数
func (r *inventoryRepository) loadItem(ctx context.Context, model *ItemModel) (*inventory.Item, error) {
	item := toItemEntity(model)
	if !item.Type.Lendable {
		return item, nil
	}
	n, err := countActiveLendings(r.getDB(ctx), item.ID)
	if err != nil {
		return nil, err
	}
	item.ActiveLendings = n
	return item, nil
}

// CreateItem 类型和产品必须已存在，只写入商品本身和折扣
func (r *inventoryRepository) CreateItem(ctx context.Context, item *inventory.Item) error {
	model := toItemModel(item)
	return r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			if isDuplicateError(err) {
				return apperrors.New(apperrors.ErrCodeDuplicateEntry, "附件已有对应商品")
			}
			return dbError(err, "创建商品失败")
		}
		item.ID = model.ID
		item.CreatedAt = model.CreatedAt
		item.UpdatedAt = model.UpdatedAt
		return createDiscounts(tx, model.ID, item.Discounts)
	})
}

func (r *inventoryRepository) UpdateItemPrice(ctx context.Context, id uint, price *int) error {
	var value interface{} = gorm.Expr("NULL")
	if price != nil {
		value = *price
	}
	db := r.getDB(ctx)
	result := db.Model(&ItemModel{}).Where("id = ?", id).Update("price", value)
	if result.Error != nil {
		return dbError(result.Error, "更新商品价格失败")
	}
	if result.RowsAffected == 0 {
		ok, err := rowExists(db, &ItemModel{}, id)
		if err != nil {
			return err
		}
		if !ok {
			return inventory.ErrItemNotFound
		}
	}
	return nil
}

// SetDiscounts 替换商品的折扣档位
func (r *inventoryRepository) SetDiscounts(ctx context.Context, id uint, discounts []inventory.Discount) error {
	return r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&ItemDiscountModel{}).Error; err != nil {
			return dbError(err, "清除折扣失败")
		}
		return createDiscounts(tx, id, discounts)
	})
}

func createDiscounts(tx *gorm.DB, itemID uint, discounts []inventory.Discount) error {
	if len(discounts) == 0 {
		return nil
	}
	models := make([]ItemDiscountModel, len(discounts))
	for i, d := range discounts {
		models[i] = ItemDiscountModel{ItemID: itemID, LevelAmount: d.LevelAmount, Percent: d.Percent}
	}
	if err := tx.Create(&models).Error; err != nil {
		return dbError(err, "创建折扣失败")
	}
	return nil
}

// DeleteItem 删除商品及其折扣和申请
func (r *inventoryRepository) DeleteItem(ctx context.Context, id uint) error {
	return r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&ItemDiscountModel{}).Error; err != nil {
			return dbError(err, "删除折扣失败")
		}
		if err := tx.Where("item_id = ?", id).Delete(&ItemRequestModel{}).Error; err != nil {
			return dbError(err, "删除申请失败")
		}
		result := tx.Delete(&ItemModel{}, id)
		if result.Error != nil {
			return dbError(result.Error, "删除商品失败")
		}
		if result.RowsAffected == 0 {
			return inventory.ErrItemNotFound
		}
		return nil
	})
}

// =========================================
// 库存
// =========================================

// Sell 扣减库存
func (r *inventoryRepository) Sell(ctx context.Context, id uint, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}

	db := r.getDB(ctx)
	result := db.Model(&ItemModel{}).
		Where("id = ?", id).
		Where("stock IS NULL OR stock >= ?", quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return dbError(result.Error, "扣减库存失败")
	}

	if result.RowsAffected == 0 {
		// MySQL对值未变化的行返回0，不限库存时需要再确认一次
		stock, err := r.currentStock(db, id)
		if err != nil {
			return err
		}
		if stock != nil {
			return inventory.ErrInsufficientStock
		}
	}
	return nil
}

// Restock 回补库存
func (r *inventoryRepository) Restock(ctx context.Context, id uint, quantity int) error {
	if quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}

	db := r.getDB(ctx)
	result := db.Model(&ItemModel{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return dbError(result.Error, "回补库存失败")
	}
	if result.RowsAffected == 0 {
		if _, err := r.currentStock(db, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *inventoryRepository) currentStock(db *gorm.DB, id uint) (*int, error) {
	var model ItemModel
	if err := db.Select("id", "stock").First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, inventory.ErrItemNotFound
		}
		return nil, dbError(err, "查询库存失败")
	}
	return model.Stock, nil
}

// ReconcileStock 行锁内读取库存和同步基线，按增量规则写回
func (r *inventoryRepository) ReconcileStock(ctx context.Context, id uint, remote *int) (prev, next *int, err error) {
	err = r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		var model ItemModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stock", "synced_stock").
			First(&model, id).Error
		if err != nil {
			if isNotFound(err) {
				return inventory.ErrItemNotFound
			}
			return dbError(err, "锁定商品失败")
		}

		prev = model.Stock
		next = inventory.ReconcileStock(model.Stock, model.SyncedStock, remote)
		if !inventory.Changed(prev, next) && !inventory.Changed(model.SyncedStock, remote) {
			return nil
		}

		err = tx.Model(&ItemModel{}).Where("id = ?", id).Updates(map[string]interface{}{
			"stock":        nullable(next),
			"synced_stock": nullable(remote),
		}).Error
		if err != nil {
			return dbError(err, "更新库存失败")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

// =========================================
// 申请
// =========================================

func (r *inventoryRepository) AddRequest(ctx context.Context, itemID, accountID uint) error {
	req := ItemRequestModel{ItemID: itemID, AccountID: accountID}
	if err := r.getDB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&req).Error; err != nil {
		return dbError(err, "登记申请失败")
	}
	return nil
}

func (r *inventoryRepository) RemoveRequest(ctx context.Context, itemID, accountID uint) error {
	err := r.getDB(ctx).
		Where("item_id = ? AND account_id = ?", itemID, accountID).
		Delete(&ItemRequestModel{}).Error
	if err != nil {
		return dbError(err, "删除申请失败")
	}
	return nil
}

func (r *inventoryRepository) ListRequests(ctx context.Context, itemID uint) ([]uint, error) {
	var ids []uint
	err := r.getDB(ctx).Model(&ItemRequestModel{}).
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, dbError(err, "查询申请失败")
	}
	return ids, nil
}

// =========================================
// 模型转换
// =========================================

func nullable(p *int) interface{} {
	if p == nil {
		return gorm.Expr("NULL")
	}
	return *p
}

func toItemTypeModel(t *inventory.ItemType) *ItemTypeModel {
	return &ItemTypeModel{
		ID:                           t.ID,
		Slug:                         t.Slug,
		Title:                        t.Title,
		ShippingRequired:             t.ShippingRequired,
		AllowPriceRequest:            t.AllowPriceRequest,
		AllowRestockRequest:          t.AllowRestockRequest,
		DefaultPrice:                 t.DefaultPrice,
		DefaultStock:                 t.DefaultStock,
		PurchasableAtLevel:           t.PurchasableAtLevel,
		AccessibleAtLevel:            t.AccessibleAtLevel,
		BuyOnce:                      t.BuyOnce,
		ExpiresWithProduct:           t.ExpiresWithProduct,
		AllowUnauthenticatedPurchase: t.AllowUnauthenticatedPurchase,
		NotifyStaffOnPurchase:        t.NotifyStaffOnPurchase,
		Lendable:                     t.Lendable,
	}
}

func toItemTypeEntity(m *ItemTypeModel) inventory.ItemType {
	return inventory.ItemType{
		ID:                           m.ID,
		Slug:                         m.Slug,
		Title:                        m.Title,
		ShippingRequired:             m.ShippingRequired,
		AllowPriceRequest:            m.AllowPriceRequest,
		AllowRestockRequest:          m.AllowRestockRequest,
		DefaultPrice:                 m.DefaultPrice,
		DefaultStock:                 m.DefaultStock,
		PurchasableAtLevel:           m.PurchasableAtLevel,
		AccessibleAtLevel:            m.AccessibleAtLevel,
		BuyOnce:                      m.BuyOnce,
		ExpiresWithProduct:           m.ExpiresWithProduct,
		AllowUnauthenticatedPurchase: m.AllowUnauthenticatedPurchase,
		NotifyStaffOnPurchase:        m.NotifyStaffOnPurchase,
		Lendable:                     m.Lendable,
	}
}

func toItemModel(i *inventory.Item) *ItemModel {
	return &ItemModel{
		ID:           i.ID,
		TypeID:       i.TypeID,
		ProductID:    i.ProductID,
		AttachmentID: i.AttachmentID,
		Price:        i.Price,
		Stock:        i.Stock,
		SyncedStock:  i.SyncedStock,
		ExpiresOn:    i.ExpiresOn,
	}
}

func toItemEntity(m *ItemModel) *inventory.Item {
	item := &inventory.Item{
		ID:           m.ID,
		TypeID:       m.TypeID,
		Type:         toItemTypeEntity(&m.Type),
		ProductID:    m.ProductID,
		AttachmentID: m.AttachmentID,
		Price:        m.Price,
		Stock:        m.Stock,
		SyncedStock:  m.SyncedStock,
		ExpiresOn:    m.ExpiresOn,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Product: inventory.Product{
			ID:    m.Product.ID,
			Kind:  inventory.ProductKind(m.Product.Kind),
			Title: m.Product.Title,
			Date:  m.Product.Date,
		},
	}
	for _, d := range m.Discounts {
		item.Discounts = append(item.Discounts, inventory.Discount{LevelAmount: d.LevelAmount, Percent: d.Percent})
	}
	return item
}
