// Package lending 出借管理：开放出借、登记寄出/归还/收费、查询读者手里的书
package lending

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/lending"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/metrics"
)

// ErrNotLendableType 配置的出借类型Slug已被非出借类型占用
var ErrNotLendableType = apperrors.New(apperrors.ErrCodeInvalidParams, "商品类型不是出借类型")

// UseCase 出借用例
type UseCase struct {
	lendings lending.Repository
	items    inventory.Repository
	catalog  catalog.Repository
	cart     *purchase.Cart
	typeSlug string
	logger   *slog.Logger
	now      func() time.Time
}

// NewUseCase 创建出借用例
func NewUseCase(
	lendings lending.Repository,
	items inventory.Repository,
	catalogRepo catalog.Repository,
	cart *purchase.Cart,
	cfg config.ShopConfig,
	logger *slog.Logger,
) *UseCase {
	metrics.InitMetrics()
	slug := cfg.LendingItemType
	if slug == "" {
		slug = "lending"
	}
	return &UseCase{
		lendings: lendings,
		items:    items,
		catalog:  catalogRepo,
		cart:     cart,
		typeSlug: slug,
		logger:   logger.With("component", "lending"),
		now:      time.Now,
	}
}

// View 一次出借及商品标题
type View struct {
	ID        uint       `json:"id"`
	ItemID    uint       `json:"item_id"`
	Title     string     `json:"title"`
	Shipped   *time.Time `json:"shipped"`
	Returned  *time.Time `json:"returned"`
	Charged   *time.Time `json:"charged"`
	CreatedAt time.Time  `json:"created_at"`
}

func (uc *UseCase) lendingType() *inventory.ItemType {
	return &inventory.ItemType{
		Slug:                uc.typeSlug,
		Title:               uc.typeSlug,
		Lendable:            true,
		ShippingRequired:    true,
		AllowRestockRequest: true,
	}
}

// Enable 为条目开放出借，copies为馆藏副本数
// 已开放时调整副本数，price非nil时覆盖价格；有空闲副本时处理到货申请
func (uc *UseCase) Enable(ctx context.Context, entryKey string, copies int, price *int) (*inventory.Item, error) {
	if copies < 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "副本数不能为负")
	}

	entry, err := uc.catalog.FindEntryByKey(ctx, entryKey)
	if err != nil {
		return nil, err
	}
	typ, err := uc.items.EnsureType(ctx, uc.lendingType())
	if err != nil {
		return nil, err
	}
	if !typ.Lendable {
		return nil, ErrNotLendableType
	}

	item, err := uc.items.FindItemByProductAndType(ctx, entry.ProductID, typ.ID)
	switch {
	case errors.Is(err, inventory.ErrItemNotFound):
		item = inventory.NewItem(*typ, entry.ProductID, price, &copies)
		if err := uc.items.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		// 出借不扣库存，库存始终等于同步基线，调整即覆盖
		if _, _, err := uc.items.ReconcileStock(ctx, item.ID, &copies); err != nil {
			return nil, err
		}
		if price != nil {
			if err := uc.items.UpdateItemPrice(ctx, item.ID, price); err != nil {
				return nil, err
			}
		}
	}

	item, err = uc.items.FindItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	uc.logger.InfoContext(ctx, "出借已开放",
		"entry", entryKey, "item_id", item.ID, "copies", copies, "active", item.ActiveLendings)

	if !item.SoldOut() {
		uc.resolve(ctx, item.ID)
	}
	return item, nil
}

// Available 可借数量：副本数减去未归还的出借，nil表示不限
func (uc *UseCase) Available(ctx context.Context, itemID uint) (*int, error) {
	item, err := uc.items.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return item.Available(), nil
}

// List 账户的出借，activeOnly时只列未归还的
func (uc *UseCase) List(ctx context.Context, accountID uint, activeOnly bool) ([]View, error) {
	lendings, err := uc.lendings.ListByAccount(ctx, accountID, activeOnly)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(lendings))
	for _, l := range lendings {
		v := View{
			ID:        l.ID,
			ItemID:    l.ItemID,
			Shipped:   l.Shipped,
			Returned:  l.Returned,
			Charged:   l.Charged,
			CreatedAt: l.CreatedAt,
		}
		item, err := uc.items.FindItem(ctx, l.ItemID)
		switch {
		case err == nil:
			v.Title = item.Product.Title
		case errors.Is(err, inventory.ErrItemNotFound):
		default:
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Outstanding 已寄出未归还的出借
func (uc *UseCase) Outstanding(ctx context.Context, accountID uint) ([]View, error) {
	views, err := uc.List(ctx, accountID, true)
	if err != nil {
		return nil, err
	}
	out := views[:0]
	for _, v := range views {
		if v.Shipped != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

// Ship 登记寄出
func (uc *UseCase) Ship(ctx context.Context, id uint) error {
	if err := uc.lendings.MarkShipped(ctx, id, uc.now()); err != nil {
		return err
	}
	metrics.IncCounterVec(metrics.LendingsTotal, map[string]string{"event": "shipped"})
	uc.logger.InfoContext(ctx, "出借已寄出", "lending_id", id)
	return nil
}

// Return 登记归还，释放的副本用于处理到货申请
func (uc *UseCase) Return(ctx context.Context, id uint) error {
	l, err := uc.lendings.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.lendings.MarkReturned(ctx, id, uc.now()); err != nil {
		return err
	}
	metrics.IncCounterVec(metrics.LendingsTotal, map[string]string{"event": "returned"})
	uc.logger.InfoContext(ctx, "出借已归还", "lending_id", id, "item_id", l.ItemID)

	uc.resolve(ctx, l.ItemID)
	return nil
}

// Charge 登记收费
func (uc *UseCase) Charge(ctx context.Context, id uint) error {
	if err := uc.lendings.MarkCharged(ctx, id, uc.now()); err != nil {
		return err
	}
	metrics.IncCounterVec(metrics.LendingsTotal, map[string]string{"event": "charged"})
	uc.logger.InfoContext(ctx, "出借已收费", "lending_id", id)
	return nil
}

// resolve 申请处理失败只记日志，不影响出借状态变更
func (uc *UseCase) resolve(ctx context.Context, itemID uint) {
	if _, err := uc.cart.ResolveRequests(ctx, itemID); err != nil {
		uc.logger.WarnContext(ctx, "处理到货申请失败", "item_id", itemID, "error", err)
	}
}
