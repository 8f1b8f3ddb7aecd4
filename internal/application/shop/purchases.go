package shop

import (
	"context"
	"errors"
	"time"

	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListPurchasesUseCase 查询账户已执行的购买
type ListPurchasesUseCase struct {
	purchases purchase.Repository
	items     inventory.Repository
}

func NewListPurchasesUseCase(purchases purchase.Repository, items inventory.Repository) *ListPurchasesUseCase {
	return &ListPurchasesUseCase{purchases: purchases, items: items}
}

// PurchaseView 已执行的购买
type PurchaseView struct {
	ID       uint       `json:"id"`
	ItemID   uint       `json:"item_id"`
	Title    string     `json:"title"`
	Type     string     `json:"type"`
	Quantity int        `json:"quantity"`
	Total    int        `json:"total"`
	Free     bool       `json:"free"`
	Date     *time.Time `json:"date"`
}

// PurchasePage 一页购买记录
type PurchasePage struct {
	List     []PurchaseView
	Total    int64
	Page     int
	PageSize int
}

// Execute 分页查询，按执行时间倒序
func (uc *ListPurchasesUseCase) Execute(ctx context.Context, accountID uint, page, pageSize int) (*PurchasePage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "每页数量不能超过100")
	}

	purchases, total, err := uc.purchases.ListExecuted(ctx, accountID, page, pageSize)
	if err != nil {
		return nil, err
	}

	views := make([]PurchaseView, 0, len(purchases))
	for _, p := range purchases {
		v := PurchaseView{
			ID:       p.ID,
			ItemID:   p.ItemID,
			Quantity: p.Quantity,
			Total:    p.Total,
			Free:     p.Free,
			Date:     p.Date,
		}
		item, err := uc.items.FindItem(ctx, p.ItemID)
		switch {
		case err == nil:
			v.Title = item.Product.Title
			v.Type = item.Type.Slug
		case errors.Is(err, inventory.ErrItemNotFound):
		default:
			return nil, err
		}
		views = append(views, v)
	}
	return &PurchasePage{List: views, Total: total, Page: page, PageSize: pageSize}, nil
}
