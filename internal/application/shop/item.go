package shop

import (
	"context"
	"errors"
	"time"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
)

// ItemUseCase 商品状态查询与申请
type ItemUseCase struct {
	items   inventory.Repository
	catalog catalog.Repository
	cart    *purchase.Cart
	now     func() time.Time
}

// NewItemUseCase 创建商品用例
func NewItemUseCase(items inventory.Repository, catalogRepo catalog.Repository, cart *purchase.Cart) *ItemUseCase {
	return &ItemUseCase{items: items, catalog: catalogRepo, cart: cart, now: time.Now}
}

// ItemStatus 商品对当前账户的状态
type ItemStatus struct {
	ItemID      uint             `json:"item_id"`
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Status      inventory.Status `json:"status"`
	Price       *int             `json:"price"` // 按捐赠金额折扣后的单价，nil表示价格待询
	Stock       *int             `json:"stock"` // 可售数量（出借类型为可借副本数），nil表示不限
	Accessible  bool             `json:"accessible"`
	Visible     bool             `json:"visible"`
	Attachments int              `json:"attachments"`
}

// Status 计算商品状态；accountID为0表示未登录
func (uc *ItemUseCase) Status(ctx context.Context, itemID, accountID uint) (*ItemStatus, error) {
	item, err := uc.items.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	status, viewer, err := uc.cart.Status(ctx, item, accountID)
	if err != nil {
		return nil, err
	}

	attachments, err := downloadable(ctx, uc.catalog, item)
	if err != nil {
		return nil, err
	}

	return &ItemStatus{
		ItemID:      item.ID,
		Type:        item.Type.Slug,
		Title:       item.Product.Title,
		Status:      status,
		Price:       item.EffectivePrice(viewer.DonationAmount),
		Stock:       item.Available(),
		Accessible:  inventory.IsAccessible(item, viewer),
		Visible:     inventory.IsVisible(item, viewer, len(attachments), uc.now()),
		Attachments: len(attachments),
	}, nil
}

// Request 登记定价或补货申请
func (uc *ItemUseCase) Request(ctx context.Context, itemID, accountID uint) error {
	return uc.cart.Request(ctx, itemID, accountID)
}

// downloadable 商品可下载的附件
// 只有由附件派生的商品可下载，且只对应该附件；实体书等商品没有可下载内容
func downloadable(ctx context.Context, repo catalog.Repository, item *inventory.Item) ([]*catalog.Attachment, error) {
	if item.AttachmentID == nil {
		return nil, nil
	}
	entry, err := repo.FindEntryByProduct(ctx, item.ProductID)
	if errors.Is(err, catalog.ErrEntryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	attachments, err := repo.ListAttachments(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	for _, att := range attachments {
		if att.ID == *item.AttachmentID {
			return []*catalog.Attachment{att}, nil
		}
	}
	return nil, nil
}
