package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/notification"
)

// Cart 购物车与到货/定价申请
type Cart struct {
	purchases Repository
	items     inventory.Repository
	viewers   *Viewers
	notifier  notification.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewCart 创建购物车服务
func NewCart(
	purchases Repository,
	accounts account.Repository,
	items inventory.Repository,
	notifier notification.Notifier,
	logger *slog.Logger,
) *Cart {
	return &Cart{
		purchases: purchases,
		items:     items,
		viewers:   NewViewers(accounts, purchases),
		notifier:  notifier,
		logger:    logger.With("component", "cart"),
		now:       time.Now,
	}
}

// Status 计算商品对账户的状态
func (c *Cart) Status(ctx context.Context, item *inventory.Item, accountID uint) (inventory.Status, inventory.Viewer, error) {
	now := c.now()
	viewer, err := c.viewers.For(ctx, item.ID, accountID, now)
	if err != nil {
		return "", inventory.Viewer{}, err
	}
	return inventory.Classify(item, viewer, now), viewer, nil
}

// AddToCart 商品可购买时加入购物车
// 已有购物车行时：非限购商品数量+1，限购和出借商品保持不变；两种情况都返回true
func (c *Cart) AddToCart(ctx context.Context, itemID, accountID uint) (bool, error) {
	if accountID == 0 {
		return false, nil
	}

	item, err := c.items.FindItem(ctx, itemID)
	if err != nil {
		return false, err
	}

	status, _, err := c.Status(ctx, item, accountID)
	if err != nil {
		return false, err
	}
	if status != inventory.StatusPurchasable {
		return false, nil
	}

	line, err := c.purchases.FindCartLine(ctx, accountID, itemID)
	switch {
	case err == nil:
		if item.Type.BuyOnce || item.Type.Lendable {
			return true, nil
		}
		if err := c.purchases.IncrementQuantity(ctx, line.ID, 1); err != nil {
			return false, err
		}
		return true, nil
	case errors.Is(err, ErrPurchaseNotFound):
		if err := c.purchases.Create(ctx, New(accountID, itemID, 1, false)); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, err
	}
}

// RemoveFromCart 删除购物车行，只能删除本人未执行的记录
func (c *Cart) RemoveFromCart(ctx context.Context, purchaseID, accountID uint) error {
	p, err := c.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if p.AccountID != accountID {
		return ErrPurchaseNotFound
	}
	if p.Executed {
		return ErrAlreadyExecuted
	}
	return c.purchases.Delete(ctx, p.ID)
}

// Line 购物车行及当前单价
type Line struct {
	Purchase  *Purchase
	Item      *inventory.Item
	UnitPrice int
}

// Total 行小计
func (l Line) Total() int {
	return l.UnitPrice * l.Purchase.Quantity
}

// Lines 列出购物车，单价按当前捐赠金额计算；未定价商品单价为0
func (c *Cart) Lines(ctx context.Context, accountID uint) ([]Line, error) {
	purchases, err := c.purchases.ListCart(ctx, accountID)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(purchases))
	for _, p := range purchases {
		item, err := c.items.FindItem(ctx, p.ItemID)
		if err != nil {
			return nil, err
		}
		_, viewer, err := c.Status(ctx, item, accountID)
		if err != nil {
			return nil, err
		}
		price := 0
		if ep := item.EffectivePrice(viewer.DonationAmount); ep != nil {
			price = *ep
		}
		lines = append(lines, Line{Purchase: p, Item: item, UnitPrice: price})
	}
	return lines, nil
}

// CartTotal 购物车总价
func (c *Cart) CartTotal(ctx context.Context, accountID uint) (int, error) {
	lines, err := c.Lines(ctx, accountID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, l := range lines {
		total += l.Total()
	}
	return total, nil
}

// CleanCart 删除已不可购买的购物车行，返回删除数
func (c *Cart) CleanCart(ctx context.Context, accountID uint) (int, error) {
	purchases, err := c.purchases.ListCart(ctx, accountID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range purchases {
		item, err := c.items.FindItem(ctx, p.ItemID)
		if err != nil && !errors.Is(err, inventory.ErrItemNotFound) {
			return removed, err
		}
		if item != nil {
			status, _, err := c.Status(ctx, item, accountID)
			if err != nil {
				return removed, err
			}
			if status == inventory.StatusPurchasable {
				continue
			}
		}
		if err := c.purchases.Delete(ctx, p.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Request 登记定价或补货申请并通知员工
func (c *Cart) Request(ctx context.Context, itemID, accountID uint) error {
	if accountID == 0 {
		return ErrRequestNotAllowed
	}

	item, err := c.items.FindItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !item.Type.AllowsRequests() {
		return ErrRequestNotAllowed
	}

	if err := c.items.AddRequest(ctx, itemID, accountID); err != nil {
		return err
	}

	c.notify(ctx, notification.Notification{
		Kind:      notification.KindItemRequested,
		AccountID: accountID,
		ItemID:    itemID,
		Subject:   subjectOf(item),
	})
	return nil
}

// ResolveRequests 商品恢复可售或已定价时调用
// 逐个为申请账户加入购物车，成功者移出申请列表并收到到货通知，返回处理成功的账户数
func (c *Cart) ResolveRequests(ctx context.Context, itemID uint) (int, error) {
	accounts, err := c.items.ListRequests(ctx, itemID)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, accountID := range accounts {
		ok, err := c.AddToCart(ctx, itemID, accountID)
		if err != nil {
			c.logger.WarnContext(ctx, "处理申请失败", "item_id", itemID, "account_id", accountID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if err := c.items.RemoveRequest(ctx, itemID, accountID); err != nil {
			return resolved, err
		}
		resolved++

		c.notify(ctx, notification.Notification{
			Kind:      notification.KindItemAvailable,
			AccountID: accountID,
			ItemID:    itemID,
			Subject:   fmt.Sprintf("商品#%d已加入购物车", itemID),
		})
	}

	if resolved > 0 {
		c.logger.InfoContext(ctx, "申请已处理", "item_id", itemID, "resolved", resolved, "pending", len(accounts)-resolved)
	}
	return resolved, nil
}

func (c *Cart) notify(ctx context.Context, n notification.Notification) {
	n.CreatedAt = c.now()
	if err := c.notifier.Notify(ctx, n); err != nil {
		c.logger.ErrorContext(ctx, "通知投递失败", "kind", n.Kind, "error", err)
	}
}

func subjectOf(item *inventory.Item) string {
	if item.Product.Title != "" {
		return item.Product.Title
	}
	return fmt.Sprintf("商品#%d", item.ID)
}
