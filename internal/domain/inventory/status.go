package inventory

import (
	"time"
)

// Status 商品对某个账户的可购买状态
type Status string

const (
	StatusPurchasable       Status = "purchasable"
	StatusLevelRequired     Status = "level_required"
	StatusAlreadyPurchased  Status = "already_purchased"
	StatusAccessibleByLevel Status = "accessible_by_level"
	StatusRequestable       Status = "requestable"
	StatusSoldOut           Status = "sold_out"
	StatusUnavailable       Status = "unavailable"
)

// Viewer 发起查询的账户视角
// 未登录时Authenticated=false，其余字段为零值
type Viewer struct {
	Authenticated  bool
	DonationAmount int
	Purchased      bool // 是否持有该商品的已执行购买
}

// Classify 计算商品状态
// 规则按顺序匹配，先匹配者生效：
// 1. 已过期 → Unavailable
// 2. 已购买且类型限购一次 → AlreadyPurchased
// 3. 捐赠金额达到访问门槛 → AccessibleByLevel
// 4. 有限库存已售罄 → 允许补货申请且已登录时Requestable，否则SoldOut
// 5. 未定价 → 允许定价申请且已登录时Requestable，否则Unavailable
// 6. 捐赠金额低于购买门槛 → LevelRequired
// 7. Purchasable
func Classify(item *Item, v Viewer, now time.Time) Status {
	t := &item.Type

	if item.Expired(now) {
		return StatusUnavailable
	}
	if v.Purchased && t.BuyOnce {
		return StatusAlreadyPurchased
	}
	if t.AccessibleAtLevel != nil && v.DonationAmount >= *t.AccessibleAtLevel {
		return StatusAccessibleByLevel
	}
	if item.SoldOut() {
		if t.AllowRestockRequest && v.Authenticated {
			return StatusRequestable
		}
		return StatusSoldOut
	}
	if item.BasePrice() == nil {
		if t.AllowPriceRequest && v.Authenticated {
			return StatusRequestable
		}
		return StatusUnavailable
	}
	if t.PurchasableAtLevel != nil && v.DonationAmount < *t.PurchasableAtLevel {
		return StatusLevelRequired
	}
	return StatusPurchasable
}

// IsAccessible 已登录且（已购买或捐赠金额达到访问门槛）
func IsAccessible(item *Item, v Viewer) bool {
	if !v.Authenticated {
		return false
	}
	if v.Purchased {
		return true
	}
	return item.Type.AccessibleAtLevel != nil && v.DonationAmount >= *item.Type.AccessibleAtLevel
}

// IsVisible 商品是否在浏览列表中展示
// attachments为商品可下载的附件数量；已可访问但没有附件可下载的商品不展示
func IsVisible(item *Item, v Viewer, attachments int, now time.Time) bool {
	if item.Expired(now) {
		return false
	}
	if v.Authenticated {
		return !(IsAccessible(item, v) && attachments == 0)
	}
	return item.Type.AllowUnauthenticatedPurchase
}
