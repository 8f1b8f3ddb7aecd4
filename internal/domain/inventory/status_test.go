package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func baseItem() *Item {
	return &Item{
		Type:  ItemType{Slug: "purchase", DefaultPrice: intPtr(10)},
		Stock: intPtr(5),
	}
}

func TestClassify(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)
	member := Viewer{Authenticated: true}

	tests := []struct {
		name   string
		modify func(i *Item)
		viewer Viewer
		want   Status
	}{
		{"默认可购买", func(i *Item) {}, member, StatusPurchasable},
		{"显式过期", func(i *Item) { i.ExpiresOn = &past }, member, StatusUnavailable},
		{"未到过期日", func(i *Item) { i.ExpiresOn = &future }, member, StatusPurchasable},
		{"随活动日期过期", func(i *Item) {
			i.Type.ExpiresWithProduct = true
			i.Product.Date = &past
		}, member, StatusUnavailable},
		{"活动日期已过但类型不随之过期", func(i *Item) { i.Product.Date = &past }, member, StatusPurchasable},
		{"过期优先于库存和等级", func(i *Item) {
			i.ExpiresOn = &past
			i.Stock = intPtr(0)
			i.Type.AccessibleAtLevel = intPtr(75)
		}, Viewer{Authenticated: true, DonationAmount: 300, Purchased: true}, StatusUnavailable},
		{"限购一次且已购买", func(i *Item) { i.Type.BuyOnce = true }, Viewer{Authenticated: true, Purchased: true}, StatusAlreadyPurchased},
		{"非限购商品可重复购买", func(i *Item) {}, Viewer{Authenticated: true, Purchased: true}, StatusPurchasable},
		{"捐赠等级可直接访问", func(i *Item) { i.Type.AccessibleAtLevel = intPtr(150) }, Viewer{Authenticated: true, DonationAmount: 150}, StatusAccessibleByLevel},
		{"访问门槛优先于售罄", func(i *Item) {
			i.Type.AccessibleAtLevel = intPtr(150)
			i.Stock = intPtr(0)
		}, Viewer{Authenticated: true, DonationAmount: 200}, StatusAccessibleByLevel},
		{"售罄", func(i *Item) { i.Stock = intPtr(0) }, member, StatusSoldOut},
		{"出借副本全部借出", func(i *Item) {
			i.Type.Lendable = true
			i.Stock = intPtr(2)
			i.ActiveLendings = 2
		}, member, StatusSoldOut},
		{"出借仍有空闲副本", func(i *Item) {
			i.Type.Lendable = true
			i.Stock = intPtr(2)
			i.ActiveLendings = 1
		}, member, StatusPurchasable},
		{"非出借类型忽略出借数", func(i *Item) {
			i.Stock = intPtr(1)
			i.ActiveLendings = 3
		}, member, StatusPurchasable},
		{"售罄可申请补货", func(i *Item) {
			i.Stock = intPtr(0)
			i.Type.AllowRestockRequest = true
		}, member, StatusRequestable},
		{"售罄且未登录不能申请", func(i *Item) {
			i.Stock = intPtr(0)
			i.Type.AllowRestockRequest = true
		}, Viewer{}, StatusSoldOut},
		{"库存检查先于价格检查", func(i *Item) {
			i.Stock = intPtr(0)
			i.Type.DefaultPrice = nil
			i.Type.AllowPriceRequest = true
		}, member, StatusSoldOut},
		{"未定价", func(i *Item) { i.Type.DefaultPrice = nil }, member, StatusUnavailable},
		{"未定价可申请", func(i *Item) {
			i.Type.DefaultPrice = nil
			i.Type.AllowPriceRequest = true
		}, member, StatusRequestable},
		{"不限库存", func(i *Item) { i.Stock = nil }, member, StatusPurchasable},
		{"等级不足", func(i *Item) { i.Type.PurchasableAtLevel = intPtr(75) }, Viewer{Authenticated: true, DonationAmount: 50}, StatusLevelRequired},
		{"等级恰好满足", func(i *Item) { i.Type.PurchasableAtLevel = intPtr(75) }, Viewer{Authenticated: true, DonationAmount: 75}, StatusPurchasable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := baseItem()
			tt.modify(item)
			assert.Equal(t, tt.want, Classify(item, tt.viewer, now))
		})
	}
}

func TestEffectivePrice(t *testing.T) {
	t.Run("达到门槛享受折扣（向下取整）", func(t *testing.T) {
		item := &Item{Price: intPtr(10), Discounts: []Discount{{LevelAmount: 75, Percent: 50}}}

		assert.Equal(t, 5, *item.EffectivePrice(75))
		assert.Equal(t, 10, *item.EffectivePrice(74))
	})

	t.Run("多档取最大折扣而非最高门槛", func(t *testing.T) {
		item := &Item{Price: intPtr(9), Discounts: []Discount{
			{LevelAmount: 75, Percent: 50},
			{LevelAmount: 150, Percent: 30},
		}}

		// 9 * 50 / 100 = 4.5 → 4
		assert.Equal(t, 4, *item.EffectivePrice(300))
	})

	t.Run("覆盖价格优先于默认价格", func(t *testing.T) {
		item := &Item{Price: intPtr(7), Type: ItemType{DefaultPrice: intPtr(20)}}
		assert.Equal(t, 7, *item.EffectivePrice(0))

		item.Price = nil
		assert.Equal(t, 20, *item.EffectivePrice(0))
	})

	t.Run("未定价", func(t *testing.T) {
		item := &Item{Discounts: []Discount{{LevelAmount: 0, Percent: 50}}}
		assert.Nil(t, item.EffectivePrice(100))
	})
}

func TestIsAccessible(t *testing.T) {
	item := baseItem()
	item.Type.AccessibleAtLevel = intPtr(150)

	assert.False(t, IsAccessible(item, Viewer{Purchased: true}), "未登录不可访问")
	assert.True(t, IsAccessible(item, Viewer{Authenticated: true, Purchased: true}))
	assert.True(t, IsAccessible(item, Viewer{Authenticated: true, DonationAmount: 150}))
	assert.False(t, IsAccessible(item, Viewer{Authenticated: true, DonationAmount: 149}))
}

func TestIsVisible(t *testing.T) {
	t.Run("过期不可见", func(t *testing.T) {
		item := baseItem()
		past := now.Add(-time.Hour)
		item.ExpiresOn = &past
		assert.False(t, IsVisible(item, Viewer{Authenticated: true}, 1, now))
	})

	t.Run("已可访问且无附件时隐藏", func(t *testing.T) {
		item := baseItem()
		v := Viewer{Authenticated: true, Purchased: true}
		assert.False(t, IsVisible(item, v, 0, now))
		assert.True(t, IsVisible(item, v, 2, now))
	})

	t.Run("未登录只在允许匿名购买时可见", func(t *testing.T) {
		item := baseItem()
		assert.False(t, IsVisible(item, Viewer{}, 1, now))

		item.Type.AllowUnauthenticatedPurchase = true
		assert.True(t, IsVisible(item, Viewer{}, 1, now))
	})
}

func TestNewItem(t *testing.T) {
	typ := ItemType{ID: 3, DefaultStock: intPtr(40)}

	item := NewItem(typ, 9, nil, nil)
	assert.Equal(t, 40, *item.Stock)
	assert.Equal(t, 40, *item.SyncedStock)

	explicit := NewItem(typ, 9, intPtr(12), intPtr(1))
	assert.Equal(t, 1, *explicit.Stock)
	assert.Equal(t, 12, *explicit.Price)
}
