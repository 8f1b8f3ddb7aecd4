package inventory

import (
	"time"
)

// ProductKind 可售商品种类
// 用显式枚举代替运行时反查一对一关系
type ProductKind string

const (
	KindBook    ProductKind = "book"
	KindEvent   ProductKind = "event"
	KindStudy   ProductKind = "study"
	KindBooklet ProductKind = "booklet"
)

// Valid 是否为已知种类
func (k ProductKind) Valid() bool {
	switch k {
	case KindBook, KindEvent, KindStudy, KindBooklet:
		return true
	}
	return false
}

// Product 库存商品的拥有者
// Date对活动来说是举办日期，ItemType.ExpiresWithProduct时用于判断过期
type Product struct {
	ID    uint
	Kind  ProductKind
	Title string
	Date  *time.Time
}

// ItemType 商品类型配置，被同类商品共享（如所有PDF）
type ItemType struct {
	ID                           uint
	Slug                         string
	Title                        string
	ShippingRequired             bool
	AllowPriceRequest            bool
	AllowRestockRequest          bool
	DefaultPrice                 *int
	DefaultStock                 *int
	PurchasableAtLevel           *int
	AccessibleAtLevel            *int
	BuyOnce                      bool
	ExpiresWithProduct           bool
	AllowUnauthenticatedPurchase bool
	NotifyStaffOnPurchase        bool
	// Lendable 出借类型：库存是馆藏副本数，购买即登记一次出借而不扣库存
	Lendable bool
}

// AllowsRequests 是否允许定价或补货申请
func (t *ItemType) AllowsRequests() bool {
	return t.AllowPriceRequest || t.AllowRestockRequest
}

// Discount 折扣档位：捐赠金额达到LevelAmount时享受Percent折扣
type Discount struct {
	LevelAmount int
	Percent     int
}

// Item 库存商品
// 设计说明:
// 1. Price为nil时使用类型默认价格，两者都为nil表示价格待询
// 2. Stock为nil表示不限库存
// 3. SyncedStock记录上次同步时的远程库存，用于增量调整
// 4. ActiveLendings只对出借类型有意义，由仓储加载
type Item struct {
	ID           uint
	TypeID       uint
	Type         ItemType
	ProductID    uint
	Product      Product
	AttachmentID *uint
	Price        *int
	Stock        *int
	SyncedStock  *int
	ExpiresOn    *time.Time
	Discounts    []Discount
	CreatedAt    time.Time
	UpdatedAt    time.Time

	ActiveLendings int
}

// NewItem 创建商品，未指定库存时使用类型默认库存
func NewItem(t ItemType, productID uint, price, stock *int) *Item {
	if stock == nil && t.DefaultStock != nil {
		s := *t.DefaultStock
		stock = &s
	}
	return &Item{
		TypeID:      t.ID,
		Type:        t,
		ProductID:   productID,
		Price:       price,
		Stock:       stock,
		SyncedStock: copyInt(stock),
	}
}

// BasePrice 覆盖价格或类型默认价格
func (i *Item) BasePrice() *int {
	if i.Price != nil {
		return i.Price
	}
	return i.Type.DefaultPrice
}

// EffectivePrice 按捐赠金额应用最优折扣后的价格（向下取整）
// 多个档位满足时取折扣最大者，而不是门槛最高者
func (i *Item) EffectivePrice(donationAmount int) *int {
	base := i.BasePrice()
	if base == nil {
		return nil
	}
	best := 0
	for _, d := range i.Discounts {
		if donationAmount >= d.LevelAmount && d.Percent > best {
			best = d.Percent
		}
	}
	if best > 100 {
		best = 100
	}
	price := *base * (100 - best) / 100
	return &price
}

// Expired 显式过期日已过，或随商品日期过期
func (i *Item) Expired(now time.Time) bool {
	if i.ExpiresOn != nil && now.After(*i.ExpiresOn) {
		return true
	}
	if i.Type.ExpiresWithProduct && i.Product.Date != nil && now.After(*i.Product.Date) {
		return true
	}
	return false
}

// Available 当前可售数量，nil表示不限
// 出借类型为副本数减去未归还的出借
func (i *Item) Available() *int {
	if i.Stock == nil {
		return nil
	}
	n := *i.Stock
	if i.Type.Lendable {
		n -= i.ActiveLendings
	}
	return &n
}

// SoldOut 有限库存且已售罄（出借类型即副本全部借出）
func (i *Item) SoldOut() bool {
	n := i.Available()
	return n != nil && *n <= 0
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
