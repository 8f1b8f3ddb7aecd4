package purchase

import (
	"time"
)

// Purchase 购买记录
// DDD设计说明:
// 1. 加入购物车时创建（Executed=false），由Ledger执行且只执行一次
// 2. Total在执行时按当时的有效价格写入，撤销时按Total退款
// 3. Free=true表示赠予，不扣余额
type Purchase struct {
	ID        uint
	AccountID uint
	ItemID    uint
	Quantity  int
	Executed  bool
	Date      *time.Time
	Free      bool
	Total     int
	CreatedAt time.Time
}

// New 创建购物车行
func New(accountID, itemID uint, quantity int, free bool) *Purchase {
	if quantity <= 0 {
		quantity = 1
	}
	return &Purchase{
		AccountID: accountID,
		ItemID:    itemID,
		Quantity:  quantity,
		Free:      free,
		CreatedAt: time.Now(),
	}
}

// InCart 未执行且非赠予
func (p *Purchase) InCart() bool {
	return !p.Executed && !p.Free
}
