// Package lending 出借：出借类型商品的每次已执行购买对应一次出借
package lending

import (
	"time"
)

// Lending 一次出借
// 设计说明:
// 1. 与购买一对一，购买撤销时出借一并删除
// 2. Returned为nil表示未归还，未归还的出借占用一个副本
// 3. Shipped/Charged只是管理员记录的时间点，不影响可借数量
type Lending struct {
	ID         uint
	PurchaseID uint
	AccountID  uint
	ItemID     uint
	Shipped    *time.Time
	Returned   *time.Time
	Charged    *time.Time
	CreatedAt  time.Time
}

// New 为已执行的购买创建出借
func New(purchaseID, accountID, itemID uint) *Lending {
	return &Lending{PurchaseID: purchaseID, AccountID: accountID, ItemID: itemID}
}

// Active 未归还
func (l *Lending) Active() bool {
	return l.Returned == nil
}

// Outstanding 已寄出但尚未归还，即读者手里的书
func (l *Lending) Outstanding() bool {
	return l.Shipped != nil && l.Returned == nil
}
