package account

import (
	"time"

	"github.com/google/uuid"
)

// Account 账户实体（聚合根）
// DDD设计说明:
// 1. 余额只能通过Spend/Refill修改，持久化层用条件UPDATE保证余额不为负
// 2. 捐赠记录决定当前捐赠等级，等级影响折扣、购买和访问权限
// 3. 注册时显式调用New创建，不依赖隐式钩子
type Account struct {
	ID        uint
	UserID    uint
	Balance   int
	Donations []Donation // 已执行的捐赠
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New 创建新账户(工厂方法)
func New(userID uint) *Account {
	now := time.Now()
	return &Account{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanSpend 判断余额是否足够
func (a *Account) CanSpend(amount int) bool {
	return amount >= 0 && a.Balance-amount >= 0
}

// ActiveDonation 返回金额最高的有效捐赠（过期日不早于今天）
func (a *Account) ActiveDonation(today time.Time) *Donation {
	var active *Donation
	for i := range a.Donations {
		d := &a.Donations[i]
		if !d.Executed || d.ExpiredAt(today) {
			continue
		}
		if active == nil || d.Amount > active.Amount {
			active = d
		}
	}
	return active
}

// DonationAmount 当前有效捐赠金额，无有效捐赠时为0
func (a *Account) DonationAmount(today time.Time) int {
	if d := a.ActiveDonation(today); d != nil {
		return d.Amount
	}
	return 0
}

// LastDonation 最近一次已执行的捐赠
func (a *Account) LastDonation() *Donation {
	var last *Donation
	for i := range a.Donations {
		d := &a.Donations[i]
		if !d.Executed {
			continue
		}
		if last == nil || d.Date.After(last.Date) {
			last = d
		}
	}
	return last
}

// Expiring 最近一次捐赠将在days天内过期
func (a *Account) Expiring(today time.Time, days int) bool {
	if a.ActiveDonation(today) == nil {
		return false
	}
	last := a.LastDonation()
	remaining := int(dateOf(last.Expiration).Sub(dateOf(today)).Hours() / 24)
	return remaining < days
}

// Donation 捐赠记录
// 说明：PaymentID关联支付网关回调，回调成功后才执行（Executed=true）
type Donation struct {
	ID             uint
	AccountID      uint
	Amount         int
	Date           time.Time
	Expiration     time.Time
	PaymentID      string
	PaymentMethod  string
	PayerReference string
	Executed       bool
}

// NewDonation 创建待支付的捐赠
func NewDonation(accountID uint, amount int, method string, today time.Time, period time.Duration) *Donation {
	return &Donation{
		AccountID:     accountID,
		Amount:        amount,
		Date:          dateOf(today),
		Expiration:    dateOf(today.Add(period)),
		PaymentID:     uuid.NewString(),
		PaymentMethod: method,
	}
}

// ExpiredAt 过期日早于today即视为过期
func (d *Donation) ExpiredAt(today time.Time) bool {
	return dateOf(d.Expiration).Before(dateOf(today))
}

// Level 捐赠等级
type Level struct {
	ID     uint
	Amount int
	Title  string
}

// LevelFor 返回金额可达到的最高等级，没有则返回nil
func LevelFor(levels []Level, amount int) *Level {
	var best *Level
	for i := range levels {
		l := &levels[i]
		if l.Amount > amount {
			continue
		}
		if best == nil || l.Amount > best.Amount {
			best = l
		}
	}
	return best
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
