package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/lending"
	"github.com/xiebiao/scholarium/internal/domain/notification"
	"github.com/xiebiao/scholarium/pkg/metrics"
	"github.com/xiebiao/scholarium/pkg/saga"
	"github.com/xiebiao/scholarium/pkg/tracing"
)

const defaultSagaTimeout = 10 * time.Second

// Ledger 购买账本：执行与撤销购买
// 设计说明:
// 1. 执行顺序固定为：扣余额 → 扣库存（失败则退款）→ 标记已执行
// 2. 每一步都是单行条件UPDATE，由Saga负责失败时的逆序补偿
// 3. 执行前重新计算商品状态，不信任加入购物车时的判断
// 4. 出借类型不扣库存，第二步改为登记出借（失败则退款），撤销时删除出借
type Ledger struct {
	purchases Repository
	accounts  account.Repository
	items     inventory.Repository
	lendings  lending.Repository
	tx        Transactor
	viewers   *Viewers
	notifier  notification.Notifier
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewLedger 创建购买账本
func NewLedger(
	purchases Repository,
	accounts account.Repository,
	items inventory.Repository,
	lendings lending.Repository,
	tx Transactor,
	notifier notification.Notifier,
	logger *slog.Logger,
) *Ledger {
	metrics.InitMetrics()
	return &Ledger{
		purchases: purchases,
		accounts:  accounts,
		items:     items,
		lendings:  lendings,
		tx:        tx,
		viewers:   NewViewers(accounts, purchases),
		notifier:  notifier,
		logger:    logger.With("component", "ledger"),
		timeout:   defaultSagaTimeout,
		now:       time.Now,
	}
}

// Execute 执行购买，返回是否成功
// 失败时不会留下任何部分修改：余额不足、库存不足、商品不可购买都以错误返回
func (l *Ledger) Execute(ctx context.Context, purchaseID uint) (ok bool, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "purchase", "Ledger.Execute")
	defer func() {
		tracing.EndSpan(span, err)
		metrics.IncCounterVec(metrics.PurchasesTotal, map[string]string{"result": executeResult(err)})
		metrics.ObserveHistogram(metrics.PurchaseDuration, time.Since(start).Seconds())
	}()

	p, err := l.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return false, err
	}
	if p.Executed {
		return false, ErrAlreadyExecuted
	}

	item, err := l.items.FindItem(ctx, p.ItemID)
	if err != nil {
		return false, err
	}

	now := l.now()
	viewer, err := l.viewers.For(ctx, item.ID, p.AccountID, now)
	if err != nil {
		return false, err
	}

	if status := inventory.Classify(item, viewer, now); status != inventory.StatusPurchasable {
		l.logger.InfoContext(ctx, "商品不可购买",
			"purchase_id", p.ID, "item_id", item.ID, "status", status)
		return false, ErrItemUnavailable
	}
	// 一次购买对应一次出借
	if item.Type.Lendable && p.Quantity != 1 {
		return false, inventory.ErrInvalidQuantity
	}

	total := 0
	if !p.Free {
		// 可购买状态保证价格已设置
		total = *item.EffectivePrice(viewer.DonationAmount) * p.Quantity
	}

	s := saga.NewSaga(l.timeout).WithLogger(l.logger)
	s.AddStep("spend",
		func(ctx context.Context) error {
			if total == 0 {
				return nil
			}
			return l.accounts.Spend(ctx, p.AccountID, total)
		},
		func(ctx context.Context) error {
			if total == 0 {
				return nil
			}
			return l.accounts.Refill(ctx, p.AccountID, total)
		},
	)
	if item.Type.Lendable {
		s.AddStep("lend",
			func(ctx context.Context) error {
				return l.lendings.Open(ctx, lending.New(p.ID, p.AccountID, item.ID))
			},
			func(ctx context.Context) error {
				return l.lendings.DeleteByPurchase(ctx, p.ID)
			},
		)
	} else {
		s.AddStep("sell",
			func(ctx context.Context) error {
				return l.items.Sell(ctx, item.ID, p.Quantity)
			},
			func(ctx context.Context) error {
				return l.items.Restock(ctx, item.ID, p.Quantity)
			},
		)
	}
	s.AddStep("finalize",
		func(ctx context.Context) error {
			return l.purchases.MarkExecuted(ctx, p.ID, now, total)
		},
		nil,
	)

	if err := s.Execute(ctx); err != nil {
		if s.Compensated() > 0 {
			metrics.IncCounter(metrics.SagaCompensationsTotal)
		}
		l.logger.WarnContext(ctx, "购买执行失败",
			"purchase_id", p.ID, "account_id", p.AccountID, "item_id", item.ID,
			"total", total, "error", err)
		return false, ledgerError(err)
	}

	l.logger.InfoContext(ctx, "购买已执行",
		"purchase_id", p.ID, "account_id", p.AccountID, "item_id", item.ID,
		"quantity", p.Quantity, "total", total, "free", p.Free)

	l.notifyExecuted(ctx, p, item)
	return true, nil
}

// Revert 撤销已执行的购买：退款、回补库存（出借类型删除出借）并删除记录
func (l *Ledger) Revert(ctx context.Context, purchaseID uint) error {
	p, err := l.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if !p.Executed {
		return ErrNotExecuted
	}
	item, err := l.items.FindItem(ctx, p.ItemID)
	if err != nil {
		return err
	}

	err = l.tx.Transaction(ctx, func(ctx context.Context) error {
		if p.Total > 0 {
			if err := l.accounts.Refill(ctx, p.AccountID, p.Total); err != nil {
				return err
			}
		}
		if item.Type.Lendable {
			if err := l.lendings.DeleteByPurchase(ctx, p.ID); err != nil {
				return err
			}
		} else if err := l.items.Restock(ctx, p.ItemID, p.Quantity); err != nil {
			return err
		}
		return l.purchases.Delete(ctx, p.ID)
	})
	if err != nil {
		return err
	}

	metrics.IncCounter(metrics.PurchasesRevertedTotal)
	l.logger.InfoContext(ctx, "购买已撤销",
		"purchase_id", p.ID, "account_id", p.AccountID, "item_id", p.ItemID, "refund", p.Total)
	return nil
}

// GrantFree 赠予商品：创建免费购买并立即执行
// 商品仍须处于可购买状态，只是不扣余额
func (l *Ledger) GrantFree(ctx context.Context, itemID, accountID uint) (*Purchase, error) {
	p := New(accountID, itemID, 1, true)
	if err := l.purchases.Create(ctx, p); err != nil {
		return nil, err
	}

	if _, err := l.Execute(ctx, p.ID); err != nil {
		if delErr := l.purchases.Delete(ctx, p.ID); delErr != nil {
			l.logger.ErrorContext(ctx, "清理赠予记录失败", "purchase_id", p.ID, "error", delErr)
		}
		return nil, err
	}

	return l.purchases.FindByID(ctx, p.ID)
}

func (l *Ledger) notifyExecuted(ctx context.Context, p *Purchase, item *inventory.Item) {
	subject := subjectOf(item)

	if item.Type.ShippingRequired {
		l.notify(ctx, notification.Notification{
			Kind:       notification.KindShippingRequired,
			AccountID:  p.AccountID,
			ItemID:     item.ID,
			PurchaseID: p.ID,
			Subject:    subject,
			Detail:     fmt.Sprintf("数量: %d", p.Quantity),
		})
	}
	if item.Type.NotifyStaffOnPurchase {
		l.notify(ctx, notification.Notification{
			Kind:       notification.KindStaffPurchase,
			AccountID:  p.AccountID,
			ItemID:     item.ID,
			PurchaseID: p.ID,
			Subject:    subject,
		})
	}
}

func (l *Ledger) notify(ctx context.Context, n notification.Notification) {
	n.CreatedAt = l.now()
	if err := l.notifier.Notify(ctx, n); err != nil {
		l.logger.ErrorContext(ctx, "通知投递失败", "kind", n.Kind, "error", err)
	}
}

// ledgerError 从Saga错误中取出对调用方有意义的领域错误
// 补偿失败时保留完整错误链
func ledgerError(err error) error {
	var cerr *saga.CompensationError
	if errors.As(err, &cerr) {
		return err
	}
	for _, target := range []error{
		account.ErrInsufficientBalance,
		inventory.ErrInsufficientStock,
		lending.ErrDuplicateLending,
		ErrAlreadyExecuted,
	} {
		if errors.Is(err, target) {
			return target
		}
	}
	return err
}

func executeResult(err error) string {
	switch {
	case err == nil:
		return "executed"
	case errors.Is(err, account.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrItemUnavailable):
		return "unavailable"
	case errors.Is(err, ErrAlreadyExecuted):
		return "already_executed"
	default:
		return "error"
	}
}
