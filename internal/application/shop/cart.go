package shop

import (
	"context"
	"log/slog"

	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// CartUseCase 购物车用例
// 设计说明:
// 1. 加入购物车前重新计算商品状态，只有Purchasable才会加入
// 2. 结算时购物车总价超过余额则不执行任何一行
// 3. 每行单独由Ledger执行，某行失败不影响其他行
type CartUseCase struct {
	cart     *purchase.Cart
	ledger   *purchase.Ledger
	accounts account.Repository
	logger   *slog.Logger
}

// NewCartUseCase 创建购物车用例
func NewCartUseCase(cart *purchase.Cart, ledger *purchase.Ledger, accounts account.Repository, logger *slog.Logger) *CartUseCase {
	return &CartUseCase{
		cart:     cart,
		ledger:   ledger,
		accounts: accounts,
		logger:   logger.With("component", "shop.cart"),
	}
}

// Add 加入购物车，返回是否加入
func (uc *CartUseCase) Add(ctx context.Context, itemID, accountID uint) (bool, error) {
	return uc.cart.AddToCart(ctx, itemID, accountID)
}

// Remove 删除购物车行
func (uc *CartUseCase) Remove(ctx context.Context, purchaseID, accountID uint) error {
	return uc.cart.RemoveFromCart(ctx, purchaseID, accountID)
}

// LineView 购物车行
type LineView struct {
	PurchaseID uint   `json:"purchase_id"`
	ItemID     uint   `json:"item_id"`
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int    `json:"unit_price"`
	Total      int    `json:"total"`
}

// CartView 购物车及余额
type CartView struct {
	Lines   []LineView `json:"lines"`
	Total   int        `json:"total"`
	Balance int        `json:"balance"`
}

// View 查看购物车；先清理已不可购买的行
func (uc *CartUseCase) View(ctx context.Context, accountID uint) (*CartView, error) {
	acct, err := uc.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if n, err := uc.cart.CleanCart(ctx, accountID); err != nil {
		return nil, err
	} else if n > 0 {
		uc.logger.InfoContext(ctx, "已清理购物车", "account_id", accountID, "removed", n)
	}

	lines, err := uc.cart.Lines(ctx, accountID)
	if err != nil {
		return nil, err
	}

	view := &CartView{Lines: make([]LineView, 0, len(lines)), Balance: acct.Balance}
	for _, l := range lines {
		view.Lines = append(view.Lines, LineView{
			PurchaseID: l.Purchase.ID,
			ItemID:     l.Item.ID,
			Title:      l.Item.Product.Title,
			Quantity:   l.Purchase.Quantity,
			UnitPrice:  l.UnitPrice,
			Total:      l.Total(),
		})
		view.Total += l.Total()
	}
	return view, nil
}

// LineFailure 未能执行的购物车行
type LineFailure struct {
	PurchaseID uint   `json:"purchase_id"`
	Reason     string `json:"reason"`
}

// ExecuteResult 结算结果
type ExecuteResult struct {
	Executed []uint        `json:"executed"`
	Failed   []LineFailure `json:"failed,omitempty"`
	Total    int           `json:"total"`   // 结算前的购物车总价
	Balance  int           `json:"balance"` // 结算后的余额
}

// Execute 结算购物车
// 总价超过余额时返回account.ErrInsufficientBalance且不执行任何一行
func (uc *CartUseCase) Execute(ctx context.Context, accountID uint) (*ExecuteResult, error) {
	acct, err := uc.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	lines, err := uc.cart.Lines(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := &ExecuteResult{Executed: []uint{}, Balance: acct.Balance}
	for _, l := range lines {
		result.Total += l.Total()
	}
	if len(lines) == 0 {
		return result, nil
	}
	if !acct.CanSpend(result.Total) {
		return result, account.ErrInsufficientBalance
	}

	for _, l := range lines {
		if _, err := uc.ledger.Execute(ctx, l.Purchase.ID); err != nil {
			uc.logger.WarnContext(ctx, "购物车行执行失败",
				"account_id", accountID, "purchase_id", l.Purchase.ID, "error", err)
			result.Failed = append(result.Failed, LineFailure{PurchaseID: l.Purchase.ID, Reason: reason(err)})
			continue
		}
		result.Executed = append(result.Executed, l.Purchase.ID)
	}

	if acct, err = uc.accounts.FindByID(ctx, accountID); err != nil {
		return result, err
	}
	result.Balance = acct.Balance

	uc.logger.InfoContext(ctx, "购物车已结算",
		"account_id", accountID, "executed", len(result.Executed), "failed", len(result.Failed), "total", result.Total)
	return result, nil
}

// reason 用户可见的失败原因
func reason(err error) string {
	return apperrors.GetAppError(err).Message
}
