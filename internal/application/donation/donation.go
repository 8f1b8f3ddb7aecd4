// Package donation 捐赠与支付回调用例
package donation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xiebiao/scholarium/internal/application/shop"
	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/infrastructure/config"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/metrics"
)

// UseCase 捐赠用例
// 设计说明:
// 1. 发起捐赠只创建待支付记录，生成的PaymentID交给支付网关
// 2. 支付回调成功后在同一事务内标记已执行并充值余额，然后结算购物车
// 3. 重复回调不会重复充值
type UseCase struct {
	accounts account.Repository
	tx       purchase.Transactor
	cart     *shop.CartUseCase
	cfg      config.ShopConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewUseCase 创建捐赠用例
func NewUseCase(
	accounts account.Repository,
	tx purchase.Transactor,
	cart *shop.CartUseCase,
	cfg config.ShopConfig,
	logger *slog.Logger,
) *UseCase {
	metrics.InitMetrics()
	if cfg.DonationPeriodDays <= 0 {
		cfg.DonationPeriodDays = 365
	}
	return &UseCase{
		accounts: accounts,
		tx:       tx,
		cart:     cart,
		cfg:      cfg,
		logger:   logger.With("component", "donation"),
		now:      time.Now,
	}
}

// StartRequest 发起捐赠
type StartRequest struct {
	AccountID uint
	Amount    int
	Method    string
}

// Pending 待支付的捐赠
type Pending struct {
	PaymentID  string    `json:"payment_id"`
	Amount     int       `json:"amount"`
	Expiration time.Time `json:"expiration"`
}

// Start 创建待支付捐赠
func (uc *UseCase) Start(ctx context.Context, req StartRequest) (*Pending, error) {
	if req.Amount <= 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "捐赠金额必须大于0")
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "支付方式不能为空")
	}

	if _, err := uc.accounts.FindByID(ctx, req.AccountID); err != nil {
		return nil, err
	}

	d := account.NewDonation(req.AccountID, req.Amount, method, uc.now(), uc.cfg.DonationPeriod())
	if err := uc.accounts.CreateDonation(ctx, d); err != nil {
		return nil, err
	}

	metrics.IncCounterVec(metrics.DonationsTotal, map[string]string{"result": "pending"})
	uc.logger.InfoContext(ctx, "捐赠已创建",
		"account_id", req.AccountID, "amount", req.Amount, "method", method, "payment_id", d.PaymentID)
	return &Pending{PaymentID: d.PaymentID, Amount: d.Amount, Expiration: d.Expiration}, nil
}

// Callback 支付网关回调
type Callback struct {
	PaymentID      string
	Succeeded      bool
	PayerReference string
}

// Outcome 回调处理结果
type Outcome struct {
	Executed  bool                `json:"executed"`
	Duplicate bool                `json:"duplicate"` // 捐赠此前已执行
	Cart      *shop.ExecuteResult `json:"cart,omitempty"`
}

// Confirm 处理支付回调
// 支付失败时删除待支付捐赠；成功时充值并结算购物车，余额不足以结算时购物车保持不变
func (uc *UseCase) Confirm(ctx context.Context, cb Callback) (*Outcome, error) {
	d, err := uc.accounts.FindDonationByPaymentID(ctx, cb.PaymentID)
	if err != nil {
		return nil, err
	}
	if d.Executed {
		return &Outcome{Duplicate: true}, nil
	}

	if !cb.Succeeded {
		if err := uc.accounts.DeleteDonation(ctx, d.ID); err != nil && !errors.Is(err, account.ErrDonationNotFound) {
			return nil, err
		}
		metrics.IncCounterVec(metrics.DonationsTotal, map[string]string{"result": "failed"})
		uc.logger.InfoContext(ctx, "支付失败，捐赠已取消", "payment_id", cb.PaymentID, "account_id", d.AccountID)
		return &Outcome{}, nil
	}

	err = uc.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := uc.accounts.MarkDonationExecuted(ctx, d.ID, cb.PayerReference); err != nil {
			return err
		}
		return uc.accounts.Refill(ctx, d.AccountID, d.Amount)
	})
	if errors.Is(err, account.ErrDonationExecuted) {
		return &Outcome{Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	metrics.IncCounterVec(metrics.DonationsTotal, map[string]string{"result": "executed"})
	uc.logger.InfoContext(ctx, "捐赠已执行",
		"payment_id", cb.PaymentID, "account_id", d.AccountID, "amount", d.Amount)

	outcome := &Outcome{Executed: true}
	result, err := uc.cart.Execute(ctx, d.AccountID)
	switch {
	case errors.Is(err, account.ErrInsufficientBalance):
		uc.logger.InfoContext(ctx, "余额不足，购物车未结算", "account_id", d.AccountID, "total", result.Total)
	case err != nil:
		// 捐赠已入账，购物车结算失败不影响回调结果
		uc.logger.ErrorContext(ctx, "结算购物车失败", "account_id", d.AccountID, "error", err)
	default:
		outcome.Cart = result
	}
	return outcome, nil
}

// Summary 账户余额与捐赠等级
type Summary struct {
	Balance        int            `json:"balance"`
	DonationAmount int            `json:"donation_amount"`
	Level          *account.Level `json:"level"`
	Expiring       bool           `json:"expiring"`
	Expiration     *time.Time     `json:"expiration"`
}

// Summary 查询账户当前的捐赠等级
func (uc *UseCase) Summary(ctx context.Context, accountID uint) (*Summary, error) {
	acct, err := uc.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	levels, err := uc.accounts.ListLevels(ctx)
	if err != nil {
		return nil, err
	}

	today := uc.now()
	amount := acct.DonationAmount(today)
	s := &Summary{
		Balance:        acct.Balance,
		DonationAmount: amount,
		Level:          account.LevelFor(levels, amount),
		Expiring:       acct.Expiring(today, uc.cfg.ExpiringDays),
	}
	if last := acct.LastDonation(); last != nil {
		exp := last.Expiration
		s.Expiration = &exp
	}
	return s, nil
}

// Levels 全部捐赠等级，按金额升序
func (uc *UseCase) Levels(ctx context.Context) ([]account.Level, error) {
	return uc.accounts.ListLevels(ctx)
}
