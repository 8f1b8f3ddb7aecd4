package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
)

// Viewers 根据账户ID构造商品状态计算所需的视角
type Viewers struct {
	accounts  account.Repository
	purchases Repository
}

func NewViewers(accounts account.Repository, purchases Repository) *Viewers {
	return &Viewers{accounts: accounts, purchases: purchases}
}

// For accountID为0表示未登录
func (v *Viewers) For(ctx context.Context, itemID, accountID uint, now time.Time) (inventory.Viewer, error) {
	if accountID == 0 {
		return inventory.Viewer{}, nil
	}

	acct, err := v.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return inventory.Viewer{}, nil
		}
		return inventory.Viewer{}, err
	}

	purchased, err := v.purchases.HasExecuted(ctx, accountID, itemID)
	if err != nil {
		return inventory.Viewer{}, err
	}

	return inventory.Viewer{
		Authenticated:  true,
		DonationAmount: acct.DonationAmount(now),
		Purchased:      purchased,
	}, nil
}
