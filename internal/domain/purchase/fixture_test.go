package purchase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/lending"
	"github.com/xiebiao/scholarium/internal/domain/notification"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/mysql"
)

func intPtr(v int) *int { return &v }

// recorder 记录投递的通知
type recorder struct {
	mu   sync.Mutex
	sent []notification.Notification
	err  error
}

func (r *recorder) Notify(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recorder) kinds() []notification.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]notification.Kind, len(r.sent))
	for i, n := range r.sent {
		kinds[i] = n.Kind
	}
	return kinds
}

type fixture struct {
	ctx       context.Context
	accounts  account.Repository
	items     inventory.Repository
	purchases purchase.Repository
	lendings  lending.Repository
	ledger    *purchase.Ledger
	cart      *purchase.Cart
	notes     *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := mysql.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		ctx:       context.Background(),
		accounts:  mysql.NewAccountRepository(db),
		items:     mysql.NewInventoryRepository(db),
		purchases: mysql.NewPurchaseRepository(db),
		lendings:  mysql.NewLendingRepository(db),
		notes:     &recorder{},
	}
	f.ledger = purchase.NewLedger(f.purchases, f.accounts, f.items, f.lendings, mysql.NewTxManager(db), f.notes, logger)
	f.cart = purchase.NewCart(f.purchases, f.accounts, f.items, f.notes, logger)
	return f
}

// account 创建账户并充值
func (f *fixture) account(t *testing.T, userID uint, balance int) *account.Account {
	t.Helper()
	a := account.New(userID)
	require.NoError(t, f.accounts.Create(f.ctx, a))
	require.NoError(t, f.accounts.Refill(f.ctx, a.ID, balance))
	return a
}

// donate 为账户记录一笔已执行的捐赠
func (f *fixture) donate(t *testing.T, accountID uint, amount int) {
	t.Helper()
	d := account.NewDonation(accountID, amount, "paypal", time.Now(), 365*24*time.Hour)
	require.NoError(t, f.accounts.CreateDonation(f.ctx, d))
	require.NoError(t, f.accounts.MarkDonationExecuted(f.ctx, d.ID, "payer"))
}

// item 创建指定类型的商品，类型按Slug复用
func (f *fixture) item(t *testing.T, typ inventory.ItemType, stock *int) *inventory.Item {
	t.Helper()
	saved, err := f.items.EnsureType(f.ctx, &typ)
	require.NoError(t, err)

	product := &inventory.Product{Kind: inventory.KindBook, Title: "Capital"}
	require.NoError(t, f.items.CreateProduct(f.ctx, product))

	item := inventory.NewItem(*saved, product.ID, nil, stock)
	require.NoError(t, f.items.CreateItem(f.ctx, item))
	return item
}

func (f *fixture) balance(t *testing.T, accountID uint) int {
	t.Helper()
	a, err := f.accounts.FindByID(f.ctx, accountID)
	require.NoError(t, err)
	return a.Balance
}

func (f *fixture) stock(t *testing.T, itemID uint) *int {
	t.Helper()
	item, err := f.items.FindItem(f.ctx, itemID)
	require.NoError(t, err)
	return item.Stock
}

func (f *fixture) addToCart(t *testing.T, itemID, accountID uint) *purchase.Purchase {
	t.Helper()
	ok, err := f.cart.AddToCart(f.ctx, itemID, accountID)
	require.NoError(t, err)
	require.True(t, ok)
	line, err := f.purchases.FindCartLine(f.ctx, accountID, itemID)
	require.NoError(t, err)
	return line
}

func physical(price int) inventory.ItemType {
	return inventory.ItemType{Slug: "purchase", DefaultPrice: intPtr(price), ShippingRequired: true}
}

// lendable 出借类型，库存为副本数
func lendable(price int) inventory.ItemType {
	return inventory.ItemType{Slug: "lending", DefaultPrice: intPtr(price), Lendable: true, ShippingRequired: true, AllowRestockRequest: true}
}
