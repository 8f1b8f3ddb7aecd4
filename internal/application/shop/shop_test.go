package shop_test

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

	"github.com/xiebiao/scholarium/internal/application/shop"
	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/notification"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/mysql"
)

func intPtr(v int) *int { return &v }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, notification.Notification) error { return nil }

// fakeRemote 记录远程读取次数
type fakeRemote struct {
	mu    sync.Mutex
	blobs map[string][]byte
	notes map[string]string
	calls int
}

func (r *fakeRemote) FetchAttachmentBlob(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if b, ok := r.blobs[key]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("items/%s/file: %w", key, catalog.ErrRemoteNotFound)
}

func (r *fakeRemote) FetchNoteHTML(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if n, ok := r.notes[key]; ok {
		return n, nil
	}
	return "", catalog.ErrRemoteNotFound
}

// memCache 内存缓存
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

type fixture struct {
	ctx       context.Context
	accounts  account.Repository
	items     inventory.Repository
	catalog   catalog.Repository
	purchases purchase.Repository
	ledger    *purchase.Ledger
	remote    *fakeRemote
	cache     *memCache

	item     *shop.ItemUseCase
	cart     *shop.CartUseCase
	download *shop.DownloadUseCase
	history  *shop.ListPurchasesUseCase
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
		catalog:   mysql.NewCatalogRepository(db),
		purchases: mysql.NewPurchaseRepository(db),
		remote:    &fakeRemote{blobs: map[string][]byte{}, notes: map[string]string{}},
		cache:     &memCache{data: map[string][]byte{}},
	}
	cart := purchase.NewCart(f.purchases, f.accounts, f.items, nopNotifier{}, logger)
	f.ledger = purchase.NewLedger(f.purchases, f.accounts, f.items, mysql.NewLendingRepository(db), mysql.NewTxManager(db), nopNotifier{}, logger)

	f.item = shop.NewItemUseCase(f.items, f.catalog, cart)
	f.cart = shop.NewCartUseCase(cart, f.ledger, f.accounts, logger)
	f.download = shop.NewDownloadUseCase(f.items, f.catalog, cart, f.remote, f.cache, logger)
	f.history = shop.NewListPurchasesUseCase(f.purchases, f.items)
	return f
}

func (f *fixture) account(t *testing.T, userID uint, balance int) uint {
	t.Helper()
	a := account.New(userID)
	require.NoError(t, f.accounts.Create(f.ctx, a))
	require.NoError(t, f.accounts.Refill(f.ctx, a.ID, balance))
	return a.ID
}

func (f *fixture) donate(t *testing.T, accountID uint, amount int) {
	t.Helper()
	d := account.NewDonation(accountID, amount, "paypal", time.Now(), 365*24*time.Hour)
	require.NoError(t, f.accounts.CreateDonation(f.ctx, d))
	require.NoError(t, f.accounts.MarkDonationExecuted(f.ctx, d.ID, "payer"))
}

func (f *fixture) balance(t *testing.T, accountID uint) int {
	t.Helper()
	a, err := f.accounts.FindByID(f.ctx, accountID)
	require.NoError(t, err)
	return a.Balance
}

// book 创建条目及其实体书商品
func (f *fixture) book(t *testing.T, key string, price, stock int) (*catalog.Entry, *inventory.Item) {
	t.Helper()
	typ, err := f.items.EnsureType(f.ctx, &inventory.ItemType{
		Slug:                "purchase",
		ShippingRequired:    true,
		AllowRestockRequest: true,
	})
	require.NoError(t, err)

	product := &inventory.Product{Kind: inventory.KindBook, Title: "Title " + key}
	require.NoError(t, f.items.CreateProduct(f.ctx, product))
	entry := &catalog.Entry{ExternalKey: key, Title: product.Title, ProductID: product.ID}
	require.NoError(t, f.catalog.CreateEntry(f.ctx, entry))

	item := inventory.NewItem(*typ, product.ID, intPtr(price), intPtr(stock))
	require.NoError(t, f.items.CreateItem(f.ctx, item))
	return entry, item
}

// pdf 为条目添加附件及其可下载商品
func (f *fixture) pdf(t *testing.T, entry *catalog.Entry, key string, price int) *inventory.Item {
	t.Helper()
	typ, err := f.items.EnsureType(f.ctx, &inventory.ItemType{
		Slug:              "pdf",
		BuyOnce:           true,
		AccessibleAtLevel: intPtr(100),
	})
	require.NoError(t, err)

	att := &catalog.Attachment{ExternalKey: key, Format: catalog.FormatFile, MediaType: "pdf", EntryID: entry.ID}
	require.NoError(t, f.catalog.SaveAttachment(f.ctx, att))

	item := inventory.NewItem(*typ, entry.ProductID, intPtr(price), nil)
	item.AttachmentID = &att.ID
	require.NoError(t, f.items.CreateItem(f.ctx, item))
	return item
}
