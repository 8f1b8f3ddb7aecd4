package catalogsync_test

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

	"github.com/xiebiao/scholarium/internal/application/catalogsync"
	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/notification"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/mysql"
)

// fakeClient 内存中的远程书目服务
type fakeClient struct {
	mu          sync.Mutex
	collections []catalog.RemoteCollection
	items       map[string][]catalog.RemoteRecord
	failures    map[string]error
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string][]catalog.RemoteRecord), failures: make(map[string]error)}
}

func (c *fakeClient) ListCollections(context.Context) ([]catalog.RemoteCollection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]catalog.RemoteCollection(nil), c.collections...), nil
}

func (c *fakeClient) ListCollectionItems(_ context.Context, key string) ([]catalog.RemoteRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failures[key]; err != nil {
		return nil, err
	}
	return append([]catalog.RemoteRecord(nil), c.items[key]...), nil
}

func (c *fakeClient) FetchAttachmentBlob(context.Context, string) ([]byte, error) {
	return nil, catalog.ErrRemoteNotFound
}

func (c *fakeClient) FetchNoteHTML(context.Context, string) (string, error) {
	return "", catalog.ErrRemoteNotFound
}

func (c *fakeClient) set(key string, records ...catalog.RemoteRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = records
}

type recorder struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recorder) Notify(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recorder) count(kind notification.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

type resolverFunc func(ctx context.Context, itemID uint) (int, error)

func (f resolverFunc) ResolveRequests(ctx context.Context, itemID uint) (int, error) {
	return f(ctx, itemID)
}

type fixture struct {
	ctx       context.Context
	client    *fakeClient
	catalog   catalog.Repository
	items     inventory.Repository
	purchases purchase.Repository
	notes     *recorder
	resolved  []uint
	engine    *catalogsync.Engine
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

	f := &fixture{
		ctx:       context.Background(),
		client:    newFakeClient(),
		catalog:   mysql.NewCatalogRepository(db),
		items:     mysql.NewInventoryRepository(db),
		purchases: mysql.NewPurchaseRepository(db),
		notes:     &recorder{},
	}
	resolver := resolverFunc(func(_ context.Context, itemID uint) (int, error) {
		f.resolved = append(f.resolved, itemID)
		return 1, nil
	})

	opts := catalogsync.Options{
		OwnedTags:            []string{"owned"},
		ExcludedTags:         []string{"lent"},
		AttachmentFormats:    []string{"pdf", "epub", "note"},
		PhysicalItemType:     "purchase",
		PhysicalDefaultPrice: 10,
		DigitalDefaultPrice:  5,
		LockTTL:              time.Minute,
	}
	f.engine = catalogsync.NewEngine(
		f.client, f.catalog, f.items, f.purchases, mysql.NewTxManager(db),
		resolver, f.notes, catalogsync.NewLocalLocker(), opts, discardLogger(),
	)
	return f
}

// collection 创建一个本地集合并登记到远程
func (f *fixture) collection(t *testing.T, key string) *catalog.Collection {
	t.Helper()
	f.client.collections = append(f.client.collections, catalog.RemoteCollection{Key: key, Name: key})
	_, err := f.engine.SyncCollections(f.ctx)
	require.NoError(t, err)
	c, err := f.catalog.FindCollectionByKey(f.ctx, key)
	require.NoError(t, err)
	return c
}

func (f *fixture) physicalItem(t *testing.T, key string) *inventory.Item {
	t.Helper()
	entry, err := f.catalog.FindEntryByKey(f.ctx, key)
	require.NoError(t, err)
	typ, err := f.items.FindTypeBySlug(f.ctx, "purchase")
	require.NoError(t, err)
	item, err := f.items.FindItemByProductAndType(f.ctx, entry.ProductID, typ.ID)
	require.NoError(t, err)
	return item
}

// executedPurchase 直接写入一笔已完成购买
func (f *fixture) executedPurchase(t *testing.T, itemID uint) {
	t.Helper()
	p := purchase.New(1, itemID, 1, false)
	require.NoError(t, f.purchases.Create(f.ctx, p))
	require.NoError(t, f.purchases.MarkExecuted(f.ctx, p.ID, time.Now(), 10))
}

func book(key string, tags ...string) catalog.RemoteRecord {
	return catalog.RemoteRecord{
		Key:      key,
		Type:     "book",
		Title:    "Title " + key,
		Date:     "1912",
		Tags:     tags,
		Creators: []catalog.RemoteCreator{{FirstName: "Ludwig", LastName: "von Mises"}},
	}
}

func pdf(key, parent string) catalog.RemoteRecord {
	return catalog.RemoteRecord{Key: key, Type: catalog.RecordTypeAttachment, ParentKey: parent, Filename: key + ".pdf"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
