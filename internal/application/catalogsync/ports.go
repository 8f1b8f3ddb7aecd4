package catalogsync

import (
	"context"
	"sync"
	"time"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// CatalogClient 远程书目服务（只读）
// 单条记录不存在时返回catalog.ErrRemoteNotFound
type CatalogClient interface {
	ListCollections(ctx context.Context) ([]catalog.RemoteCollection, error)
	ListCollectionItems(ctx context.Context, collectionKey string) ([]catalog.RemoteRecord, error)
	FetchAttachmentBlob(ctx context.Context, key string) ([]byte, error)
	FetchNoteHTML(ctx context.Context, key string) (string, error)
}

// Locker 跨进程互斥，同一范围的同步同时只有一个在执行
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}

// RequestResolver 商品恢复可售或定价后处理到货/定价申请
type RequestResolver interface {
	ResolveRequests(ctx context.Context, itemID uint) (int, error)
}

// ErrSyncInProgress 同一范围的同步正在执行
var ErrSyncInProgress = apperrors.New(apperrors.ErrCodeSyncInProgress, "同步任务正在执行")

// LocalLocker 进程内锁，未配置Redis时使用
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire ttl在进程内无意义，锁随release释放
func (l *LocalLocker) Acquire(_ context.Context, name string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[name]; ok {
		return nil, ErrSyncInProgress
	}
	l.held[name] = struct{}{}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
		return nil
	}, nil
}
