package catalog

import (
	"context"
)

// Repository 书目仓储接口
// 只有同步引擎会写入集合、条目和附件
type Repository interface {
	// 集合
	ListCollections(ctx context.Context) ([]*Collection, error)
	FindCollectionByKey(ctx context.Context, key string) (*Collection, error)
	// SaveCollection 按ExternalKey插入或更新，返回是否发生变更
	SaveCollection(ctx context.Context, c *Collection) (changed bool, err error)
	// DeleteCollection 集合仍有条目或子集合时返回ErrCollectionInUse
	DeleteCollection(ctx context.Context, id uint) error

	// 条目
	FindEntryByKey(ctx context.Context, key string) (*Entry, error)
	FindEntryByProduct(ctx context.Context, productID uint) (*Entry, error)
	CreateEntry(ctx context.Context, e *Entry) error
	UpdateEntry(ctx context.Context, e *Entry) error
	DeleteEntry(ctx context.Context, id uint) error
	ListEntriesInCollection(ctx context.Context, collectionID uint) ([]*Entry, error)

	// ReplaceAuthors 用给定作者名替换条目的作者集合（不存在的作者自动创建）
	ReplaceAuthors(ctx context.Context, entryID uint, names []string) error
	// DeleteOrphanAuthors 删除没有条目引用的作者
	DeleteOrphanAuthors(ctx context.Context) (int64, error)

	// 集合成员关系
	AddToCollection(ctx context.Context, entryID, collectionID uint) error
	RemoveFromCollection(ctx context.Context, entryID, collectionID uint) error
	CountCollections(ctx context.Context, entryID uint) (int64, error)

	// 附件
	FindAttachmentByKey(ctx context.Context, key string) (*Attachment, error)
	SaveAttachment(ctx context.Context, a *Attachment) error
	ListAttachments(ctx context.Context, entryID uint) ([]*Attachment, error)
	DeleteAttachment(ctx context.Context, id uint) error
}
