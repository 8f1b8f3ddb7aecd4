package shop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/pkg/metrics"
)

// DownloadUseCase 下载商品附件
// 设计说明:
// 1. 只有IsAccessible的账户可以下载（已购买或捐赠等级达到访问门槛）
// 2. 附件内容从远程书目服务读取，按附件外部键缓存
type DownloadUseCase struct {
	items   inventory.Repository
	catalog catalog.Repository
	cart    *purchase.Cart
	remote  RemoteBlobs
	cache   BlobCache
	logger  *slog.Logger
}

// NewDownloadUseCase 创建下载用例；cache为nil时不缓存
func NewDownloadUseCase(
	items inventory.Repository,
	catalogRepo catalog.Repository,
	cart *purchase.Cart,
	remote RemoteBlobs,
	cache BlobCache,
	logger *slog.Logger,
) *DownloadUseCase {
	metrics.InitMetrics()
	if cache == nil {
		cache = NopCache{}
	}
	return &DownloadUseCase{
		items:   items,
		catalog: catalogRepo,
		cart:    cart,
		remote:  remote,
		cache:   cache,
		logger:  logger.With("component", "shop.download"),
	}
}

// File 下载内容
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Execute 下载商品的第index个附件（从0开始）
func (uc *DownloadUseCase) Execute(ctx context.Context, itemID, accountID uint, index int) (*File, error) {
	item, err := uc.items.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	_, viewer, err := uc.cart.Status(ctx, item, accountID)
	if err != nil {
		return nil, err
	}
	if !inventory.IsAccessible(item, viewer) {
		metrics.IncCounterVec(metrics.DownloadsTotal, map[string]string{"source": "denied"})
		return nil, purchase.ErrNotAccessible
	}

	attachments, err := downloadable(ctx, uc.catalog, item)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(attachments) {
		return nil, catalog.ErrAttachmentNotFound
	}
	att := attachments[index]

	data, err := uc.content(ctx, att)
	if err != nil {
		return nil, err
	}

	uc.logger.InfoContext(ctx, "附件已下载",
		"account_id", accountID, "item_id", itemID, "attachment", att.ExternalKey, "bytes", len(data))
	return &File{
		Filename:    filename(item, att),
		ContentType: contentType(att),
		Data:        data,
	}, nil
}

// content 先查缓存，未命中时从远程读取并写回缓存
func (uc *DownloadUseCase) content(ctx context.Context, att *catalog.Attachment) ([]byte, error) {
	data, ok, err := uc.cache.Get(ctx, att.ExternalKey)
	if err != nil {
		uc.logger.WarnContext(ctx, "读取附件缓存失败", "attachment", att.ExternalKey, "error", err)
	}
	if ok {
		metrics.IncCounterVec(metrics.DownloadsTotal, map[string]string{"source": "cache"})
		return data, nil
	}

	if att.Format == catalog.FormatNote {
		html, err := uc.remote.FetchNoteHTML(ctx, att.ExternalKey)
		if err != nil {
			return nil, remoteError(err)
		}
		data = []byte(html)
	} else {
		if data, err = uc.remote.FetchAttachmentBlob(ctx, att.ExternalKey); err != nil {
			return nil, remoteError(err)
		}
	}
	metrics.IncCounterVec(metrics.DownloadsTotal, map[string]string{"source": "remote"})

	if err := uc.cache.Set(ctx, att.ExternalKey, data); err != nil {
		uc.logger.WarnContext(ctx, "写入附件缓存失败", "attachment", att.ExternalKey, "error", err)
	}
	return data, nil
}

// remoteError 远程已删除的附件按本地不存在处理
func remoteError(err error) error {
	if errors.Is(err, catalog.ErrRemoteNotFound) {
		return catalog.ErrAttachmentNotFound
	}
	return err
}

func filename(item *inventory.Item, att *catalog.Attachment) string {
	ext := att.MediaType
	if att.Format == catalog.FormatNote {
		ext = "html"
	}
	title := item.Product.Title
	if title == "" {
		title = att.ExternalKey
	}
	return fmt.Sprintf("%s.%s", title, ext)
}

func contentType(att *catalog.Attachment) string {
	if att.Format == catalog.FormatNote {
		return "text/html; charset=utf-8"
	}
	if ct := mime.TypeByExtension("." + att.MediaType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
