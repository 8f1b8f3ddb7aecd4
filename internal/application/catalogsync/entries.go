package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
)

// entryPass 一次集合条目同步的中间状态
type entryPass struct {
	collection  *catalog.Collection
	report      *Report
	physical    *inventory.ItemType
	entries     map[string]*catalog.Entry // 本轮出现的作品，按外部键
	attachments map[uint]map[string]struct{}
	// malformed 远程仍存在但本轮无法解析的作品，本地镜像原样保留
	malformed map[string]struct{}
}

// SyncCollectionEntries 同步一个集合内的作品和附件
func (e *Engine) SyncCollectionEntries(ctx context.Context, c *catalog.Collection) (*Report, error) {
	return e.guarded(ctx, c.ExternalKey, func(ctx context.Context, r *Report) error {
		return e.syncEntries(ctx, c, r)
	})
}

func (e *Engine) syncEntries(ctx context.Context, c *catalog.Collection, r *Report) error {
	records, err := e.client.ListCollectionItems(ctx, c.ExternalKey)
	switch {
	case errors.Is(err, catalog.ErrRemoteNotFound):
		// 远程集合已删除：按空集合处理，未购买的条目随之移出，集合在下一轮被删除
		e.logger.WarnContext(ctx, "远程集合不存在，按空集合同步", "collection", c.ExternalKey)
		records = nil
	case err != nil:
		return err
	}

	physical, err := e.items.EnsureType(ctx, e.physicalType())
	if err != nil {
		return err
	}

	pass := &entryPass{
		collection:  c,
		report:      r,
		physical:    physical,
		entries:     make(map[string]*catalog.Entry),
		attachments: make(map[uint]map[string]struct{}),
		malformed:   make(map[string]struct{}),
	}

	var children []catalog.RemoteRecord
	for _, rec := range records {
		switch {
		case rec.IsChild():
			children = append(children, rec)
		case rec.IsParent():
			if len(e.opts.RecordTypes) > 0 && !containsFold(e.opts.RecordTypes, rec.Type) {
				r.Entries.Skipped++
				continue
			}
			if err := e.syncParent(ctx, pass, rec); err != nil {
				return err
			}
		default:
			// 没有父条目的独立附件或笔记
			r.Attachments.Skipped++
		}
	}

	for _, rec := range children {
		if err := e.syncChild(ctx, pass, rec); err != nil {
			return err
		}
	}

	if err := e.removeUnseenAttachments(ctx, pass); err != nil {
		return err
	}
	if err := e.removeUnseenEntries(ctx, pass); err != nil {
		return err
	}

	if n, err := e.catalog.DeleteOrphanAuthors(ctx); err != nil {
		e.logger.WarnContext(ctx, "清理作者失败", "error", err)
	} else if n > 0 {
		e.logger.DebugContext(ctx, "已清理无引用作者", "count", n)
	}
	return nil
}

func (e *Engine) physicalType() *inventory.ItemType {
	t := &inventory.ItemType{
		Slug:                e.opts.PhysicalItemType,
		Title:               e.opts.PhysicalItemType,
		ShippingRequired:    true,
		AllowPriceRequest:   true,
		AllowRestockRequest: true,
	}
	if e.opts.PhysicalDefaultPrice > 0 {
		price := e.opts.PhysicalDefaultPrice
		t.DefaultPrice = &price
	}
	return t
}

func (e *Engine) digitalType(mediaType string) *inventory.ItemType {
	t := &inventory.ItemType{
		Slug:              mediaType,
		Title:             strings.ToUpper(mediaType),
		AllowPriceRequest: true,
		BuyOnce:           true,
	}
	if e.opts.DigitalDefaultPrice > 0 {
		price := e.opts.DigitalDefaultPrice
		t.DefaultPrice = &price
	}
	return t
}

// =========================================
// 作品
// =========================================

func (e *Engine) syncParent(ctx context.Context, pass *entryPass, rec catalog.RemoteRecord) error {
	r := pass.report

	title := rec.DisplayTitle()
	if title == "" {
		r.Entries.Skipped++
		pass.malformed[rec.Key] = struct{}{}
		e.logger.WarnContext(ctx, "跳过无标题记录", "key", rec.Key)
		return nil
	}

	date := parseDate(rec.Date)
	if date == nil && strings.TrimSpace(rec.Date) != "" {
		e.logger.DebugContext(ctx, "无法解析日期", "key", rec.Key, "date", rec.Date)
	}

	overrides := catalog.ParseExtra(rec.Extra)
	for _, line := range overrides.Invalid {
		e.logger.WarnContext(ctx, "无法解析extra字段", "key", rec.Key, "line", line)
	}

	stock := stockFor(rec, overrides, e.opts.OwnedTags, e.opts.ExcludedTags)
	printable := overrides.Printing != nil && *overrides.Printing

	entry, err := e.catalog.FindEntryByKey(ctx, rec.Key)
	if err != nil && !errors.Is(err, catalog.ErrEntryNotFound) {
		return err
	}

	fp := fingerprint(rec)
	fresh := &catalog.Entry{
		ExternalKey:   rec.Key,
		Title:         title,
		PublishedDate: date,
		StockAmount:   &stock,
		BasePrice:     overrides.Price,
		DigitalPrice:  overrides.PriceDigital,
		Printable:     printable,
		Fingerprint:   fp,
	}

	switch {
	case entry == nil:
		err = e.tx.Transaction(ctx, func(ctx context.Context) error {
			product := &inventory.Product{Kind: inventory.KindBook, Title: title, Date: date}
			if err := e.items.CreateProduct(ctx, product); err != nil {
				return err
			}
			fresh.ProductID = product.ID
			if err := e.catalog.CreateEntry(ctx, fresh); err != nil {
				return err
			}
			return e.catalog.ReplaceAuthors(ctx, fresh.ID, authorNames(rec.Creators))
		})
		if err != nil {
			return err
		}
		entry = fresh
		r.Entries.Created++

	case entry.Fingerprint != fp:
		fresh.ID = entry.ID
		fresh.ProductID = entry.ProductID
		err = e.tx.Transaction(ctx, func(ctx context.Context) error {
			if err := e.catalog.UpdateEntry(ctx, fresh); err != nil {
				return err
			}
			product := &inventory.Product{ID: entry.ProductID, Kind: inventory.KindBook, Title: title, Date: date}
			if err := e.items.UpdateProduct(ctx, product); err != nil {
				return err
			}
			return e.catalog.ReplaceAuthors(ctx, fresh.ID, authorNames(rec.Creators))
		})
		if err != nil {
			return err
		}
		entry = fresh
		r.Entries.Updated++

	default:
		r.Entries.Unchanged++
	}

	if err := e.syncPhysicalItem(ctx, pass, entry, stock, overrides.Price); err != nil {
		return err
	}
	if err := e.catalog.AddToCollection(ctx, entry.ID, pass.collection.ID); err != nil {
		return err
	}

	pass.entries[rec.Key] = entry
	return nil
}

// syncPhysicalItem 创建或按增量调整实体书商品
func (e *Engine) syncPhysicalItem(ctx context.Context, pass *entryPass, entry *catalog.Entry, stock int, price *int) error {
	item, err := e.items.FindItemByProductAndType(ctx, entry.ProductID, pass.physical.ID)
	if errors.Is(err, inventory.ErrItemNotFound) {
		item = inventory.NewItem(*pass.physical, entry.ProductID, price, &stock)
		return e.items.CreateItem(ctx, item)
	}
	if err != nil {
		return err
	}

	prev, next, err := e.items.ReconcileStock(ctx, item.ID, &stock)
	if err != nil {
		return err
	}
	if inventory.Changed(prev, next) {
		e.logger.DebugContext(ctx, "库存已调整", "entry", entry.ExternalKey, "item_id", item.ID, "from", prev, "to", next)
	}

	pricedNow, err := e.updatePrice(ctx, item, price)
	if err != nil {
		return err
	}
	if inventory.BecameAvailable(prev, next) || pricedNow {
		e.resolve(ctx, item.ID)
	}
	return nil
}

// updatePrice 覆盖价格变化时写回，返回商品是否从未定价变为已定价
func (e *Engine) updatePrice(ctx context.Context, item *inventory.Item, price *int) (bool, error) {
	if !inventory.Changed(item.Price, price) {
		return false, nil
	}
	wasUnpriced := item.BasePrice() == nil
	if err := e.items.UpdateItemPrice(ctx, item.ID, price); err != nil {
		return false, err
	}
	item.Price = price
	return wasUnpriced && item.BasePrice() != nil, nil
}

// =========================================
// 附件
// =========================================

func (e *Engine) syncChild(ctx context.Context, pass *entryPass, rec catalog.RemoteRecord) error {
	r := pass.report

	mediaType := rec.MediaType()
	if mediaType == "" || !containsFold(e.opts.AttachmentFormats, mediaType) {
		r.Attachments.Skipped++
		e.logger.DebugContext(ctx, "跳过不支持的附件格式", "key", rec.Key, "filename", rec.Filename)
		return nil
	}

	owner, ok := pass.entries[rec.ParentKey]
	if !ok {
		found, err := e.catalog.FindEntryByKey(ctx, rec.ParentKey)
		if errors.Is(err, catalog.ErrEntryNotFound) {
			r.Attachments.Skipped++
			e.logger.WarnContext(ctx, "附件所属条目不存在", "key", rec.Key, "parent", rec.ParentKey)
			return nil
		}
		if err != nil {
			return err
		}
		owner = found
	}

	format := catalog.FormatFile
	if mediaType == string(catalog.FormatNote) {
		format = catalog.FormatNote
	}

	existing, err := e.catalog.FindAttachmentByKey(ctx, rec.Key)
	if err != nil && !errors.Is(err, catalog.ErrAttachmentNotFound) {
		return err
	}

	att := &catalog.Attachment{ExternalKey: rec.Key, Format: format, MediaType: mediaType, EntryID: owner.ID}
	changed := existing != nil &&
		(existing.Format != att.Format || existing.MediaType != att.MediaType || existing.EntryID != att.EntryID)

	switch {
	case existing == nil || changed:
		if err := e.catalog.SaveAttachment(ctx, att); err != nil {
			return err
		}
		if existing == nil {
			r.Attachments.Created++
		} else {
			r.Attachments.Updated++
		}
	default:
		att.ID = existing.ID
		r.Attachments.Unchanged++
	}

	if err := e.syncDigitalItem(ctx, owner, att); err != nil {
		return err
	}

	if pass.attachments[owner.ID] == nil {
		pass.attachments[owner.ID] = make(map[string]struct{})
	}
	pass.attachments[owner.ID][rec.Key] = struct{}{}
	return nil
}

// syncDigitalItem 每个附件派生一个可下载商品，价格取条目的电子版价格或类型默认价格
func (e *Engine) syncDigitalItem(ctx context.Context, owner *catalog.Entry, att *catalog.Attachment) error {
	item, err := e.items.FindItemByAttachment(ctx, att.ID)
	if errors.Is(err, inventory.ErrItemNotFound) {
		typ, err := e.items.EnsureType(ctx, e.digitalType(att.MediaType))
		if err != nil {
			return err
		}
		item = inventory.NewItem(*typ, owner.ProductID, owner.DigitalPrice, nil)
		id := att.ID
		item.AttachmentID = &id
		return e.items.CreateItem(ctx, item)
	}
	if err != nil {
		return err
	}

	pricedNow, err := e.updatePrice(ctx, item, owner.DigitalPrice)
	if err != nil {
		return err
	}
	if pricedNow {
		e.resolve(ctx, item.ID)
	}
	return nil
}

// =========================================
// 删除
// =========================================

// removeUnseenAttachments 删除本轮出现的作品下已不存在的附件
func (e *Engine) removeUnseenAttachments(ctx context.Context, pass *entryPass) error {
	for _, entry := range pass.entries {
		attachments, err := e.catalog.ListAttachments(ctx, entry.ID)
		if err != nil {
			return err
		}
		for _, att := range attachments {
			if _, ok := pass.attachments[entry.ID][att.ExternalKey]; ok {
				continue
			}
			if err := e.deleteAttachment(ctx, pass.report, att); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) deleteAttachment(ctx context.Context, r *Report, att *catalog.Attachment) error {
	item, err := e.items.FindItemByAttachment(ctx, att.ID)
	if err != nil && !errors.Is(err, inventory.ErrItemNotFound) {
		return err
	}

	if item != nil {
		executed, err := e.purchases.CountExecutedByItems(ctx, []uint{item.ID})
		if err != nil {
			return err
		}
		if executed > 0 {
			e.violation(ctx, r, "attachment", att.ExternalKey, fmt.Sprintf("%d笔已完成购买", executed))
			return nil
		}
	}

	err = e.tx.Transaction(ctx, func(ctx context.Context) error {
		if item != nil {
			if _, err := e.purchases.DeleteUnexecutedByItems(ctx, []uint{item.ID}); err != nil {
				return err
			}
			if err := e.items.DeleteItem(ctx, item.ID); err != nil {
				return err
			}
		}
		return e.catalog.DeleteAttachment(ctx, att.ID)
	})
	if err != nil {
		return err
	}
	r.Attachments.Deleted++
	return nil
}

// removeUnseenEntries 本轮未出现的条目移出集合；不再属于任何集合的条目被删除，
// 有已完成购买的条目保留集合关系并报告
func (e *Engine) removeUnseenEntries(ctx context.Context, pass *entryPass) error {
	local, err := e.catalog.ListEntriesInCollection(ctx, pass.collection.ID)
	if err != nil {
		return err
	}

	for _, entry := range local {
		if _, ok := pass.entries[entry.ExternalKey]; ok {
			continue
		}
		if _, ok := pass.malformed[entry.ExternalKey]; ok {
			continue
		}

		n, err := e.catalog.CountCollections(ctx, entry.ID)
		if err != nil {
			return err
		}
		if n > 1 {
			if err := e.catalog.RemoveFromCollection(ctx, entry.ID, pass.collection.ID); err != nil {
				return err
			}
			continue
		}

		if err := e.deleteEntry(ctx, pass.report, entry); err != nil {
			return err
		}
	}
	return nil
}

// deleteEntry 删除条目及其附件、商品和产品；任一商品有已完成购买时拒绝
func (e *Engine) deleteEntry(ctx context.Context, r *Report, entry *catalog.Entry) error {
	items, err := e.items.ListItemsByProduct(ctx, entry.ProductID)
	if err != nil {
		return err
	}
	ids := make([]uint, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	executed, err := e.purchases.CountExecutedByItems(ctx, ids)
	if err != nil {
		return err
	}
	if executed > 0 {
		e.violation(ctx, r, "entry", entry.ExternalKey, fmt.Sprintf("%d笔已完成购买", executed))
		return nil
	}

	attachments, err := e.catalog.ListAttachments(ctx, entry.ID)
	if err != nil {
		return err
	}

	err = e.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := e.purchases.DeleteUnexecutedByItems(ctx, ids); err != nil {
			return err
		}
		for _, id := range ids {
			if err := e.items.DeleteItem(ctx, id); err != nil {
				return err
			}
		}
		for _, att := range attachments {
			if err := e.catalog.DeleteAttachment(ctx, att.ID); err != nil {
				return err
			}
		}
		if err := e.catalog.DeleteEntry(ctx, entry.ID); err != nil {
			return err
		}
		return e.items.DeleteProduct(ctx, entry.ProductID)
	})
	if err != nil {
		return err
	}

	r.Entries.Deleted++
	r.Attachments.Deleted += len(attachments)
	return nil
}
