package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// catalogRepository 书目仓储实现
// 关联表写入使用ON CONFLICT DO NOTHING，重复同步不会产生重复行
type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建书目仓储
func NewCatalogRepository(db *gorm.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) getDB(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db)
}

// =========================================
// 集合
// =========================================

func (r *catalogRepository) ListCollections(ctx context.Context) ([]*catalog.Collection, error) {
	var models []CollectionModel
	if err := r.getDB(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, dbError(err, "查询集合失败")
	}
	out := make([]*catalog.Collection, len(models))
	for i := range models {
		out[i] = toCollectionEntity(&models[i])
	}
	return out, nil
}

func (r *catalogRepository) FindCollectionByKey(ctx context.Context, key string) (*catalog.Collection, error) {
	var model CollectionModel
	if err := r.getDB(ctx).Where("external_key = ?", key).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, catalog.ErrCollectionNotFound
		}
		return nil, dbError(err, "查询集合失败")
	}
	return toCollectionEntity(&model), nil
}

// SaveCollection 按ExternalKey插入或更新
func (r *catalogRepository) SaveCollection(ctx context.Context, c *catalog.Collection) (bool, error) {
	db := r.getDB(ctx)

	var model CollectionModel
	err := db.Where("external_key = ?", c.ExternalKey).First(&model).Error
	if isNotFound(err) {
		model = CollectionModel{ExternalKey: c.ExternalKey, Title: c.Title, ParentID: c.ParentID}
		if err := db.Create(&model).Error; err != nil {
			return false, dbError(err, "创建集合失败")
		}
		c.ID = model.ID
		return true, nil
	}
	if err != nil {
		return false, dbError(err, "查询集合失败")
	}

	c.ID = model.ID
	if model.Title == c.Title && sameUint(model.ParentID, c.ParentID) {
		return false, nil
	}

	err = db.Model(&model).Updates(map[string]interface{}{
		"title":     c.Title,
		"parent_id": c.ParentID,
	}).Error
	if err != nil {
		return false, dbError(err, "更新集合失败")
	}
	return true, nil
}

// DeleteCollection 集合仍有条目或子集合时拒绝删除
func (r *catalogRepository) DeleteCollection(ctx context.Context, id uint) error {
	return r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		var entries, children int64
		if err := tx.Model(&EntryCollectionModel{}).Where("collection_id = ?", id).Count(&entries).Error; err != nil {
			return dbError(err, "统计集合条目失败")
		}
		if err := tx.Model(&CollectionModel{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return dbError(err, "统计子集合失败")
		}
		if entries > 0 || children > 0 {
			return catalog.ErrCollectionInUse
		}

		result := tx.Delete(&CollectionModel{}, id)
		if result.Error != nil {
			return dbError(result.Error, "删除集合失败")
		}
		if result.RowsAffected == 0 {
			return catalog.ErrCollectionNotFound
		}
		return nil
	})
}

// =========================================
// 条目
// =========================================

func (r *catalogRepository) FindEntryByKey(ctx context.Context, key string) (*catalog.Entry, error) {
	return r.findEntry(ctx, "external_key = ?", key)
}

func (r *catalogRepository) FindEntryByProduct(ctx context.Context, productID uint) (*catalog.Entry, error) {
	return r.findEntry(ctx, "product_id = ?", productID)
}

func (r *catalogRepository) findEntry(ctx context.Context, query string, arg interface{}) (*catalog.Entry, error) {
	db := r.getDB(ctx)

	var model EntryModel
	if err := db.Where(query, arg).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, catalog.ErrEntryNotFound
		}
		return nil, dbError(err, "查询书目失败")
	}

	authors, err := r.loadAuthors(db, model.ID)
	if err != nil {
		return nil, err
	}

	e := toEntryEntity(&model)
	e.Authors = authors
	return e, nil
}

func (r *catalogRepository) loadAuthors(db *gorm.DB, entryID uint) ([]catalog.Author, error) {
	var models []AuthorModel
	err := db.Table("authors").
		Select("authors.id, authors.name").
		Joins("JOIN catalog_entry_authors ea ON ea.author_id = authors.id").
		Where("ea.entry_id = ?", entryID).
		Order("ea.position ASC").
		Scan(&models).Error
	if err != nil {
		return nil, dbError(err, "查询作者失败")
	}
	authors := make([]catalog.Author, len(models))
	for i, m := range models {
		authors[i] = catalog.Author{ID: m.ID, Name: m.Name}
	}
	return authors, nil
}

func (r *catalogRepository) CreateEntry(ctx context.Context, e *catalog.Entry) error {
	model := toEntryModel(e)
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.New(apperrors.ErrCodeDuplicateEntry, "书目已存在")
		}
		return dbError(err, "创建书目失败")
	}
	e.ID = model.ID
	e.CreatedAt = model.CreatedAt
	e.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *catalogRepository) UpdateEntry(ctx context.Context, e *catalog.Entry) error {
	db := r.getDB(ctx)
	result := db.Model(&EntryModel{}).Where("id = ?", e.ID).Updates(map[string]interface{}{
		"title":          e.Title,
		"published_date": e.PublishedDate,
		"stock_amount":   e.StockAmount,
		"base_price":     e.BasePrice,
		"digital_price":  e.DigitalPrice,
		"printable":      e.Printable,
		"fingerprint":    e.Fingerprint,
	})
	if result.Error != nil {
		return dbError(result.Error, "更新书目失败")
	}
	if result.RowsAffected == 0 {
		ok, err := rowExists(db, &EntryModel{}, e.ID)
		if err != nil {
			return err
		}
		if !ok {
			return catalog.ErrEntryNotFound
		}
	}
	return nil
}

// DeleteEntry 删除条目及其作者、集合关联
func (r *catalogRepository) DeleteEntry(ctx context.Context, id uint) error {
	return r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).Delete(&EntryAuthorModel{}).Error; err != nil {
			return dbError(err, "删除作者关联失败")
		}
		if err := tx.Where("entry_id = ?", id).Delete(&EntryCollectionModel{}).Error; err != nil {
			return dbError(err, "删除集合关联失败")
		}
		result := tx.Delete(&EntryModel{}, id)
		if result.Error != nil {
			return dbError(result.Error, "删除书目失败")
		}
		if result.RowsAffected == 0 {
			return catalog.ErrEntryNotFound
		}
		return nil
	})
}

func (r *catalogRepository) ListEntriesInCollection(ctx context.Context, collectionID uint) ([]*catalog.Entry, error) {
	var models []EntryModel
	err := r.getDB(ctx).
		Joins("JOIN catalog_entry_collections ec ON ec.entry_id = catalog_entries.id").
		Where("ec.collection_id = ?", collectionID).
		Order("catalog_entries.id ASC").
		Find(&models).Error
	if err != nil {
		return nil, dbError(err, "查询集合条目失败")
	}
	out := make([]*catalog.Entry, len(models))
	for i := range models {
		out[i] = toEntryEntity(&models[i])
	}
	return out, nil
}

// =========================================
// 作者
// =========================================

// ReplaceAuthors 按名称解析或创建作者，并替换条目的作者关联
func (r *catalogRepository) ReplaceAuthors(ctx context.Context, entryID uint, names []string) error {
	return r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", entryID).Delete(&EntryAuthorModel{}).Error; err != nil {
			return dbError(err, "清除作者关联失败")
		}

		seen := make(map[string]bool, len(names))
		position := 0
		for _, name := range names {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true

			author, err := resolveAuthor(tx, name)
			if err != nil {
				return err
			}

			link := EntryAuthorModel{EntryID: entryID, AuthorID: author.ID, Position: position}
			if err := tx.Create(&link).Error; err != nil {
				return dbError(err, "创建作者关联失败")
			}
			position++
		}
		return nil
	})
}

// resolveAuthor 按名称查找作者，不存在时创建；并发创建冲突时重新查询
func resolveAuthor(tx *gorm.DB, name string) (*AuthorModel, error) {
	var author AuthorModel
	err := tx.Where("name = ?", name).First(&author).Error
	if err == nil {
		return &author, nil
	}
	if !isNotFound(err) {
		return nil, dbError(err, "查询作者失败")
	}

	author = AuthorModel{Name: name}
	if err := tx.Create(&author).Error; err != nil {
		if !isDuplicateError(err) {
			return nil, dbError(err, "创建作者失败")
		}
		if err := tx.Where("name = ?", name).First(&author).Error; err != nil {
			return nil, dbError(err, "查询作者失败")
		}
	}
	return &author, nil
}

// DeleteOrphanAuthors 删除没有条目引用的作者
func (r *catalogRepository) DeleteOrphanAuthors(ctx context.Context) (int64, error) {
	result := r.getDB(ctx).
		Where("id NOT IN (?)", r.getDB(ctx).Model(&EntryAuthorModel{}).Select("author_id")).
		Delete(&AuthorModel{})
	if result.Error != nil {
		return 0, dbError(result.Error, "回收作者失败")
	}
	return result.RowsAffected, nil
}

// =========================================
// 集合成员关系
// =========================================

func (r *catalogRepository) AddToCollection(ctx context.Context, entryID, collectionID uint) error {
	link := EntryCollectionModel{EntryID: entryID, CollectionID: collectionID}
	if err := r.getDB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return dbError(err, "加入集合失败")
	}
	return nil
}

func (r *catalogRepository) RemoveFromCollection(ctx context.Context, entryID, collectionID uint) error {
	err := r.getDB(ctx).
		Where("entry_id = ? AND collection_id = ?", entryID, collectionID).
		Delete(&EntryCollectionModel{}).Error
	if err != nil {
		return dbError(err, "移出集合失败")
	}
	return nil
}

func (r *catalogRepository) CountCollections(ctx context.Context, entryID uint) (int64, error) {
	var count int64
	if err := r.getDB(ctx).Model(&EntryCollectionModel{}).Where("entry_id = ?", entryID).Count(&count).Error; err != nil {
		return 0, dbError(err, "统计条目集合失败")
	}
	return count, nil
}

// =========================================
// 附件
// =========================================

func (r *catalogRepository) FindAttachmentByKey(ctx context.Context, key string) (*catalog.Attachment, error) {
	var model AttachmentModel
	if err := r.getDB(ctx).Where("external_key = ?", key).First(&model).Error; err != nil {
		if isNotFound(err) {
			return nil, catalog.ErrAttachmentNotFound
		}
		return nil, dbError(err, "查询附件失败")
	}
	return toAttachmentEntity(&model), nil
}

// SaveAttachment 按ExternalKey插入或更新
func (r *catalogRepository) SaveAttachment(ctx context.Context, a *catalog.Attachment) error {
	db := r.getDB(ctx)

	var model AttachmentModel
	err := db.Where("external_key = ?", a.ExternalKey).First(&model).Error
	switch {
	case isNotFound(err):
		model = AttachmentModel{
			ExternalKey: a.ExternalKey,
			Format:      string(a.Format),
			MediaType:   a.MediaType,
			EntryID:     a.EntryID,
		}
		if err := db.Create(&model).Error; err != nil {
			return dbError(err, "创建附件失败")
		}
	case err != nil:
		return dbError(err, "查询附件失败")
	default:
		err := db.Model(&model).Updates(map[string]interface{}{
			"format":     string(a.Format),
			"media_type": a.MediaType,
			"entry_id":   a.EntryID,
		}).Error
		if err != nil {
			return dbError(err, "更新附件失败")
		}
	}

	a.ID = model.ID
	return nil
}

func (r *catalogRepository) ListAttachments(ctx context.Context, entryID uint) ([]*catalog.Attachment, error) {
	var models []AttachmentModel
	if err := r.getDB(ctx).Where("entry_id = ?", entryID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, dbError(err, "查询附件失败")
	}
	out := make([]*catalog.Attachment, len(models))
	for i := range models {
		out[i] = toAttachmentEntity(&models[i])
	}
	return out, nil
}

func (r *catalogRepository) DeleteAttachment(ctx context.Context, id uint) error {
	result := r.getDB(ctx).Delete(&AttachmentModel{}, id)
	if result.Error != nil {
		return dbError(result.Error, "删除附件失败")
	}
	if result.RowsAffected == 0 {
		return catalog.ErrAttachmentNotFound
	}
	return nil
}

// =========================================
// 模型转换
// =========================================

func toCollectionEntity(m *CollectionModel) *catalog.Collection {
	return &catalog.Collection{
		ID:          m.ID,
		ExternalKey: m.ExternalKey,
		Title:       m.Title,
		ParentID:    m.ParentID,
	}
}

func toEntryModel(e *catalog.Entry) *EntryModel {
	return &EntryModel{
		ID:            e.ID,
		ExternalKey:   e.ExternalKey,
		Title:         e.Title,
		PublishedDate: e.PublishedDate,
		StockAmount:   e.StockAmount,
		BasePrice:     e.BasePrice,
		DigitalPrice:  e.DigitalPrice,
		Printable:     e.Printable,
		Fingerprint:   e.Fingerprint,
		ProductID:     e.ProductID,
	}
}

func toEntryEntity(m *EntryModel) *catalog.Entry {
	return &catalog.Entry{
		ID:            m.ID,
		ExternalKey:   m.ExternalKey,
		Title:         m.Title,
		PublishedDate: m.PublishedDate,
		StockAmount:   m.StockAmount,
		BasePrice:     m.BasePrice,
		DigitalPrice:  m.DigitalPrice,
		Printable:     m.Printable,
		Fingerprint:   m.Fingerprint,
		ProductID:     m.ProductID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toAttachmentEntity(m *AttachmentModel) *catalog.Attachment {
	return &catalog.Attachment{
		ID:          m.ID,
		ExternalKey: m.ExternalKey,
		Format:      catalog.Format(m.Format),
		MediaType:   m.MediaType,
		EntryID:     m.EntryID,
	}
}

func sameUint(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
