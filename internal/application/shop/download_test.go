package shop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/scholarium/internal/domain/catalog"
	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
)

func TestDownloadUseCase(t *testing.T) {
	f := newFixture(t)
	entry, book := f.book(t, "K1", 20, 5)
	digital := f.pdf(t, entry, "A1", 8)
	f.remote.blobs["A1"] = []byte("%PDF-1.4")

	buyer := f.account(t, 1, 10)
	stranger := f.account(t, 2, 10)

	t.Run("未购买不能下载", func(t *testing.T) {
		_, err := f.download.Execute(f.ctx, digital.ID, stranger, 0)
		assert.ErrorIs(t, err, purchase.ErrNotAccessible)

		_, err = f.download.Execute(f.ctx, digital.ID, 0, 0)
		assert.ErrorIs(t, err, purchase.ErrNotAccessible)
		assert.Zero(t, f.remote.calls)
	})

	ok, err := f.cart.Add(f.ctx, digital.ID, buyer)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.cart.Execute(f.ctx, buyer)
	require.NoError(t, err)

	t.Run("购买后下载", func(t *testing.T) {
		file, err := f.download.Execute(f.ctx, digital.ID, buyer, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4"), file.Data)
		assert.Equal(t, "application/pdf", file.ContentType)
		assert.Equal(t, "Title K1.pdf", file.Filename)
		assert.Equal(t, 1, f.remote.calls)
	})

	t.Run("第二次命中缓存", func(t *testing.T) {
		_, err := f.download.Execute(f.ctx, digital.ID, buyer, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, f.remote.calls)
	})

	t.Run("序号越界", func(t *testing.T) {
		_, err := f.download.Execute(f.ctx, digital.ID, buyer, 1)
		assert.ErrorIs(t, err, catalog.ErrAttachmentNotFound)
	})

	t.Run("购买实体书不解锁电子版", func(t *testing.T) {
		require.NoError(t, f.accounts.Refill(f.ctx, stranger, 10))
		ok, err := f.cart.Add(f.ctx, book.ID, stranger)
		require.NoError(t, err)
		require.True(t, ok)
		result, err := f.cart.Execute(f.ctx, stranger)
		require.NoError(t, err)
		require.Len(t, result.Executed, 1)

		_, err = f.download.Execute(f.ctx, book.ID, stranger, 0)
		assert.ErrorIs(t, err, catalog.ErrAttachmentNotFound)
		_, err = f.download.Execute(f.ctx, digital.ID, stranger, 0)
		assert.ErrorIs(t, err, purchase.ErrNotAccessible)

		s, err := f.item.Status(f.ctx, book.ID, stranger)
		require.NoError(t, err)
		assert.Zero(t, s.Attachments)
		assert.False(t, s.Visible)
	})

	t.Run("笔记按自己的商品下载", func(t *testing.T) {
		typ, err := f.items.EnsureType(f.ctx, &inventory.ItemType{Slug: "note", BuyOnce: true})
		require.NoError(t, err)
		note := &catalog.Attachment{ExternalKey: "N1", Format: catalog.FormatNote, MediaType: "note", EntryID: entry.ID}
		require.NoError(t, f.catalog.SaveAttachment(f.ctx, note))
		noteItem := inventory.NewItem(*typ, entry.ProductID, intPtr(2), nil)
		noteItem.AttachmentID = &note.ID
		require.NoError(t, f.items.CreateItem(f.ctx, noteItem))
		f.remote.notes["N1"] = "<p>summary</p>"

		ok, err := f.cart.Add(f.ctx, noteItem.ID, buyer)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = f.cart.Execute(f.ctx, buyer)
		require.NoError(t, err)

		file, err := f.download.Execute(f.ctx, noteItem.ID, buyer, 0)
		require.NoError(t, err)
		assert.Equal(t, "text/html; charset=utf-8", file.ContentType)
		assert.Equal(t, "<p>summary</p>", string(file.Data))
		assert.Equal(t, "Title K1.html", file.Filename)
	})

	t.Run("远程已删除", func(t *testing.T) {
		delete(f.cache.data, "A1")
		delete(f.remote.blobs, "A1")
		_, err := f.download.Execute(f.ctx, digital.ID, buyer, 0)
		assert.ErrorIs(t, err, catalog.ErrAttachmentNotFound)
	})
}
