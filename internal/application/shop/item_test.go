package shop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/scholarium/internal/domain/inventory"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
)

func TestItemUseCase_Status(t *testing.T) {
	f := newFixture(t)
	entry, book := f.book(t, "K1", 20, 1)
	digital := f.pdf(t, entry, "A1", 8)
	acct := f.account(t, 1, 0)

	t.Run("未登录", func(t *testing.T) {
		s, err := f.item.Status(f.ctx, book.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, inventory.StatusPurchasable, s.Status)
		assert.False(t, s.Accessible)
		assert.False(t, s.Visible)
	})

	t.Run("已登录可购买", func(t *testing.T) {
		s, err := f.item.Status(f.ctx, digital.ID, acct)
		require.NoError(t, err)
		assert.Equal(t, inventory.StatusPurchasable, s.Status)
		assert.Equal(t, 8, *s.Price)
		assert.Equal(t, 1, s.Attachments)
		assert.True(t, s.Visible)
	})

	t.Run("捐赠达到访问门槛", func(t *testing.T) {
		f.donate(t, acct, 100)
		s, err := f.item.Status(f.ctx, digital.ID, acct)
		require.NoError(t, err)
		assert.Equal(t, inventory.StatusAccessibleByLevel, s.Status)
		assert.True(t, s.Accessible)
	})
}

func TestItemUseCase_Request(t *testing.T) {
	f := newFixture(t)
	entry, book := f.book(t, "K1", 20, 0)
	digital := f.pdf(t, entry, "A1", 8)
	acct := f.account(t, 1, 0)

	require.NoError(t, f.item.Request(f.ctx, book.ID, acct))
	assert.ErrorIs(t, f.item.Request(f.ctx, digital.ID, acct), purchase.ErrRequestNotAllowed)
	assert.ErrorIs(t, f.item.Request(f.ctx, book.ID, 0), purchase.ErrRequestNotAllowed)

	s, err := f.item.Status(f.ctx, book.ID, acct)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusRequestable, s.Status)
}
