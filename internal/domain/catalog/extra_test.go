package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtra(t *testing.T) {
	t.Run("解析全部字段", func(t *testing.T) {
		o := ParseExtra("amount: 3\nprice: 25\nprice_digital: 8\nprinting: ja")

		require.NotNil(t, o.Amount)
		require.NotNil(t, o.Price)
		require.NotNil(t, o.PriceDigital)
		require.NotNil(t, o.Printing)
		assert.Equal(t, 3, *o.Amount)
		assert.Equal(t, 25, *o.Price)
		assert.Equal(t, 8, *o.PriceDigital)
		assert.True(t, *o.Printing)
		assert.Empty(t, o.Invalid)
	})

	t.Run("忽略未知键和无冒号的行", func(t *testing.T) {
		o := ParseExtra("ISBN: 978-3\nfreier Text\nPRICE : 12")

		assert.Nil(t, o.Amount)
		require.NotNil(t, o.Price)
		assert.Equal(t, 12, *o.Price)
		assert.Empty(t, o.Invalid)
	})

	t.Run("格式错误的值记录但不影响其他行", func(t *testing.T) {
		o := ParseExtra("amount: drei\nprice: -5\nprice_digital: 4\nprinting: vielleicht")

		assert.Nil(t, o.Amount)
		assert.Nil(t, o.Price)
		assert.Nil(t, o.Printing)
		require.NotNil(t, o.PriceDigital)
		assert.Equal(t, 4, *o.PriceDigital)
		assert.Len(t, o.Invalid, 3)
	})

	t.Run("空字符串", func(t *testing.T) {
		o := ParseExtra("")
		assert.Equal(t, Overrides{}, o)
	})
}

func TestIsPrivateCollection(t *testing.T) {
	assert.True(t, IsPrivateCollection("_intern"))
	assert.False(t, IsPrivateCollection("Ökonomie"))
}
