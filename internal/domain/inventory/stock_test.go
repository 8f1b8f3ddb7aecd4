package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcileStock(t *testing.T) {
	tests := []struct {
		name                    string
		current, synced, remote *int
		want                    *int
	}{
		{"本地购买后远程未变化保持本地库存", intPtr(8), intPtr(10), intPtr(10), intPtr(8)},
		{"远程增加按增量补充", intPtr(8), intPtr(10), intPtr(12), intPtr(10)},
		{"远程减少按增量扣减", intPtr(8), intPtr(10), intPtr(9), intPtr(7)},
		{"结果不小于0", intPtr(1), intPtr(5), intPtr(0), intPtr(0)},
		{"无基线时直接使用远程值", intPtr(3), nil, intPtr(6), intPtr(6)},
		{"本地不限库存时使用远程值", nil, nil, intPtr(2), intPtr(2)},
		{"远程不限库存", intPtr(4), intPtr(4), nil, nil},
		{"未分叉时等于远程值", intPtr(1), intPtr(1), intPtr(0), intPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileStock(tt.current, tt.synced, tt.remote)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestBecameAvailable(t *testing.T) {
	assert.True(t, BecameAvailable(intPtr(0), intPtr(1)))
	assert.True(t, BecameAvailable(intPtr(0), nil))
	assert.False(t, BecameAvailable(intPtr(1), intPtr(2)))
	assert.False(t, BecameAvailable(intPtr(0), intPtr(0)))
	assert.False(t, BecameAvailable(nil, intPtr(3)))
}

func TestChanged(t *testing.T) {
	assert.False(t, Changed(nil, nil))
	assert.True(t, Changed(nil, intPtr(1)))
	assert.False(t, Changed(intPtr(2), intPtr(2)))
	assert.True(t, Changed(intPtr(2), intPtr(3)))
}
