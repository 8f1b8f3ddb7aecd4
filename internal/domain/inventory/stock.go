package inventory

// ReconcileStock 根据远程库存计算新的本地库存
// 规则：本地库存和同步基线都存在时按增量调整
//
//	newStock = current + (remote - synced)
//
// 这样已完成购买消耗的库存不会被同步覆盖；结果不小于0。
// 远程库存为nil表示不限库存。
func ReconcileStock(current, synced, remote *int) *int {
	if remote == nil {
		return nil
	}
	next := *remote
	if current != nil && synced != nil {
		next = *current + (*remote - *synced)
	}
	if next < 0 {
		next = 0
	}
	return &next
}

// BecameAvailable 库存从售罄恢复为可售
func BecameAvailable(prev, next *int) bool {
	wasOut := prev != nil && *prev <= 0
	nowIn := next == nil || *next > 0
	return wasOut && nowIn
}

// Changed 两个可空整数是否不同
func Changed(a, b *int) bool {
	if a == nil || b == nil {
		return a != b
	}
	return *a != *b
}
