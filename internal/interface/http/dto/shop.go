package dto

import "time"

// AddToCartRequest 加入购物车
type AddToCartRequest struct {
	ItemID uint `json:"item_id" binding:"required,min=1" example:"1"`
}

// AddToCartResponse Added=false表示商品当前不可购买
type AddToCartResponse struct {
	Added bool `json:"added"`
}

// PageQuery 分页参数
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PurchaseItem 购买记录列表项
type PurchaseItem struct {
	ID       uint   `json:"id"`
	ItemID   uint   `json:"item_id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Total    int    `json:"total"`
	Free     bool   `json:"free"`
	Date     string `json:"date"`
}

// FormatTime 统一时间格式
func FormatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// LendingQuery 出借列表参数，all=true时包含已归还的
type LendingQuery struct {
	All bool `form:"all"`
}

// LendingItem 出借列表项
type LendingItem struct {
	ID       uint   `json:"id"`
	ItemID   uint   `json:"item_id"`
	Title    string `json:"title"`
	Shipped  string `json:"shipped"`
	Returned string `json:"returned"`
	Charged  string `json:"charged"`
	Date     string `json:"date"`
}
