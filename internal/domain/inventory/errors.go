package inventory

import (
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// 库存领域错误定义
var (
	ErrItemNotFound     = apperrors.New(apperrors.ErrCodeItemNotFound, "商品不存在")
	ErrItemTypeNotFound = apperrors.New(apperrors.ErrCodeNotFound, "商品类型不存在")
	ErrProductNotFound  = apperrors.New(apperrors.ErrCodeNotFound, "商品所属产品不存在")

	// ErrInsufficientStock 库存不足
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "库存不足")

	// ErrInvalidQuantity 数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
)
