package purchase

import (
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// 购买领域错误定义
var (
	ErrPurchaseNotFound = apperrors.New(apperrors.ErrCodePurchaseNotFound, "购买记录不存在")

	// ErrAlreadyExecuted 重复执行同一购买
	ErrAlreadyExecuted = apperrors.New(apperrors.ErrCodeAlreadyExecuted, "购买已执行")

	// ErrNotExecuted 撤销未执行的购买
	ErrNotExecuted = apperrors.New(apperrors.ErrCodeNotExecuted, "购买尚未执行，无法撤销")

	// ErrItemUnavailable 执行时商品状态不是可购买
	ErrItemUnavailable = apperrors.New(apperrors.ErrCodeItemUnavailable, "商品不可购买")

	// ErrRequestNotAllowed 商品类型不允许定价或补货申请
	ErrRequestNotAllowed = apperrors.New(apperrors.ErrCodeRequestNotAllowed, "该商品不支持申请")

	// ErrNotAccessible 没有下载权限
	ErrNotAccessible = apperrors.New(apperrors.ErrCodeNotAccessible, "没有访问权限")
)
