package account

import (
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// 账户领域错误定义
var (
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = apperrors.New(apperrors.ErrCodeAccountNotFound, "账户不存在")

	// ErrInsufficientBalance 余额不足
	ErrInsufficientBalance = apperrors.New(apperrors.ErrCodeInsufficientBalance, "余额不足")

	// ErrInvalidAmount 金额必须为非负数
	ErrInvalidAmount = apperrors.New(apperrors.ErrCodeInvalidParams, "金额必须为非负数")

	// ErrDonationNotFound 捐赠记录不存在
	ErrDonationNotFound = apperrors.New(apperrors.ErrCodeDonationNotFound, "捐赠记录不存在")

	// ErrDonationExecuted 捐赠已执行
	ErrDonationExecuted = apperrors.New(apperrors.ErrCodeDuplicateEntry, "捐赠已执行")

	// ErrAccountDuplicate 用户已有账户
	ErrAccountDuplicate = apperrors.New(apperrors.ErrCodeDuplicateEntry, "用户账户已存在")
)
