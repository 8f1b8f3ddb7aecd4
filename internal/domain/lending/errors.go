package lending

import (
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// 出借领域错误定义
var (
	ErrLendingNotFound = apperrors.New(apperrors.ErrCodeLendingNotFound, "出借记录不存在")

	// ErrAlreadyReturned 重复归还
	ErrAlreadyReturned = apperrors.New(apperrors.ErrCodeAlreadyReturned, "出借已归还")

	// ErrDuplicateLending 同一购买只能对应一次出借
	ErrDuplicateLending = apperrors.New(apperrors.ErrCodeDuplicateEntry, "该购买已登记出借")
)
