package catalog

import (
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// 书目领域错误定义
var (
	ErrCollectionNotFound = apperrors.New(apperrors.ErrCodeNotFound, "集合不存在")
	ErrEntryNotFound      = apperrors.New(apperrors.ErrCodeEntryNotFound, "书目不存在")
	ErrAttachmentNotFound = apperrors.New(apperrors.ErrCodeNotFound, "附件不存在")

	// ErrCollectionInUse 集合仍有条目或子集合，拒绝删除
	ErrCollectionInUse = apperrors.New(apperrors.ErrCodeProtected, "集合仍被引用，拒绝删除")

	// ErrRemoteNotFound 远程服务上单条记录不存在，同步时跳过该记录
	ErrRemoteNotFound = apperrors.New(apperrors.ErrCodeNotFound, "远程记录不存在")
)
