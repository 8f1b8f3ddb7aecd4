package mysql

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// dbError 数据库错误统一为50001，原始错误只进日志
func dbError(err error, message string) error {
	return apperrors.WrapCode(err, apperrors.ErrCodeDatabaseError, message)
}

// isDuplicateError 唯一索引冲突
// MySQL报1062 Duplicate entry，SQLite报UNIQUE constraint failed
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// rowExists 按主键确认行存在
// MySQL默认只统计值真正变化的行，写入相同值的UPDATE会得到RowsAffected=0
func rowExists(db *gorm.DB, model any, id uint) (bool, error) {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, dbError(err, "查询记录失败")
	}
	return count > 0, nil
}
