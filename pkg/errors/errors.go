// Package errors 业务错误码与错误包装
//
// 响应里只出现Code和Message，被包装的底层错误只写日志。
package errors

import (
	"errors"
	"fmt"
)

// AppError 带业务错误码的错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 以50000包装底层错误
func Wrap(err error, message string) *AppError {
	return WrapCode(err, ErrCodeInternal, message)
}

func WrapCode(err error, code int, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// 4xxxx为调用方可处理的错误，5xxxx为服务端故障

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误
	ErrCodeRemoteError   = 50003 // 远程书目服务错误
	ErrCodeNotifyError   = 50004 // 通知投递失败

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized    = 40100 // 未登录
	ErrCodeInvalidToken    = 40101 // Token无效
	ErrCodeTokenExpired    = 40102 // Token过期
	ErrCodeInvalidPassword = 40103 // 密码错误
	ErrCodeForbidden       = 40104 // 无权限

	// 资源错误（40400-40499）
	ErrCodeNotFound         = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound     = 40401 // 用户不存在
	ErrCodeItemNotFound     = 40402 // 商品不存在
	ErrCodePurchaseNotFound = 40403 // 购买记录不存在
	ErrCodeAccountNotFound  = 40404 // 账户不存在
	ErrCodeEntryNotFound    = 40405 // 书目不存在
	ErrCodeDonationNotFound = 40406 // 捐赠记录不存在
	ErrCodeLendingNotFound  = 40407 // 出借记录不存在

	// 业务规则错误（40000-40099）
	ErrCodeInsufficientStock   = 40001 // 库存不足
	ErrCodeEmailDuplicate      = 40003 // 邮箱已存在
	ErrCodeWeakPassword        = 40005 // 密码强度不足
	ErrCodeDuplicateEntry      = 40009 // 重复记录(通用)
	ErrCodeProtected           = 40010 // 存在已完成购买，拒绝删除
	ErrCodeInsufficientBalance = 40011 // 余额不足
	ErrCodeItemUnavailable     = 40012 // 商品不可购买
	ErrCodeAlreadyExecuted     = 40013 // 购买已执行
	ErrCodeNotExecuted         = 40014 // 购买未执行
	ErrCodeNotAccessible       = 40015 // 无下载权限
	ErrCodeRequestNotAllowed   = 40016 // 该商品不支持申请
	ErrCodeSyncInProgress      = 40017 // 同步任务正在执行
	ErrCodeAlreadyReturned     = 40018 // 出借已归还

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

var (
	// 系统错误
	ErrRemoteError = New(ErrCodeRemoteError, "书目服务暂不可用")

	// 认证授权
	ErrUnauthorized    = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken    = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired    = New(ErrCodeTokenExpired, "Token已过期")
	ErrInvalidPassword = New(ErrCodeInvalidPassword, "密码错误")
	ErrForbidden       = New(ErrCodeForbidden, "无权限访问")

	// 资源不存在
	ErrUserNotFound = New(ErrCodeUserNotFound, "用户不存在")

	// 业务规则
	ErrEmailDuplicate = New(ErrCodeEmailDuplicate, "邮箱已被注册")
	ErrWeakPassword   = New(ErrCodeWeakPassword, "密码强度不足（需8-20位，包含字母和数字）")
)

// HasCode 判断错误链中是否存在指定错误码的AppError
func HasCode(err error, code int) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// GetAppError 错误链中没有AppError时视为内部错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}
