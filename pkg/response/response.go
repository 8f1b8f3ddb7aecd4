// Package response 统一JSON响应
//
// 业务错误一律返回HTTP 200，由Code区分；Code=0表示成功。
package response

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// requestIDKey 与middleware.RequestID写入的键一致
const requestIDKey = "request_id"

func write(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(requestIDKey),
	})
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	write(c, 0, "success", data)
}

// Error 错误响应
// 非AppError按内部错误处理；内部原因只写日志，不返回给客户端
func Error(c *gin.Context, err error) {
	ErrorWithData(c, err, nil)
}

// ErrorWithData 错误响应附带业务数据（如余额不足时的购物车总价）
func ErrorWithData(c *gin.Context, err error, data interface{}) {
	appErr := apperrors.GetAppError(err)
	if appErr.Err != nil {
		slog.ErrorContext(c.Request.Context(), "请求失败",
			"request_id", c.GetString(requestIDKey),
			"path", c.FullPath(),
			"code", appErr.Code,
			"error", appErr.Err,
		)
	}
	write(c, appErr.Code, appErr.Message, data)
}

// ErrorWithCode 自定义错误码和消息（参数校验等）
func ErrorWithCode(c *gin.Context, code int, message string) {
	write(c, code, message, nil)
}

// PageData 分页数据
type PageData struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// NewPageData pageSize<=0时TotalPages为0
func NewPageData(list interface{}, total int64, page, pageSize int) *PageData {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
