package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

func serve(t *testing.T, h gin.HandlerFunc) Response {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(requestIDKey, "req-1")
	h(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestResponse(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		resp := serve(t, func(c *gin.Context) { Success(c, gin.H{"ok": true}) })
		assert.Equal(t, 0, resp.Code)
		assert.Equal(t, "req-1", resp.RequestID)
	})

	t.Run("业务错误", func(t *testing.T) {
		resp := serve(t, func(c *gin.Context) {
			Error(c, apperrors.New(apperrors.ErrCodeInsufficientBalance, "余额不足"))
		})
		assert.Equal(t, apperrors.ErrCodeInsufficientBalance, resp.Code)
		assert.Equal(t, "余额不足", resp.Message)
	})

	t.Run("内部错误不暴露原因", func(t *testing.T) {
		resp := serve(t, func(c *gin.Context) { Error(c, errors.New("dial tcp: refused")) })
		assert.Equal(t, apperrors.ErrCodeInternal, resp.Code)
		assert.NotContains(t, resp.Message, "dial")
	})

	t.Run("错误附带数据", func(t *testing.T) {
		resp := serve(t, func(c *gin.Context) {
			ErrorWithData(c, apperrors.New(apperrors.ErrCodeInsufficientBalance, "余额不足"), gin.H{"total": 15})
		})
		assert.Equal(t, map[string]interface{}{"total": float64(15)}, resp.Data)
	})
}

func TestNewPageData(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		pageSize int
		want     int
	}{
		{"整除", 40, 20, 2},
		{"有余数", 41, 20, 3},
		{"无数据", 0, 20, 0},
		{"非法页大小", 10, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPageData(nil, tt.total, 1, tt.pageSize).TotalPages)
		})
	}
}
