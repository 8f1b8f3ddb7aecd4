package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/jwt"
	"github.com/xiebiao/scholarium/pkg/response"
)

const (
	keyUserID    = "user_id"
	keyAccountID = "account_id"
	keyEmail     = "email"
)

// AuthMiddleware JWT认证中间件
// 设计说明：
// 1. Token无状态，不维护服务端会话
// 2. Claims中的AccountID注入Context，购买和下载接口直接使用
type AuthMiddleware struct {
	jwtManager *jwt.Manager
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// RequireAuth 要求登录
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ParseToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth 有合法Token时注入身份，否则按未登录继续
// 商品状态等公开接口使用
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := m.jwtManager.ParseToken(token); err == nil {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

// bearerToken 格式：Authorization: Bearer <token>
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *gin.Context, claims *jwt.Claims) {
	c.Set(keyUserID, claims.UserID)
	c.Set(keyAccountID, claims.AccountID)
	c.Set(keyEmail, claims.Email)
}

// GetUserID 未登录时返回0
func GetUserID(c *gin.Context) uint {
	return c.GetUint(keyUserID)
}

// GetAccountID 未登录时返回0
func GetAccountID(c *gin.Context) uint {
	return c.GetUint(keyAccountID)
}

// GetEmail 未登录时返回空串
func GetEmail(c *gin.Context) string {
	return c.GetString(keyEmail)
}
