package user

import (
	"context"
	"errors"

	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/user"
	"github.com/xiebiao/scholarium/pkg/jwt"
)

// LoginUseCase 用户登录用例：验证密码并签发带账户ID的Token对
type LoginUseCase struct {
	users      user.Service
	accounts   account.Repository
	jwtManager *jwt.Manager
}

// NewLoginUseCase 创建登录用例
func NewLoginUseCase(users user.Service, accounts account.Repository, jwtManager *jwt.Manager) *LoginUseCase {
	return &LoginUseCase{users: users, accounts: accounts, jwtManager: jwtManager}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string
	Password string
}

// LoginResponse 登录响应
type LoginResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"` // Access Token过期时间（秒）
}

// UserInfo 用户信息
type UserInfo struct {
	ID        uint   `json:"id"`
	AccountID uint   `json:"account_id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
}

// Execute 执行登录
// 早于账户机制注册的用户在首次登录时补建账户
func (uc *LoginUseCase) Execute(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := uc.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	acct, err := uc.accounts.FindByUserID(ctx, u.ID)
	if errors.Is(err, account.ErrAccountNotFound) {
		acct = account.New(u.ID)
		err = uc.accounts.Create(ctx, acct)
	}
	if err != nil {
		return nil, err
	}

	pair, err := uc.jwtManager.GenerateToken(jwt.Identity{
		UserID:    u.ID,
		AccountID: acct.ID,
		Email:     u.Email,
		Nickname:  u.Nickname,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		User:         UserInfo{ID: u.ID, AccountID: acct.ID, Email: u.Email, Nickname: u.Nickname},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}
