package user

import (
	"context"
	"log/slog"

	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/purchase"
	"github.com/xiebiao/scholarium/internal/domain/user"
)

// RegisterUseCase 用户注册用例
// 设计说明：
// 1. 用户与账户在同一事务内创建，不存在没有账户的用户
// 2. 账户显式创建，不依赖数据库钩子
type RegisterUseCase struct {
	users    user.Service
	accounts account.Repository
	tx       purchase.Transactor
	logger   *slog.Logger
}

// NewRegisterUseCase 创建注册用例
func NewRegisterUseCase(users user.Service, accounts account.Repository, tx purchase.Transactor, logger *slog.Logger) *RegisterUseCase {
	return &RegisterUseCase{users: users, accounts: accounts, tx: tx, logger: logger.With("component", "user.register")}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string
	Password string
	Nickname string
}

// RegisterResponse 注册响应（不含密码）
type RegisterResponse struct {
	ID        uint   `json:"id"`
	AccountID uint   `json:"account_id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
}

// Execute 执行注册
func (uc *RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		u, err := uc.users.Register(ctx, req.Email, req.Password, req.Nickname)
		if err != nil {
			return err
		}

		acct := account.New(u.ID)
		if err := uc.accounts.Create(ctx, acct); err != nil {
			return err
		}

		resp = RegisterResponse{ID: u.ID, AccountID: acct.ID, Email: u.Email, Nickname: u.Nickname}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.InfoContext(ctx, "用户已注册", "user_id", resp.ID, "account_id", resp.AccountID)
	return &resp, nil
}
