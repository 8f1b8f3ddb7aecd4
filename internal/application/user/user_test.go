package user_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appuser "github.com/xiebiao/scholarium/internal/application/user"
	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/domain/user"
	"github.com/xiebiao/scholarium/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/jwt"
)

func TestRegisterAndLogin(t *testing.T) {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := mysql.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := mysql.NewAccountRepository(db)
	users := user.NewService(mysql.NewUserRepository(db), 4)
	manager := jwt.NewManager("test-secret", time.Hour, 24*time.Hour)

	register := appuser.NewRegisterUseCase(users, accounts, mysql.NewTxManager(db), logger)
	login := appuser.NewLoginUseCase(users, accounts, manager)

	var registered *appuser.RegisterResponse

	t.Run("注册同时创建账户", func(t *testing.T) {
		registered, err = register.Execute(ctx, appuser.RegisterRequest{
			Email: "Reader@Example.com", Password: "secret123", Nickname: "reader",
		})
		require.NoError(t, err)
		assert.Equal(t, "reader@example.com", registered.Email)

		acct, err := accounts.FindByUserID(ctx, registered.ID)
		require.NoError(t, err)
		assert.Equal(t, registered.AccountID, acct.ID)
		assert.Zero(t, acct.Balance)
	})

	t.Run("邮箱重复不创建账户", func(t *testing.T) {
		_, err := register.Execute(ctx, appuser.RegisterRequest{
			Email: "reader@example.com", Password: "secret123", Nickname: "other",
		})
		assert.ErrorIs(t, err, apperrors.ErrEmailDuplicate)
	})

	t.Run("弱密码", func(t *testing.T) {
		_, err := register.Execute(ctx, appuser.RegisterRequest{
			Email: "weak@example.com", Password: "password", Nickname: "weak",
		})
		assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

		_, err = accounts.FindByUserID(ctx, 2)
		assert.ErrorIs(t, err, account.ErrAccountNotFound)
	})

	t.Run("登录Token携带账户ID", func(t *testing.T) {
		resp, err := login.Execute(ctx, appuser.LoginRequest{Email: "reader@example.com", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, registered.AccountID, resp.User.AccountID)

		claims, err := manager.ParseToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, claims.UserID)
		assert.Equal(t, registered.AccountID, claims.AccountID)
	})

	t.Run("密码错误", func(t *testing.T) {
		_, err := login.Execute(ctx, appuser.LoginRequest{Email: "reader@example.com", Password: "wrong1234"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

		_, err = login.Execute(ctx, appuser.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
	})
}
