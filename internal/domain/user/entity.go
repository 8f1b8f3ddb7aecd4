package user

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// User 登录身份
// 余额、捐赠和购买记录都挂在同ID的账户上，用户本身只负责认证
type User struct {
	ID           uint
	Email        string
	PasswordHash string
	Nickname     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser hashedPassword必须已经过bcrypt
func NewUser(email, hashedPassword, nickname string) *User {
	now := time.Now()
	return &User{
		Email:        email,
		PasswordHash: hashedPassword,
		Nickname:     nickname,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// VerifyPassword 不匹配返回ErrInvalidPassword
func (u *User) VerifyPassword(password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return apperrors.ErrInvalidPassword
	default:
		return apperrors.Wrap(err, "密码验证失败")
	}
}
