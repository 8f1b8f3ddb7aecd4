package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/xiebiao/scholarium/pkg/errors"
)

// DefaultCost bcrypt默认cost
const DefaultCost = 12

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	hasLetter    = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit     = regexp.MustCompile(`[0-9]`)
)

// Service 用户领域服务：注册校验与密码验证
type Service interface {
	Register(ctx context.Context, email, password, nickname string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
}

type service struct {
	repo Repository
	cost int
}

// NewService 创建用户服务，cost<=0时使用DefaultCost
func NewService(repo Repository, cost int) Service {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &service{repo: repo, cost: cost}
}

// Register 校验邮箱、密码强度和昵称后创建用户
// 邮箱唯一性由数据库UNIQUE索引保证
func (s *service) Register(ctx context.Context, email, password, nickname string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailPattern.MatchString(email) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "邮箱格式不正确")
	}
	if err := validatePasswordStrength(password); err != nil {
		return nil, err
	}
	if n := utf8.RuneCountInString(nickname); n < 2 || n > 50 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "昵称长度应为2-50个字符")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperrors.Wrap(err, "密码加密失败")
	}

	u := NewUser(email, string(hashed), nickname)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 邮箱不存在和密码错误都返回ErrInvalidPassword
func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.ErrInvalidPassword
	}
	if err != nil {
		return nil, err
	}

	if err := u.VerifyPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// validatePasswordStrength 8-20位，必须包含字母和数字
func validatePasswordStrength(password string) error {
	if len(password) < 8 || len(password) > 20 {
		return apperrors.ErrWeakPassword
	}
	if !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		return apperrors.ErrWeakPassword
	}
	return nil
}
