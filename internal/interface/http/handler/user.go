package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	appuser "github.com/xiebiao/scholarium/internal/application/user"
	"github.com/xiebiao/scholarium/internal/interface/http/dto"
	"github.com/xiebiao/scholarium/pkg/response"
)

// UserHandler 注册与登录
type UserHandler struct {
	register *appuser.RegisterUseCase
	login    *appuser.LoginUseCase
}

func NewUserHandler(register *appuser.RegisterUseCase, login *appuser.LoginUseCase) *UserHandler {
	return &UserHandler{register: register, login: login}
}

// Register 用户注册
// @Summary      用户注册
// @Description  创建用户，同时开立余额为0的账户
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.RegisterRequest true "注册信息"
// @Success      200 {object} response.Response{data=dto.UserResponse} "注册成功"
// @Failure      200 {object} response.Response "参数错误或邮箱已存在"
// @Router       /api/v1/users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	created, err := h.register.Execute(c.Request.Context(), appuser.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, userResponse(appuser.UserInfo(*created)))
}

// Login 用户登录
// @Summary      用户登录
// @Description  校验邮箱密码并签发Token，旧用户缺少账户时补建
// @Tags         用户
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "登录信息"
// @Success      200 {object} response.Response{data=dto.LoginResponse} "登录成功"
// @Router       /api/v1/users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	session, err := h.login.Execute(c.Request.Context(), appuser.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.LoginResponse{
		User:         *userResponse(session.User),
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	})
}

func userResponse(u appuser.UserInfo) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        u.ID,
		AccountID: u.AccountID,
		Email:     u.Email,
		Nickname:  u.Nickname,
	}
}
