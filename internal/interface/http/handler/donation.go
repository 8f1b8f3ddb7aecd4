package handler

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/xiebiao/scholarium/internal/application/donation"
	"github.com/xiebiao/scholarium/internal/interface/http/dto"
	"github.com/xiebiao/scholarium/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/response"
)

// CallbackSecretHeader 支付网关回调携带的共享密钥
const CallbackSecretHeader = "X-Callback-Secret"

// DonationHandler 捐赠与支付回调
type DonationHandler struct {
	donations      *donation.UseCase
	callbackSecret string
}

// NewDonationHandler 创建捐赠处理器
// callbackSecret为空时不校验回调来源（仅用于开发环境）
func NewDonationHandler(donations *donation.UseCase, callbackSecret string) *DonationHandler {
	return &DonationHandler{donations: donations, callbackSecret: callbackSecret}
}

// StartDonation 发起捐赠，返回待支付记录
// @Summary      发起捐赠
// @Tags         捐赠
// @Accept       json
// @Produce      json
// @Security     Bearer
// @Param        request body dto.StartDonationRequest true "捐赠信息"
// @Success      200 {object} response.Response{data=donation.Pending}
// @Router       /api/v1/donations [post]
func (h *DonationHandler) StartDonation(c *gin.Context) {
	var req dto.StartDonationRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	pending, err := h.donations.Start(c.Request.Context(), donation.StartRequest{
		AccountID: middleware.GetAccountID(c),
		Amount:    req.Amount,
		Method:    req.Method,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, pending)
}

// Summary 当前账户的余额、捐赠等级与有效期
// @Summary      捐赠概况
// @Tags         捐赠
// @Produce      json
// @Security     Bearer
// @Success      200 {object} response.Response{data=donation.Summary}
// @Router       /api/v1/donations/me [get]
func (h *DonationHandler) Summary(c *gin.Context) {
	summary, err := h.donations.Summary(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

// Levels 捐赠等级列表
// @Summary      捐赠等级
// @Tags         捐赠
// @Produce      json
// @Success      200 {object} response.Response{data=[]account.Level}
// @Router       /api/v1/donations/levels [get]
func (h *DonationHandler) Levels(c *gin.Context) {
	levels, err := h.donations.Levels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, levels)
}

// PaymentCallback 支付网关回调
// 支付成功后执行捐赠、充值并自动结算购物车；重复回调直接返回成功
// @Summary      支付回调
// @Tags         捐赠
// @Accept       json
// @Produce      json
// @Param        request body dto.PaymentCallbackRequest true "回调内容"
// @Success      200 {object} response.Response{data=donation.Outcome}
// @Router       /api/v1/payments/callback [post]
func (h *DonationHandler) PaymentCallback(c *gin.Context) {
	if h.callbackSecret != "" {
		got := c.GetHeader(CallbackSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.callbackSecret)) != 1 {
			response.Error(c, apperrors.ErrForbidden)
			return
		}
	}

	var req dto.PaymentCallbackRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	outcome, err := h.donations.Confirm(c.Request.Context(), donation.Callback{
		PaymentID:      req.PaymentID,
		Succeeded:      req.Succeeded,
		PayerReference: req.PayerReference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, outcome)
}
