package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/xiebiao/scholarium/internal/application/shop"
	"github.com/xiebiao/scholarium/internal/domain/account"
	"github.com/xiebiao/scholarium/internal/interface/http/dto"
	"github.com/xiebiao/scholarium/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/scholarium/pkg/errors"
	"github.com/xiebiao/scholarium/pkg/response"
)

// ShopHandler 商品、购物车与下载
type ShopHandler struct {
	items     *shop.ItemUseCase
	cart      *shop.CartUseCase
	purchases *shop.ListPurchasesUseCase
	download  *shop.DownloadUseCase
}

// NewShopHandler 创建商店处理器
func NewShopHandler(
	items *shop.ItemUseCase,
	cart *shop.CartUseCase,
	purchases *shop.ListPurchasesUseCase,
	download *shop.DownloadUseCase,
) *ShopHandler {
	return &ShopHandler{items: items, cart: cart, purchases: purchases, download: download}
}

// ItemStatus 商品状态
// 未登录时按匿名访问计算价格与可访问性
// @Summary      商品状态
// @Tags         商品
// @Produce      json
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response{data=shop.ItemStatus}
// @Router       /api/v1/items/{id}/status [get]
func (h *ShopHandler) ItemStatus(c *gin.Context) {
	itemID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	status, err := h.items.Status(c.Request.Context(), itemID, middleware.GetAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status)
}

// RequestItem 申请价格或补货
// @Summary      申请商品
// @Tags         商品
// @Produce      json
// @Security     Bearer
// @Param        id path int true "商品ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/items/{id}/request [post]
func (h *ShopHandler) RequestItem(c *gin.Context) {
	itemID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.items.Request(c.Request.Context(), itemID, middleware.GetAccountID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Download 下载附件
// 成功时直接返回文件内容，失败时返回统一JSON结构
// @Summary      下载附件
// @Tags         商品
// @Produce      octet-stream
// @Security     Bearer
// @Param        id    path int true "商品ID"
// @Param        index path int true "附件序号（从0开始）"
// @Success      200 {file} binary
// @Router       /api/v1/items/{id}/download/{index} [get]
func (h *ShopHandler) Download(c *gin.Context) {
	itemID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "无效的index")
		return
	}

	file, err := h.download.Execute(c.Request.Context(), itemID, middleware.GetAccountID(c), index)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// GetCart 查看购物车（先清理失效条目）
// @Summary      查看购物车
// @Tags         购物车
// @Produce      json
// @Security     Bearer
// @Success      200 {object} response.Response{data=shop.CartView}
// @Router       /api/v1/cart [get]
func (h *ShopHandler) GetCart(c *gin.Context) {
	view, err := h.cart.View(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// AddToCart 加入购物车
// @Summary      加入购物车
// @Tags         购物车
// @Accept       json
// @Produce      json
// @Security     Bearer
// @Param        request body dto.AddToCartRequest true "商品"
// @Success      200 {object} response.Response{data=dto.AddToCartResponse}
// @Router       /api/v1/cart [post]
func (h *ShopHandler) AddToCart(c *gin.Context) {
	var req dto.AddToCartRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	added, err := h.cart.Add(c.Request.Context(), req.ItemID, middleware.GetAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.AddToCartResponse{Added: added})
}

// RemoveFromCart 移除购物车条目
// @Summary      移除购物车条目
// @Tags         购物车
// @Produce      json
// @Security     Bearer
// @Param        id path int true "购买记录ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/cart/{id} [delete]
func (h *ShopHandler) RemoveFromCart(c *gin.Context) {
	purchaseID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.cart.Remove(c.Request.Context(), purchaseID, middleware.GetAccountID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ExecuteCart 结算购物车
// 余额不足时不执行任何条目，返回余额不足错误码
// @Summary      结算购物车
// @Tags         购物车
// @Produce      json
// @Security     Bearer
// @Success      200 {object} response.Response{data=shop.ExecuteResult}
// @Router       /api/v1/cart/execute [post]
func (h *ShopHandler) ExecuteCart(c *gin.Context) {
	result, err := h.cart.Execute(c.Request.Context(), middleware.GetAccountID(c))
	if err != nil {
		if errors.Is(err, account.ErrInsufficientBalance) {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListPurchases 已购列表
// @Summary      已购列表
// @Tags         购物车
// @Produce      json
// @Security     Bearer
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData}
// @Router       /api/v1/purchases [get]
func (h *ShopHandler) ListPurchases(c *gin.Context) {
	var q dto.PageQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	page, err := h.purchases.Execute(c.Request.Context(), middleware.GetAccountID(c), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]dto.PurchaseItem, 0, len(page.List))
	for _, p := range page.List {
		list = append(list, dto.PurchaseItem{
			ID:       p.ID,
			ItemID:   p.ItemID,
			Title:    p.Title,
			Type:     p.Type,
			Quantity: p.Quantity,
			Total:    p.Total,
			Free:     p.Free,
			Date:     dto.FormatTime(p.Date),
		})
	}
	response.Success(c, response.NewPageData(list, page.Total, page.Page, page.PageSize))
}
