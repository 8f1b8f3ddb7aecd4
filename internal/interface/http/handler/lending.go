package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	applending "github.com/xiebiao/scholarium/internal/application/lending"
	"github.com/xiebiao/scholarium/internal/interface/http/dto"
	"github.com/xiebiao/scholarium/internal/interface/http/middleware"
	"github.com/xiebiao/scholarium/pkg/response"
)

// LendingHandler 读者的出借
type LendingHandler struct {
	lendings *applending.UseCase
}

func NewLendingHandler(lendings *applending.UseCase) *LendingHandler {
	return &LendingHandler{lendings: lendings}
}

// ListLendings 我的出借，默认只列未归还的
// @Summary      出借列表
// @Tags         出借
// @Produce      json
// @Security     Bearer
// @Param        all query bool false "包含已归还"
// @Success      200 {object} response.Response{data=[]dto.LendingItem}
// @Router       /api/v1/lendings [get]
func (h *LendingHandler) ListLendings(c *gin.Context) {
	var q dto.LendingQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	views, err := h.lendings.List(c.Request.Context(), middleware.GetAccountID(c), !q.All)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]dto.LendingItem, 0, len(views))
	for _, v := range views {
		created := v.CreatedAt
		list = append(list, dto.LendingItem{
			ID:       v.ID,
			ItemID:   v.ItemID,
			Title:    v.Title,
			Shipped:  dto.FormatTime(v.Shipped),
			Returned: dto.FormatTime(v.Returned),
			Charged:  dto.FormatTime(v.Charged),
			Date:     dto.FormatTime(&created),
		})
	}
	response.Success(c, list)
}
