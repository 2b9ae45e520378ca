package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intake/internal/model"
	"intake/internal/model/catalog"
)

// LoanTypes 贷款方案与支持语言
// @Summary      贷款方案
// @Tags         目录
// @Produce      json
// @Success      200  {object}  model.LoanTypesResponse
// @Router       /loan/types [get]
func (h *Handler) LoanTypes(c *gin.Context) {
	c.JSON(http.StatusOK, model.LoanTypesResponse{
		LoanTypes: catalog.LoanTypes(),
		Languages: catalog.Languages(),
	})
}
