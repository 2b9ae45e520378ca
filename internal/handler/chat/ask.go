package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intake/internal/model"
	"intake/internal/server/middleware"
)

// Ask 处理一轮文字对话
// @Summary      发送一条消息
// @Description  记录用户发言，按固定顺序提问（用途、金额、收入），之后由模型给出贷款推荐；返回回复文本、音频地址与完整历史
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      model.AskRequest     true  "消息与语言代码"
// @Success      200      {object}  model.AskResponse
// @Failure      400      {object}  ErrorResponse  "缺少 message 或 language"
// @Failure      500      {object}  ErrorResponse  "存储或生成失败"
// @Failure      503      {object}  ErrorResponse  "对话繁忙"
// @Router       /ask [post]
func (h *Handler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}
	if req.Message == nil || req.Language == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Message and language are required",
		})
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.chatService.HandleTurn(c.Request.Context(), userID, *req.Message, *req.Language)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.SetActiveConversation(c, result.ConversationID)

	resp := model.AskResponse{
		Response:            result.ResponseText,
		ConversationID:      result.ConversationID,
		ConversationHistory: model.ToMessageInfoList(result.History),
	}
	if result.AudioURL != "" {
		resp.AudioURL = &result.AudioURL
	}
	c.JSON(http.StatusOK, resp)
}
