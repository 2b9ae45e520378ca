package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intake/internal/model"
	"intake/internal/pkg/ctxutil"
)

// History 获取当前对话历史
// @Summary      当前对话历史
// @Description  返回会话中的当前对话，没有时返回最近的对话；用户没有任何对话时 conversation_id 与 language_code 为 null
// @Tags         对话
// @Produce      json
// @Success      200  {object}  model.HistoryResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /conversation/history [get]
func (h *Handler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	active, _ := ctxutil.GetConversationID(c.Request.Context())

	result, err := h.chatService.History(c.Request.Context(), userID, active)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := model.HistoryResponse{Messages: model.ToMessageInfoList(result.Messages)}
	if conv := result.Conversation; conv != nil {
		resp.ConversationID = &conv.ID
		resp.LanguageCode = &conv.LanguageCode
	}
	c.JSON(http.StatusOK, resp)
}

// ListConversations 列出用户全部对话
// @Summary      对话列表
// @Description  按最后活跃时间倒序返回当前用户的所有对话
// @Tags         对话
// @Produce      json
// @Success      200  {object}  model.ConversationListResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /conversation/list [get]
func (h *Handler) ListConversations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	convs, err := h.chatService.Conversations(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.ConversationListResponse{
		Conversations: model.ToConversationInfoList(convs),
	})
}
