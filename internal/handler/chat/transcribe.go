package chat

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"intake/internal/model"
	"intake/internal/server/middleware"
)

// MaxAudioBytes 上传音频大小上限
const MaxAudioBytes = 25 << 20

// Transcribe 语音转文字并记录为用户发言
// @Summary      上传语音
// @Description  识别上传的音频；language 为空时自动检测语言。识别结果作为用户发言写入当前对话，不生成回复
// @Tags         对话
// @Accept       multipart/form-data
// @Produce      json
// @Param        audio     formData  file    true   "音频文件"
// @Param        language  formData  string  false  "语言代码，如 hi"
// @Success      200       {object}  model.TranscribeResponse
// @Failure      400       {object}  ErrorResponse  "缺少音频"
// @Failure      500       {object}  ErrorResponse  "识别或存储失败"
// @Failure      503       {object}  ErrorResponse  "识别服务未配置"
// @Router       /transcribe [post]
func (h *Handler) Transcribe(c *gin.Context) {
	fh, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "No audio file provided",
		})
		return
	}
	if fh.Size > MaxAudioBytes {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Audio file too large",
			Detail:  fmt.Sprintf("max %d bytes", MaxAudioBytes),
		})
		return
	}

	language := c.PostForm("language")

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Unreadable audio file",
			Detail:  err.Error(),
		})
		return
	}
	defer f.Close()

	result, err := h.chatService.Transcribe(c.Request.Context(), userID, f, fh.Filename, language)
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.SetActiveConversation(c, result.ConversationID)

	c.JSON(http.StatusOK, model.TranscribeResponse{
		Transcription:       result.Transcription,
		DetectedLanguage:    result.DetectedLanguage,
		ConversationID:      result.ConversationID,
		ConversationHistory: model.ToMessageInfoList(result.History),
	})
}
