package chat

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"intake/internal/model"
	"intake/internal/pkg/ctxutil"
	"intake/internal/repository"
	"intake/internal/service"
)

// ErrorResponse 错误响应类型别名
type ErrorResponse = model.ErrorResponse

// currentUser 从 context 中取出会话用户
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40002,
			Message: "User session not found",
		})
	}
	return userID, ok
}

// writeError 将业务错误映射为 HTTP 状态码与错误码
func writeError(c *gin.Context, err error) {
	status, code, msg := http.StatusInternalServerError, 50001, "Internal server error"

	switch {
	case errors.Is(err, service.ErrMissingInput):
		status, code, msg = http.StatusBadRequest, 40001, "Missing required input"
	case errors.Is(err, service.ErrSessionNotFound):
		status, code, msg = http.StatusBadRequest, 40002, "User session not found"
	case errors.Is(err, repository.ErrNotFound):
		status, code, msg = http.StatusNotFound, 40401, "Conversation not found"
	case errors.Is(err, service.ErrGenerationFailure):
		status, code, msg = http.StatusInternalServerError, 50002, "Failed to generate response"
	case errors.Is(err, service.ErrTranscriptionFailure):
		status, code, msg = http.StatusInternalServerError, 50002, "Failed to transcribe audio"
	case errors.Is(err, service.ErrTranscriptionDisabled),
		errors.Is(err, service.ErrConversationBusy),
		errors.Is(err, context.DeadlineExceeded):
		status, code, msg = http.StatusServiceUnavailable, 50301, "Service temporarily unavailable"
	case errors.Is(err, service.ErrStorageFailure):
		msg = "Storage failure"
	}

	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Int("code", code).
		Str("path", c.Request.URL.Path).
		Str("request_id", c.GetString("request_id")).
		Msg("Request failed")

	resp := ErrorResponse{Code: code, Message: msg}
	if status < http.StatusInternalServerError {
		resp.Detail = err.Error()
	}
	c.JSON(status, resp)
}
