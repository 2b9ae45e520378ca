package chat

import (
	"context"
	"io"

	"intake/internal/model/conversation"
	"intake/internal/service"
)

// ChatService handler 依赖的对话服务
type ChatService interface {
	HandleTurn(ctx context.Context, userID, text, languageCode string) (*service.TurnResult, error)
	Transcribe(ctx context.Context, userID string, audio io.Reader, filename, languageCode string) (*service.TranscribeResult, error)
	History(ctx context.Context, userID, activeConversationID string) (*service.HistoryResult, error)
	Conversations(ctx context.Context, userID string) ([]*conversation.Conversation, error)
}

// Handler 对话模块处理器
type Handler struct {
	chatService ChatService
}

// NewHandler 创建对话模块处理器
func NewHandler(chatService ChatService) *Handler {
	return &Handler{chatService: chatService}
}
