package repository

import (
	"context"
	"errors"

	"intake/internal/model/conversation"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrInvalidRole 消息角色无效
	ErrInvalidRole = errors.New("invalid message role")
)

// Store 用户/对话/消息的持久化接口，是三类实体唯一的写入方
//
// AppendMessage 在同一逻辑操作中完成：插入消息、推进对话序号、刷新最后活跃时间、
// （助手消息时）推进访谈阶段；要么全部可见，要么全部不可见。
type Store interface {
	// CreateUser 创建匿名用户并返回 ID
	CreateUser(ctx context.Context) (string, error)

	// GetUser 查询用户，不存在返回 ErrNotFound
	GetUser(ctx context.Context, userID string) (*conversation.User, error)

	// CreateConversation 创建对话，创建时间与最后活跃时间相同；用户不存在返回 ErrNotFound
	CreateConversation(ctx context.Context, userID, languageCode string) (*conversation.Conversation, error)

	// GetConversation 根据 ID 查询对话，不存在返回 ErrNotFound
	GetConversation(ctx context.Context, conversationID string) (*conversation.Conversation, error)

	// AppendMessage 追加消息，audioURL 为空表示没有音频
	AppendMessage(ctx context.Context, conversationID string, role conversation.Role, content, audioURL string) (*conversation.Message, error)

	// ListMessages 按时间升序返回消息，limit <= 0 表示全部
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*conversation.Message, error)

	// MessagesForGeneration 返回过滤、修剪后的生成上下文
	MessagesForGeneration(ctx context.Context, conversationID string) ([]conversation.ContextMessage, error)

	// LatestConversation 返回最后活跃的对话，没有对话返回 ErrNotFound
	LatestConversation(ctx context.Context, userID string) (*conversation.Conversation, error)

	// ListConversations 返回用户全部对话，最后活跃时间倒序
	ListConversations(ctx context.Context, userID string) ([]*conversation.Conversation, error)

	// EnsureSchema 创建索引 / 迁移表结构
	EnsureSchema(ctx context.Context) error

	// Ping 检查后端可用性
	Ping(ctx context.Context) error

	// Close 释放连接
	Close(ctx context.Context) error
}

// MessagesForGeneration 基于 ListMessages 的通用实现，供各后端复用
func MessagesForGeneration(ctx context.Context, s Store, conversationID string) ([]conversation.ContextMessage, error) {
	msgs, err := s.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return nil, err
	}
	return conversation.GenerationContext(msgs), nil
}
