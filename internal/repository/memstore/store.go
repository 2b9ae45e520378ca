// Package memstore 进程内存储，用于开发和测试
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"intake/internal/model/conversation"
	"intake/internal/pkg/id"
	"intake/internal/repository"
)

// Store 内存存储
// 单把读写锁串行化所有写操作；返回值均为拷贝，调用方修改不会影响存储内容
type Store struct {
	mu            sync.RWMutex
	users         map[string]*conversation.User
	conversations map[string]*conversation.Conversation
	messages      map[string][]*conversation.Message
	created       map[string]uint64 // 对话创建顺序，时间相同时作为排序依据
	counter       uint64
	now           func() time.Time
}

// New 创建内存存储
func New() *Store {
	return &Store{
		users:         make(map[string]*conversation.User),
		conversations: make(map[string]*conversation.Conversation),
		messages:      make(map[string][]*conversation.Message),
		created:       make(map[string]uint64),
		now:           time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

var _ repository.Store = (*Store)(nil)

// CreateUser 创建匿名用户
func (s *Store) CreateUser(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &conversation.User{ID: id.New(), CreatedAt: s.now()}
	s.users[u.ID] = u
	return u.ID, nil
}

// GetUser 查询用户
func (s *Store) GetUser(ctx context.Context, userID string) (*conversation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// CreateConversation 创建对话
func (s *Store) CreateConversation(ctx context.Context, userID, languageCode string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}

	now := s.now()
	conv := &conversation.Conversation{
		ID:             id.New(),
		UserID:         userID,
		LanguageCode:   languageCode,
		InterviewStage: conversation.StagePurpose,
		StartedAt:      now,
		LastUpdatedAt:  now,
	}
	s.conversations[conv.ID] = conv
	s.counter++
	s.created[conv.ID] = s.counter

	cp := *conv
	return &cp, nil
}

// GetConversation 查询对话
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

// AppendMessage 追加消息并刷新对话状态
func (s *Store) AppendMessage(ctx context.Context, conversationID string, role conversation.Role, content, audioURL string) (*conversation.Message, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	ts := conversation.NextTimestamp(s.now(), conv.LastUpdatedAt)
	msg := &conversation.Message{
		ID:             id.New(),
		ConversationID: conversationID,
		Seq:            conv.MessageSeq + 1,
		Role:           role,
		Content:        content,
		AudioURL:       audioURL,
		Timestamp:      ts,
	}

	s.messages[conversationID] = append(s.messages[conversationID], msg)
	conv.MessageSeq = msg.Seq
	conv.LastUpdatedAt = ts
	if role == conversation.RoleAssistant {
		conv.InterviewStage = conv.InterviewStage.Advance()
	}

	cp := *msg
	return &cp, nil
}

// ListMessages 按顺序返回消息快照
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]*conversation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, repository.ErrNotFound
	}

	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}

	out := make([]*conversation.Message, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	conversation.SortMessages(out)
	return out, nil
}

// MessagesForGeneration 返回生成上下文
func (s *Store) MessagesForGeneration(ctx context.Context, conversationID string) ([]conversation.ContextMessage, error) {
	return repository.MessagesForGeneration(ctx, s, conversationID)
}

// LatestConversation 返回最后活跃的对话
func (s *Store) LatestConversation(ctx context.Context, userID string) (*conversation.Conversation, error) {
	convs, err := s.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, repository.ErrNotFound
	}
	return convs[0], nil
}

// ListConversations 返回用户的全部对话（最后活跃时间倒序）
func (s *Store) ListConversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*conversation.Conversation
	for _, conv := range s.conversations {
		if conv.UserID != userID {
			continue
		}
		cp := *conv
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastUpdatedAt.Equal(out[j].LastUpdatedAt) {
			return out[i].LastUpdatedAt.After(out[j].LastUpdatedAt)
		}
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return s.created[out[i].ID] > s.created[out[j].ID]
	})
	return out, nil
}

// EnsureSchema 内存存储无需建表
func (s *Store) EnsureSchema(ctx context.Context) error { return nil }

// Ping 内存存储始终可用
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close 内存存储无需释放资源
func (s *Store) Close(ctx context.Context) error { return nil }
