// Package sqlstore 基于 GORM 的关系型存储（PostgreSQL / SQLite）
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"intake/internal/model/conversation"
	"intake/internal/pkg/id"
	"intake/internal/repository"
)

// Store GORM 存储
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open 根据驱动类型打开数据库
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return New(db), nil
}

// New 使用已有连接创建存储
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: now}
}

// now 截断到微秒，与 PostgreSQL timestamp 精度一致
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

var _ repository.Store = (*Store)(nil)

// CreateUser 创建匿名用户
func (s *Store) CreateUser(ctx context.Context) (string, error) {
	u := &UserModel{UserID: id.New(), CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return u.UserID, nil
}

// GetUser 查询用户
func (s *Store) GetUser(ctx context.Context, userID string) (*conversation.User, error) {
	var m UserModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &conversation.User{ID: m.UserID, CreatedAt: m.CreatedAt}, nil
}

// CreateConversation 创建对话，用户不存在时返回 ErrNotFound 而不是外键错误
func (s *Store) CreateConversation(ctx context.Context, userID, languageCode string) (*conversation.Conversation, error) {
	ts := s.now()
	m := &ConversationModel{
		ConversationID: id.New(),
		UserID:         userID,
		LanguageCode:   languageCode,
		StartedAt:      ts,
		LastUpdatedAt:  ts,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&UserModel{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
		}
		if err := tx.Omit("User").Create(m).Error; err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// GetConversation 根据 ID 查询对话
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	var m ConversationModel
	err := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return m.ToDomain(), nil
}

// AppendMessage 在事务中锁定对话行、插入消息并推进对话状态
func (s *Store) AppendMessage(ctx context.Context, conversationID string, role conversation.Role, content, audioURL string) (*conversation.Message, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidRole, role)
	}

	var out *conversation.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv ConversationModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ?", conversationID).
			First(&conv).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("lock conversation: %w", err)
		}

		msg := &MessageModel{
			MessageID:      id.New(),
			ConversationID: conversationID,
			Seq:            conv.MessageSeq + 1,
			Role:           role.String(),
			Content:        content,
			Timestamp:      conversation.NextTimestamp(s.now(), conv.LastUpdatedAt),
		}
		if audioURL != "" {
			msg.AudioURL = &audioURL
		}
		if err := tx.Omit("Conversation").Create(msg).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		stage := conversation.Stage(conv.InterviewStage)
		if role == conversation.RoleAssistant {
			stage = stage.Advance()
		}
		err = tx.Model(&ConversationModel{}).
			Where("conversation_id = ?", conversationID).
			Updates(map[string]interface{}{
				"message_seq":     msg.Seq,
				"last_updated_at": msg.Timestamp,
				"interview_stage": int(stage),
			}).Error
		if err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}

		out = msg.ToDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages 按顺序返回消息
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]*conversation.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp asc").
		Order("seq asc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []*MessageModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	msgs := make([]*conversation.Message, len(models))
	for i, m := range models {
		msgs[i] = m.ToDomain()
	}
	return msgs, nil
}

// MessagesForGeneration 返回生成上下文
func (s *Store) MessagesForGeneration(ctx context.Context, conversationID string) ([]conversation.ContextMessage, error) {
	return repository.MessagesForGeneration(ctx, s, conversationID)
}

// LatestConversation 返回最后活跃的对话
func (s *Store) LatestConversation(ctx context.Context, userID string) (*conversation.Conversation, error) {
	var m ConversationModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated_at desc").
		Order("started_at desc").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find latest conversation: %w", err)
	}
	return m.ToDomain(), nil
}

// ListConversations 返回用户全部对话
func (s *Store) ListConversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	var models []*ConversationModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_updated_at desc").
		Order("started_at desc").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}

	convs := make([]*conversation.Conversation, len(models))
	for i, m := range models {
		convs[i] = m.ToDomain()
	}
	return convs, nil
}

// EnsureSchema 自动迁移表结构
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&UserModel{}, &ConversationModel{}, &MessageModel{})
}

// Ping 检查连接
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接
func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
