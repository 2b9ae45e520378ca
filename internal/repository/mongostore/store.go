// Package mongostore MongoDB 持久化实现
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"intake/internal/model/conversation"
	"intake/internal/pkg/id"
	"intake/internal/pkg/mongodb"
	"intake/internal/repository"
)

// Store MongoDB 存储
// users / conversations / messages 三个集合，ID 使用 UUID 字符串
type Store struct {
	client        *mongodb.Client
	users         *mongo.Collection
	conversations *mongo.Collection
	messages      *mongo.Collection
	transactions  bool
}

// New 创建 MongoDB 存储
// transactions 为 true 时 AppendMessage 在多文档事务中执行（需要副本集）
func New(client *mongodb.Client, transactions bool) *Store {
	db := client.Database()
	return &Store{
		client:        client,
		users:         db.Collection((&conversation.User{}).Collection()),
		conversations: db.Collection((&conversation.Conversation{}).Collection()),
		messages:      db.Collection((&conversation.Message{}).Collection()),
		transactions:  transactions,
	}
}

var _ repository.Store = (*Store)(nil)

// now 截断到毫秒，与 BSON 日期精度一致
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// CreateUser 创建匿名用户
func (s *Store) CreateUser(ctx context.Context) (string, error) {
	u := &conversation.User{ID: id.New(), CreatedAt: now()}
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return u.ID, nil
}

// GetUser 查询用户
func (s *Store) GetUser(ctx context.Context, userID string) (*conversation.User, error) {
	var u conversation.User
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// CreateConversation 创建对话，用户不存在返回 ErrNotFound
func (s *Store) CreateConversation(ctx context.Context, userID, languageCode string) (*conversation.Conversation, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}

	ts := now()
	conv := &conversation.Conversation{
		ID:             id.New(),
		UserID:         userID,
		LanguageCode:   languageCode,
		InterviewStage: conversation.StagePurpose,
		StartedAt:      ts,
		LastUpdatedAt:  ts,
	}
	if _, err := s.conversations.InsertOne(ctx, conv); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// GetConversation 根据 ID 查询对话
// 返回前补齐尚未计入对话计数的消息，读到的阶段总是与已落库的消息一致
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*conversation.Conversation, error) {
	var conv conversation.Conversation
	err := s.conversations.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if err := s.rollForward(ctx, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// AppendMessage 追加消息
//
// 消息先插入，(conversation_id, seq) 唯一索引保证每个序号只有一条消息；
// 随后以 message_seq 作为条件推进对话计数。消息是唯一的事实来源，计数更新若丢失
// （进程退出、网络错误），下一次 GetConversation 会按已落库的消息补齐，
// 因此不会出现阶段已推进而消息不存在的状态。
// transactions 为 true 时两步在同一个多文档事务中提交。
func (s *Store) AppendMessage(ctx context.Context, conversationID string, role conversation.Role, content, audioURL string) (*conversation.Message, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidRole, role)
	}

	if s.transactions {
		res, err := s.client.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return s.appendOnce(sc, conversationID, role, content, audioURL)
		})
		if err != nil {
			return nil, err
		}
		return res.(*conversation.Message), nil
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		msg, err := s.appendOnce(ctx, conversationID, role, content, audioURL)
		if errors.Is(err, errSeqTaken) {
			continue
		}
		return msg, err
	}
	return nil, fmt.Errorf("append message to %s: %w", conversationID, errSeqTaken)
}

const maxAppendAttempts = 5

// errSeqTaken 序号已被并发写入占用，重新读取后重试
var errSeqTaken = errors.New("message seq already taken")

func (s *Store) appendOnce(ctx context.Context, conversationID string, role conversation.Role, content, audioURL string) (*conversation.Message, error) {
	conv, err := s.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &conversation.Message{
		ID:             id.New(),
		ConversationID: conversationID,
		Seq:            conv.MessageSeq + 1,
		Role:           role,
		Content:        content,
		AudioURL:       audioURL,
		Timestamp:      conversation.NextTimestamp(now(), conv.LastUpdatedAt),
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errSeqTaken
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := s.advance(ctx, conv, msg); err != nil {
		if s.transactions {
			return nil, err
		}
		// 消息已落库，计数由下一次读取补齐
		log.Error().Err(err).
			Str("conversation_id", conversationID).
			Int64("seq", msg.Seq).
			Msg("Failed to advance conversation counters, will roll forward on next read")
	}
	return msg, nil
}

// advance 把对话计数推进到 msg；以 message_seq 为条件，重复执行无副作用
func (s *Store) advance(ctx context.Context, conv *conversation.Conversation, msg *conversation.Message) error {
	stage := conv.InterviewStage
	if msg.Role == conversation.RoleAssistant {
		stage = stage.Advance()
	}
	last := conversation.NextTimestamp(msg.Timestamp, conv.LastUpdatedAt)

	filter := bson.M{"_id": conv.ID, "message_seq": conv.MessageSeq}
	update := bson.M{"$set": bson.M{
		"message_seq":     msg.Seq,
		"interview_stage": stage,
		"last_updated_at": last,
	}}
	if _, err := s.conversations.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("advance conversation: %w", err)
	}

	conv.MessageSeq = msg.Seq
	conv.InterviewStage = stage
	conv.LastUpdatedAt = last
	return nil
}

// rollForward 依次补齐序号大于 message_seq 的消息
func (s *Store) rollForward(ctx context.Context, conv *conversation.Conversation) error {
	for {
		var next conversation.Message
		err := s.messages.FindOne(ctx, bson.M{"conversation_id": conv.ID, "seq": conv.MessageSeq + 1}).Decode(&next)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find pending message: %w", err)
		}

		log.Warn().Str("conversation_id", conv.ID).Int64("seq", next.Seq).Msg("Rolling forward conversation counters")
		if err := s.advance(ctx, conv, &next); err != nil {
			return err
		}
	}
}

// ListMessages 按顺序返回消息
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]*conversation.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{
		bson.E{Key: "timestamp", Value: 1},
		bson.E{Key: "seq", Value: 1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	msgs := make([]*conversation.Message, 0)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return msgs, nil
}

// MessagesForGeneration 返回生成上下文
func (s *Store) MessagesForGeneration(ctx context.Context, conversationID string) ([]conversation.ContextMessage, error) {
	return repository.MessagesForGeneration(ctx, s, conversationID)
}

// LatestConversation 返回最后活跃的对话
func (s *Store) LatestConversation(ctx context.Context, userID string) (*conversation.Conversation, error) {
	opts := options.FindOne().SetSort(bson.D{
		bson.E{Key: "last_updated_at", Value: -1},
		bson.E{Key: "started_at", Value: -1},
	})

	var conv conversation.Conversation
	err := s.conversations.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find latest conversation: %w", err)
	}
	return &conv, nil
}

// ListConversations 返回用户全部对话
func (s *Store) ListConversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	opts := options.Find().SetSort(bson.D{
		bson.E{Key: "last_updated_at", Value: -1},
		bson.E{Key: "started_at", Value: -1},
	})

	cursor, err := s.conversations.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversations: %w", err)
	}
	defer cursor.Close(ctx)

	convs := make([]*conversation.Conversation, 0)
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return convs, nil
}

// EnsureSchema 创建索引
func (s *Store) EnsureSchema(ctx context.Context) error {
	return mongodb.EnsureIndexes(ctx, s.client.Database())
}

// Ping 检查连接
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close 关闭连接
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
