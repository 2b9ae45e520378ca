package conversation

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid 检查角色是否有效
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// String 返回角色字符串
func (r Role) String() string {
	return string(r)
}

// Message 消息实体，只追加不修改
// 同一对话内按 (Timestamp, Seq) 升序排列；Seq 在对话串行化下分配，时间戳相同时保证插入顺序
type Message struct {
	ID             string    `bson:"_id" json:"message_id"`
	ConversationID string    `bson:"conversation_id" json:"-"`
	Seq            int64     `bson:"seq" json:"-"`
	Role           Role      `bson:"role" json:"role"`
	Content        string    `bson:"content" json:"content"`
	AudioURL       string    `bson:"audio_url,omitempty" json:"audio_url"`
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
}

// HasContent 内容非空（去除空白后）
func (m *Message) HasContent() bool {
	return strings.TrimSpace(m.Content) != ""
}

// Collection 返回集合名称
func (m *Message) Collection() string {
	return "messages"
}

// EnsureIndexes 创建和维护索引
func (m *Message) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(m.Collection())
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "conversation_id", Value: 1}, bson.E{Key: "seq", Value: 1}},
			Options: options.Index().SetName("idx_conversation_seq").SetUnique(true),
		},
	})
	return err
}

// ContextMessage 交给生成模型的上下文消息
type ContextMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerationContext 构建生成上下文
//  1. 过滤内容为空（或仅空白）的消息
//  2. 若结果长度为奇数且最后一条为助手消息，则去掉最后一条，避免模型看到未被回答的问题
//
// 输入必须已按顺序排列；每次调用都重新计算，不做缓存
func GenerationContext(messages []*Message) []ContextMessage {
	out := make([]ContextMessage, 0, len(messages))
	for _, m := range messages {
		if !m.HasContent() {
			continue
		}
		out = append(out, ContextMessage{Role: m.Role, Content: m.Content})
	}

	if n := len(out); n%2 != 0 && out[n-1].Role == RoleAssistant {
		out = out[:n-1]
	}
	return out
}

// SortMessages 按 (Timestamp, Seq) 升序排序（原地）
func SortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Seq < b.Seq
	})
}

// NextTimestamp 返回不早于 last 的当前时间，保证同一对话内时间戳单调不减
func NextTimestamp(now, last time.Time) time.Time {
	if now.Before(last) {
		return last
	}
	return now
}
