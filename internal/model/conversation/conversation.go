package conversation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Conversation 对话实体
// LanguageCode 创建后不可修改，切换语言必须开启新对话
type Conversation struct {
	ID             string    `bson:"_id" json:"conversation_id"`
	UserID         string    `bson:"user_id" json:"-"`
	LanguageCode   string    `bson:"language_code" json:"language_code"`
	InterviewStage Stage     `bson:"interview_stage" json:"interview_stage"` // 已发出的助手回合数（封顶于 StageComplete）
	MessageSeq     int64     `bson:"message_seq" json:"-"`                   // 最近一条消息的序号
	StartedAt      time.Time `bson:"started_at" json:"started_at"`
	LastUpdatedAt  time.Time `bson:"last_updated_at" json:"last_updated_at"`
}

// Collection 返回集合名称
func (c *Conversation) Collection() string {
	return "conversations"
}

// EnsureIndexes 创建和维护索引
func (c *Conversation) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(c.Collection())
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{bson.E{Key: "user_id", Value: 1}, bson.E{Key: "last_updated_at", Value: -1}},
			Options: options.Index().SetName("idx_user_updated"),
		},
	})
	return err
}

// Stage 访谈阶段
// 数值等于该对话中已经追加的助手回合数，3 及以上均视为完成
type Stage int

const (
	StagePurpose  Stage = 0 // 尚未提问
	StageAmount   Stage = 1 // 已问用途
	StageIncome   Stage = 2 // 已问金额
	StageComplete Stage = 3 // 三个问题均已发出，交给生成模型给出推荐
)

// Advance 返回追加一条助手回合后的阶段
func (s Stage) Advance() Stage {
	if s >= StageComplete {
		return StageComplete
	}
	return s + 1
}

// String 返回阶段名称
func (s Stage) String() string {
	switch {
	case s <= StagePurpose:
		return "purpose"
	case s == StageAmount:
		return "amount"
	case s == StageIncome:
		return "income"
	default:
		return "complete"
	}
}
