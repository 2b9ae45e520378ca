package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"intake/internal/model/conversation"
)

// EnsureIndexes 创建所有模型的索引
// 在应用启动和 migrate 命令中调用
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	models := []Model{
		&conversation.User{},
		&conversation.Conversation{},
		&conversation.Message{},
	}
	return EnsureAllIndexes(ctx, db, models...)
}
