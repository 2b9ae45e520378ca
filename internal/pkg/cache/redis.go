package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"intake/internal/config"
)

// RedisCache Redis 客户端封装
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache 创建 Redis 客户端并检测连接
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return &RedisCache{client: client, prefix: KeyPrefix}, nil
}

// NewFromClient 包装已有客户端
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: KeyPrefix}
}

// Ping 检查连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Client 获取原始客户端
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Key 拼接带前缀的 key
func (c *RedisCache) Key(parts ...string) string {
	k := c.prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

// 常用 key 模式
const (
	KeyPrefix         = "intake:"
	UserLockScope     = "lock:user"
	ConversationScope = "lock:conv"
)

// UserLockKey 用户级锁（对话解析）
func UserLockKey(userID string) string {
	return UserLockScope + ":" + userID
}

// ConversationLockKey 对话级锁（轮次处理）
func ConversationLockKey(conversationID string) string {
	return ConversationScope + ":" + conversationID
}
