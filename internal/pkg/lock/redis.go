package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"intake/internal/pkg/cache"
	"intake/internal/pkg/id"
)

// 仅当值匹配时删除，避免释放他人持有的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// 仅当值匹配时续期
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker 基于 SETNX 的分布式锁
// 持有期间每 ttl/3 续期一次，回合耗时超过 ttl 也不会被其他请求抢占；
// 进程退出后续期停止，锁在 ttl 后自动释放
type RedisLocker struct {
	cache       *cache.RedisCache
	ttl         time.Duration
	maxAttempts int
	backoff     time.Duration
}

// NewRedis 创建 Redis 锁
func NewRedis(c *cache.RedisCache, ttl time.Duration, maxAttempts int, backoff time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 100
	}
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	return &RedisLocker{cache: c, ttl: ttl, maxAttempts: maxAttempts, backoff: backoff}
}

// Lock 获取锁，失败时按 backoff 重试
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.cache.Key(key)
	token := id.New()
	client := l.cache.Client()

	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		ok, err := client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", lockKey, err)
		}
		if ok {
			return l.hold(client, lockKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrLockTimeout, lockKey)
}

// hold 启动续期并返回释放函数
func (l *RedisLocker) hold(client *redis.Client, lockKey, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.watchdog(client, lockKey, token, stop)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			// 请求 ctx 可能已取消，释放时使用独立超时
			rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := unlockScript.Run(rctx, client, []string{lockKey}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", lockKey).Msg("Failed to release lock")
			}
		})
	}
}

func (l *RedisLocker) watchdog(client *redis.Client, lockKey, token string, stop <-chan struct{}) {
	interval := l.ttl / 3
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		rctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := renewScript.Run(rctx, client, []string{lockKey}, token, l.ttl.Milliseconds()).Int64()
		cancel()

		switch {
		case err != nil:
			log.Warn().Err(err).Str("key", lockKey).Msg("Failed to renew lock")
		case n == 0:
			log.Error().Str("key", lockKey).Msg("Lock lost before release")
			return
		}
	}
}
