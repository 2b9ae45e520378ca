// Package lock 提供按 key 串行化的互斥锁（进程内 / Redis）
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout 超过最大重试次数仍未获取到锁
var ErrLockTimeout = errors.New("lock: acquire timeout")

// Locker 按 key 加锁，返回的 unlock 只能调用一次
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker 进程内 key 锁
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewLocal 创建进程内锁
func NewLocal() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*entry)}
}

// Lock 获取 key 对应的锁，ctx 取消时返回 ctx.Err()
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *LocalLocker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len 当前被持有或等待的 key 数量
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
