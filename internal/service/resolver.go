package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"intake/internal/model/conversation"
	"intake/internal/pkg/cache"
	"intake/internal/pkg/lock"
	"intake/internal/repository"
)

// Resolver 为用户选择当前对话：同语言复用最近对话，否则新建
type Resolver struct {
	store  repository.Store
	locker lock.Locker
}

// NewResolver 创建对话解析器
func NewResolver(store repository.Store, locker lock.Locker) *Resolver {
	return &Resolver{store: store, locker: locker}
}

// Resolve 返回用户在该语言下的当前对话
func (r *Resolver) Resolve(ctx context.Context, userID, languageCode string) (*conversation.Conversation, error) {
	if userID == "" {
		return nil, ErrSessionNotFound
	}
	if languageCode == "" {
		return nil, fmt.Errorf("%w: language", ErrMissingInput)
	}

	// 同一用户的并发请求不能各自新建对话
	unlock, err := r.locker.Lock(ctx, cache.UserLockKey(userID))
	if err != nil {
		return nil, lockErr(err)
	}
	defer unlock()

	latest, err := r.store.LatestConversation(ctx, userID)
	switch {
	case err == nil && latest.LanguageCode == languageCode:
		return latest, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, storageErr("latest conversation", err)
	}

	conv, err := r.store.CreateConversation(ctx, userID, languageCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrSessionNotFound, err)
		}
		return nil, storageErr("create conversation", err)
	}

	ev := log.Info().Str("user_id", userID).Str("conversation_id", conv.ID).Str("language", languageCode)
	if latest != nil {
		ev = ev.Str("previous_language", latest.LanguageCode)
	}
	ev.Msg("Conversation started")

	return conv, nil
}

func lockErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConversationBusy, err)
}
