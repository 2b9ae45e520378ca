package storefactory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"intake/internal/config"
	"intake/internal/pkg/mongodb"
	"intake/internal/repository"
	"intake/internal/repository/memstore"
	"intake/internal/repository/mongostore"
	"intake/internal/repository/sqlstore"
)

// NewStore 根据配置创建持久化后端
func NewStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store.Type {
	case "memory", "":
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return memstore.New(), nil
	case "mongo":
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		log.Info().
			Str("database", cfg.Mongo.Database).
			Bool("transactions", cfg.Store.Transactions).
			Msg("Connected to MongoDB")
		return mongostore.New(client, cfg.Store.Transactions), nil
	case "postgres", "sqlite":
		s, err := sqlstore.Open(cfg.Store.Type, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("ping %s: %w", cfg.Store.Type, err)
		}
		log.Info().Str("driver", cfg.Store.Type).Msg("Connected to SQL store")
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Store.Type)
	}
}
