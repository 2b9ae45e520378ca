package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"intake/internal/ai"
	"intake/internal/config"
	"intake/internal/handler"
	chatHandler "intake/internal/handler/chat"
	"intake/internal/pkg/cache"
	"intake/internal/pkg/jwt"
	"intake/internal/pkg/lock"
	"intake/internal/pkg/storage"
	"intake/internal/pkg/storage/local"
	"intake/internal/pkg/storagefactory"
	"intake/internal/pkg/stt"
	"intake/internal/pkg/tts"
	"intake/internal/repository"
	"intake/internal/repository/storefactory"
	"intake/internal/server/middleware"
	"intake/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	store    repository.Store
	redis    *cache.RedisCache
	aiClient *ai.Client
	audio    storage.Storage
	chatSvc  *service.ChatService
	jwt      *jwt.JWT
}

// New 创建服务器实例
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storefactory.NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	srv := &Server{
		cfg:    cfg,
		engine: gin.New(),
		store:  store,
		jwt:    jwt.NewJWT(cfg.Session.Secret, cfg.Session.TTL),
	}

	locker, err := srv.initLocker()
	if err != nil {
		srv.close()
		return nil, err
	}

	srv.aiClient, err = ai.NewClient(ctx, &cfg.AI)
	if err != nil {
		srv.close()
		return nil, fmt.Errorf("init ai client: %w", err)
	}

	srv.audio, err = storagefactory.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		srv.close()
		return nil, fmt.Errorf("init audio storage: %w", err)
	}

	srv.chatSvc = service.NewChatService(service.Deps{
		Store:       store,
		Locker:      locker,
		Generator:   srv.aiClient,
		Synthesizer: srv.initSynthesizer(),
		Transcriber: srv.initTranscriber(),
	})

	srv.setupRoutes()

	return srv, nil
}

// initLocker 选择对话锁后端
func (s *Server) initLocker() (lock.Locker, error) {
	if s.cfg.Lock.Backend != "redis" {
		return lock.NewLocal(), nil
	}

	rc, err := cache.NewRedisCache(&s.cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	s.redis = rc
	log.Info().Str("addr", s.cfg.Redis.Addr).Msg("connected to Redis")

	return lock.NewRedis(rc, s.cfg.Lock.TTL, s.cfg.Lock.MaxAttempts, s.cfg.Lock.Backoff), nil
}

// initSynthesizer 未配置 TTS 时返回 nil，回合以纯文本完成
func (s *Server) initSynthesizer() service.Synthesizer {
	client, err := tts.NewClient(&s.cfg.TTS)
	if err != nil {
		log.Warn().Err(err).Msg("TTS not configured, responses will be text-only")
		return nil
	}
	return tts.NewPublisher(client, s.audio)
}

// initTranscriber 未配置 STT 时返回 nil，/transcribe 返回 503
func (s *Server) initTranscriber() service.Transcriber {
	client, err := stt.NewClient(&s.cfg.STT)
	if err != nil {
		log.Warn().Err(err).Msg("STT not configured, /transcribe disabled")
		return nil
	}
	return client
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS(s.cfg.Server.CORSOrigins))

	// 健康检查
	deps := map[string]handler.Pinger{"store": s.store}
	if s.redis != nil {
		deps["redis"] = s.redis
	}
	healthHandler := handler.NewHealthHandler(deps)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 本地音频文件
	if ls, ok := s.audio.(*local.LocalStorage); ok {
		prefix := s.cfg.Audio.URLPrefix
		if prefix == "" {
			prefix = "/audio"
		}
		s.engine.Static(prefix, ls.BasePath())
	}

	chatHdl := chatHandler.NewHandler(s.chatSvc)
	s.engine.GET("/loan/types", chatHdl.LoanTypes)

	// 需要匿名会话的接口
	api := s.engine.Group("")
	api.Use(middleware.Session(s.jwt, s.store, &s.cfg.Session))
	{
		api.POST("/transcribe", chatHdl.Transcribe)
		api.POST("/ask", chatHdl.Ask)
		api.GET("/conversation/history", chatHdl.History)
		api.GET("/conversation/list", chatHdl.ListConversations)
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.close()
		return err
	case err := <-errCh:
		s.close()
		return err
	}
}

// close 关闭外部连接
func (s *Server) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}
	}
	if s.aiClient != nil {
		_ = s.aiClient.Close()
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
