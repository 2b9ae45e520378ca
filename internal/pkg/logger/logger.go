package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"intake/internal/config"
	"intake/internal/pkg/ctxutil"
)

// ServiceName 日志中的服务名
const ServiceName = "intake"

// Init 初始化全局日志
func Init(cfg *config.LogConfig) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch cfg.TimeFormat {
	case "Unix":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	case "UnixMs":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	default:
		zerolog.TimeFieldFormat = time.RFC3339
	}

	var output io.Writer = os.Stdout
	if cfg.Output == "file" && cfg.FilePath != "" {
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		output = file
	}

	// Console 格式 (开发环境友好)
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(output).With().
		Timestamp().
		Str("service", ServiceName).
		Caller().
		Logger()

	return nil
}

// Get 获取全局 logger
func Get() zerolog.Logger {
	return log.Logger
}

// Ctx 返回携带请求上下文字段（user_id / conversation_id / request_id）的 logger
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := log.Logger.With()
	if userID, ok := ctxutil.GetUserID(ctx); ok {
		lc = lc.Str("user_id", userID)
	}
	if convID, ok := ctxutil.GetConversationID(ctx); ok {
		lc = lc.Str("conversation_id", convID)
	}
	if reqID, ok := ctxutil.GetRequestID(ctx); ok {
		lc = lc.Str("request_id", reqID)
	}
	l := lc.Logger()
	return &l
}
