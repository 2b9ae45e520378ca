package service

import (
	"context"
	"io"

	"intake/internal/model/conversation"
	"intake/internal/pkg/stt"
)

// Generator 外部生成模型
type Generator interface {
	Recommend(ctx context.Context, history []conversation.ContextMessage, languageCode string) (string, error)
}

// Synthesizer 语音合成，返回音频访问地址
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) (string, error)
}

// Transcriber 语音识别
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, languageCode string) (*stt.Result, error)
}
