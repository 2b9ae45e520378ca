package tts

import (
	"bytes"
	"context"
	"fmt"

	"intake/internal/pkg/id"
	"intake/internal/pkg/storage"
)

// AudioSynthesizer 文本转音频
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}

// Publisher 合成音频并写入存储，返回访问地址
type Publisher struct {
	synth AudioSynthesizer
	store storage.Storage
}

// NewPublisher 创建音频发布器
func NewPublisher(synth AudioSynthesizer, store storage.Storage) *Publisher {
	return &Publisher{synth: synth, store: store}
}

// Synthesize 合成并上传，文件名为随机 uuid.mp3
func (p *Publisher) Synthesize(ctx context.Context, text, languageCode string) (string, error) {
	audio, err := p.synth.Synthesize(ctx, text, languageCode)
	if err != nil {
		return "", err
	}

	key := id.NewFilename(".mp3")
	url, err := p.store.Upload(ctx, key, bytes.NewReader(audio), storage.ContentTypeByKey(key))
	if err != nil {
		return "", fmt.Errorf("store audio %s: %w", key, err)
	}
	return url, nil
}
