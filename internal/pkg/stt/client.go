// Package stt 语音识别（Whisper 兼容接口）
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"intake/internal/config"
	"intake/internal/model/catalog"
)

const (
	// GroqBaseURL Groq 的 OpenAI 兼容地址
	GroqBaseURL  = "https://api.groq.com/openai/v1"
	defaultModel = "whisper-large-v3"
)

// ErrNotConfigured 未配置识别服务
var ErrNotConfigured = errors.New("stt: transcription service not configured")

// Result 识别结果
type Result struct {
	Text     string
	Language string // 归一化后的语言代码
	Duration float64
}

// Client Whisper 识别客户端
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewClient 创建识别客户端
func NewClient(cfg *config.STTConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	if oc.BaseURL == "" {
		oc.BaseURL = GroqBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:  openai.NewClientWithConfig(oc),
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

// Transcribe 识别音频；language 为空时自动检测
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename, language string) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if filename == "" {
		filename = "audio.webm"
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: filename,
		Reader:   audio,
		Language: catalog.NormalizeLanguage(language),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	detected := catalog.NormalizeLanguage(resp.Language)
	if detected == "" {
		detected = catalog.NormalizeLanguage(language)
	}

	return &Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: detected,
		Duration: resp.Duration,
	}, nil
}
