package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"intake/internal/ai/chain"
	"intake/internal/config"
	"intake/internal/model/conversation"
)

// MockRecommendation 未配置 API Key 时返回的推荐
const MockRecommendation = "Based on your needs, I recommend a Kisan Credit Card with 7.0% interest. Visit your local bank with ID and income proof to apply."

// Client AI 能力层客户端
// 职责: 封装推荐生成，对外只暴露 Recommend
type Client struct {
	cfg       *config.AIConfig
	recommend *chain.RecommendChain // nil 表示 mock 模式
}

// NewClient 创建 AI 客户端
func NewClient(ctx context.Context, cfg *config.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		log.Warn().Msg("AI API key not configured, using mock mode")
		return &Client{cfg: cfg}, nil
	}

	rc, err := chain.NewRecommendChain(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create recommend chain: %w", err)
	}

	return &Client{
		cfg:       cfg,
		recommend: rc,
	}, nil
}

// NewClientWithChain 使用已有推荐链创建客户端
func NewClientWithChain(cfg *config.AIConfig, rc *chain.RecommendChain) *Client {
	return &Client{cfg: cfg, recommend: rc}
}

// Recommend 基于对话历史生成最终推荐
func (c *Client) Recommend(ctx context.Context, history []conversation.ContextMessage, languageCode string) (string, error) {
	if c.recommend == nil {
		return MockRecommendation, nil
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.recommend.Run(ctx, &chain.RecommendRequest{
		History:      history,
		LanguageCode: languageCode,
	})
	if err != nil {
		return "", fmt.Errorf("generate recommendation: %w", err)
	}

	log.Debug().
		Str("provider", c.cfg.Provider).
		Int("history", len(history)).
		Int("prompt_tokens", resp.PromptTokens).
		Int("output_tokens", resp.OutputTokens).
		Dur("latency", time.Since(start)).
		Msg("Recommendation generated")

	return resp.Text, nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	return nil
}
