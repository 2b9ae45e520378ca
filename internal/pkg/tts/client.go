package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"intake/internal/config"
	"intake/internal/model/catalog"
	"intake/internal/pkg/id"
)

const (
	defaultAPIURL     = "https://openspeech.bytedance.com/api/v1/tts"
	defaultCluster    = "volcano_tts"
	defaultVoiceType  = "BV115_streaming"
	defaultSampleRate = 24000
	successCode       = 3000
)

var (
	// ErrUnsupportedLanguage 语言不在支持列表中
	ErrUnsupportedLanguage = errors.New("tts: unsupported language")
	// ErrEmptyText 无可合成文本
	ErrEmptyText = errors.New("tts: empty text")
)

// Client TTS 客户端封装
// 调用火山引擎 HTTP TTS 接口，返回 mp3 音频
type Client struct {
	apiURL      string
	accessToken string
	appID       string
	cluster     string
	voiceType   string
	sampleRate  int
	httpClient  *http.Client
}

// NewClient 创建 TTS 客户端
func NewClient(cfg *config.TTSConfig) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("TTS access token is required")
	}

	c := &Client{
		apiURL:      cfg.APIURL,
		accessToken: cfg.AccessToken,
		appID:       cfg.AppID,
		cluster:     cfg.Cluster,
		voiceType:   cfg.VoiceType,
		sampleRate:  cfg.SampleRate,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
	if c.apiURL == "" {
		c.apiURL = defaultAPIURL
	}
	if c.cluster == "" {
		c.cluster = defaultCluster
	}
	if c.voiceType == "" {
		c.voiceType = defaultVoiceType
	}
	if c.sampleRate == 0 {
		c.sampleRate = defaultSampleRate
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	return c, nil
}

type ttsRequest struct {
	App     ttsApp     `json:"app"`
	User    ttsUser    `json:"user"`
	Audio   ttsAudio   `json:"audio"`
	Request ttsPayload `json:"request"`
}

type ttsApp struct {
	AppID   string `json:"appid,omitempty"`
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
}

type ttsUser struct {
	UID string `json:"uid"`
}

type ttsAudio struct {
	VoiceType   string  `json:"voice_type"`
	Encoding    string  `json:"encoding"`
	Rate        int     `json:"rate"`
	SpeedRatio  float64 `json:"speed_ratio"`
	VolumeRatio float64 `json:"volume_ratio"`
	PitchRatio  float64 `json:"pitch_ratio"`
	Language    string  `json:"language"`
}

type ttsPayload struct {
	ReqID     string `json:"reqid"`
	Text      string `json:"text"`
	TextType  string `json:"text_type"`
	Operation string `json:"operation"`
}

type ttsResponse struct {
	ReqID   string `json:"reqid"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Synthesize 将文本合成为 mp3 音频
func (c *Client) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if !catalog.IsSupported(languageCode) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, languageCode)
	}

	requestID := id.New()
	body, err := json.Marshal(ttsRequest{
		App:  ttsApp{AppID: c.appID, Token: c.accessToken, Cluster: c.cluster},
		User: ttsUser{UID: requestID},
		Audio: ttsAudio{
			VoiceType:   c.voiceType,
			Encoding:    "mp3",
			Rate:        c.sampleRate,
			SpeedRatio:  1.0,
			VolumeRatio: 1.0,
			PitchRatio:  1.0,
			Language:    strings.ToLower(languageCode),
		},
		Request: ttsPayload{
			ReqID:     requestID,
			Text:      text,
			TextType:  "plain",
			Operation: "query",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer; "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("request_id", requestID).
		Str("language", languageCode).
		Int("text_len", len(text)).
		Msg("sending TTS request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed: status %d, body: %s", resp.StatusCode, truncate(respBody, 256))
	}

	var apiResp ttsResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Code != successCode {
		msg := apiResp.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("API response error: %s (code: %d)", msg, apiResp.Code)
	}
	if apiResp.Data == "" {
		return nil, errors.New("audio data not found in response")
	}

	audio, err := base64.StdEncoding.DecodeString(apiResp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio data: %w", err)
	}
	return audio, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
