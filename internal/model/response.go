package model

import (
	"time"

	"intake/internal/model/catalog"
	"intake/internal/model/conversation"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// MessageInfo 对外消息结构；audio_url 缺失时为 null
type MessageInfo struct {
	Role      string  `json:"role"`
	Content   string  `json:"content"`
	AudioURL  *string `json:"audio_url"`
	Timestamp string  `json:"timestamp"`
}

// ConversationInfo 对外对话结构
type ConversationInfo struct {
	ConversationID string `json:"conversation_id"`
	LanguageCode   string `json:"language_code"`
	StartedAt      string `json:"started_at"`
	LastUpdatedAt  string `json:"last_updated_at"`
}

// AskResponse /ask 响应
type AskResponse struct {
	Response            string        `json:"response"`
	AudioURL            *string       `json:"audio_url"`
	ConversationID      string        `json:"conversation_id"`
	ConversationHistory []MessageInfo `json:"conversation_history"`
}

// TranscribeResponse /transcribe 响应
type TranscribeResponse struct {
	Transcription       string        `json:"transcription"`
	DetectedLanguage    string        `json:"detected_language"`
	ConversationID      string        `json:"conversation_id"`
	ConversationHistory []MessageInfo `json:"conversation_history"`
}

// HistoryResponse /conversation/history 响应；没有对话时 conversation_id 与 language_code 为 null
type HistoryResponse struct {
	ConversationID *string       `json:"conversation_id"`
	LanguageCode   *string       `json:"language_code"`
	Messages       []MessageInfo `json:"messages"`
}

// ConversationListResponse /conversation/list 响应
type ConversationListResponse struct {
	Conversations []ConversationInfo `json:"conversations"`
}

// LoanTypesResponse /loan/types 响应
type LoanTypesResponse struct {
	LoanTypes []catalog.LoanType `json:"loan_types"`
	Languages []catalog.Language `json:"languages"`
}

// ToMessageInfo 转换消息
func ToMessageInfo(m *conversation.Message) MessageInfo {
	info := MessageInfo{
		Role:      m.Role.String(),
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if m.AudioURL != "" {
		url := m.AudioURL
		info.AudioURL = &url
	}
	return info
}

// ToMessageInfoList 转换消息列表，始终返回非 nil 切片
func ToMessageInfoList(msgs []*conversation.Message) []MessageInfo {
	out := make([]MessageInfo, len(msgs))
	for i, m := range msgs {
		out[i] = ToMessageInfo(m)
	}
	return out
}

// ToConversationInfo 转换对话
func ToConversationInfo(c *conversation.Conversation) ConversationInfo {
	return ConversationInfo{
		ConversationID: c.ID,
		LanguageCode:   c.LanguageCode,
		StartedAt:      c.StartedAt.UTC().Format(time.RFC3339Nano),
		LastUpdatedAt:  c.LastUpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ToConversationInfoList 转换对话列表
func ToConversationInfoList(convs []*conversation.Conversation) []ConversationInfo {
	out := make([]ConversationInfo, len(convs))
	for i, c := range convs {
		out[i] = ToConversationInfo(c)
	}
	return out
}
