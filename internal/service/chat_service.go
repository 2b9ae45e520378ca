package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"intake/internal/model/catalog"
	"intake/internal/model/conversation"
	"intake/internal/pkg/cache"
	"intake/internal/pkg/lock"
	"intake/internal/pkg/logger"
	"intake/internal/repository"
)

// GenerationErrorText 生成模型失败时写入的助手回复
const GenerationErrorText = "Sorry, I could not prepare a recommendation right now. Please try again."

// 请求被取消后，已开始的回合仍需落库
const persistTimeout = 10 * time.Second

// ChatService 对话服务 - 业务逻辑层
// 职责: 编排对话解析、固定问题、生成模型和语音合成，并落库每一轮
type ChatService struct {
	store       repository.Store
	locker      lock.Locker
	resolver    *Resolver
	generator   Generator
	synthesizer Synthesizer // 可为 nil，表示不合成语音
	transcriber Transcriber // 可为 nil，表示未开启语音识别
}

// Deps ChatService 依赖
type Deps struct {
	Store       repository.Store
	Locker      lock.Locker
	Generator   Generator
	Synthesizer Synthesizer
	Transcriber Transcriber
}

// NewChatService 创建对话服务
func NewChatService(d Deps) *ChatService {
	locker := d.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &ChatService{
		store:       d.Store,
		locker:      locker,
		resolver:    NewResolver(d.Store, locker),
		generator:   d.Generator,
		synthesizer: d.Synthesizer,
		transcriber: d.Transcriber,
	}
}

// TurnResult 一轮对话的输出
type TurnResult struct {
	ResponseText   string
	AudioURL       string
	ConversationID string
	History        []*conversation.Message
	Degraded       bool // 生成模型失败，ResponseText 为兜底文案
}

// UtteranceResult 仅记录用户发言的结果
type UtteranceResult struct {
	ConversationID string
	History        []*conversation.Message
}

// TranscribeResult 语音识别并记录的结果
type TranscribeResult struct {
	Transcription    string
	DetectedLanguage string
	ConversationID   string
	History          []*conversation.Message
}

// HistoryResult 当前对话历史；用户没有对话时 Conversation 为 nil
type HistoryResult struct {
	Conversation *conversation.Conversation
	Messages     []*conversation.Message
}

// HandleTurn 处理一轮对话
// 业务流程: 解析对话 -> 记录用户发言 -> 固定问题或生成推荐 -> 合成语音 -> 记录助手回复
func (s *ChatService) HandleTurn(ctx context.Context, userID, text, languageCode string) (*TurnResult, error) {
	languageCode = catalog.NormalizeLanguage(languageCode)

	conv, err := s.resolver.Resolve(ctx, userID, languageCode)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, cache.ConversationLockKey(conv.ID))
	if err != nil {
		return nil, lockErr(err)
	}
	defer unlock()

	l := logger.Ctx(ctx).With().
		Str("user_id", userID).
		Str("conversation_id", conv.ID).
		Str("language", languageCode).
		Logger()

	// 持锁后重新读取阶段
	conv, err = s.store.GetConversation(ctx, conv.ID)
	if err != nil {
		return nil, storageErr("get conversation", err)
	}

	pending, err := s.pendingUtterance(ctx, conv.ID, text)
	if err != nil {
		return nil, err
	}
	if !pending {
		if _, err := s.store.AppendMessage(ctx, conv.ID, conversation.RoleUser, text, ""); err != nil {
			return nil, storageErr("append user message", err)
		}
	}

	// 用户发言已落库，之后的写入不受请求取消影响
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	result := &TurnResult{ConversationID: conv.ID}

	if q, ok := ForcedQuestion(conv.InterviewStage); ok {
		l.Debug().Str("stage", conv.InterviewStage.String()).Msg("Forced interview question")
		result.ResponseText = q
	} else {
		history, err := s.store.MessagesForGeneration(pctx, conv.ID)
		if err != nil {
			return nil, storageErr("generation context", err)
		}

		reply, err := s.generate(ctx, history, languageCode)
		if err != nil {
			l.Error().Err(err).Int("history", len(history)).Msg("Recommendation generation failed")
			result.ResponseText = GenerationErrorText
			result.Degraded = true
		} else {
			l.Info().Int("history", len(history)).Msg("Recommendation generated")
			result.ResponseText = reply
		}
	}

	result.AudioURL = s.synthesize(ctx, result.ResponseText, languageCode)

	if _, err := s.store.AppendMessage(pctx, conv.ID, conversation.RoleAssistant, result.ResponseText, result.AudioURL); err != nil {
		return nil, storageErr("append assistant message", err)
	}

	result.History, err = s.store.ListMessages(pctx, conv.ID, 0)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	return result, nil
}

// RecordUtterance 解析对话并记录一条用户发言，不产生助手回复
func (s *ChatService) RecordUtterance(ctx context.Context, userID, text, languageCode string) (*UtteranceResult, error) {
	languageCode = catalog.NormalizeLanguage(languageCode)

	conv, err := s.resolver.Resolve(ctx, userID, languageCode)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, cache.ConversationLockKey(conv.ID))
	if err != nil {
		return nil, lockErr(err)
	}
	defer unlock()

	if _, err := s.store.AppendMessage(ctx, conv.ID, conversation.RoleUser, text, ""); err != nil {
		return nil, storageErr("append user message", err)
	}

	history, err := s.store.ListMessages(ctx, conv.ID, 0)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	return &UtteranceResult{ConversationID: conv.ID, History: history}, nil
}

// Transcribe 识别音频并记录为用户发言
// languageCode 为空时使用识别出的语言
func (s *ChatService) Transcribe(ctx context.Context, userID string, audio io.Reader, filename, languageCode string) (*TranscribeResult, error) {
	if userID == "" {
		return nil, ErrSessionNotFound
	}
	if audio == nil {
		return nil, fmt.Errorf("%w: audio", ErrMissingInput)
	}
	if s.transcriber == nil {
		return nil, ErrTranscriptionDisabled
	}

	res, err := s.transcriber.Transcribe(ctx, audio, filename, languageCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailure, err)
	}

	lang := catalog.NormalizeLanguage(languageCode)
	if lang == "" {
		lang = res.Language
	}
	if lang == "" {
		lang = catalog.DefaultLanguage
	}

	rec, err := s.RecordUtterance(ctx, userID, res.Text, lang)
	if err != nil {
		return nil, err
	}

	return &TranscribeResult{
		Transcription:    res.Text,
		DetectedLanguage: res.Language,
		ConversationID:   rec.ConversationID,
		History:          rec.History,
	}, nil
}

// History 返回当前对话历史
// activeConversationID 来自会话，不属于该用户或不存在时退回最近对话
func (s *ChatService) History(ctx context.Context, userID, activeConversationID string) (*HistoryResult, error) {
	if userID == "" {
		return nil, ErrSessionNotFound
	}

	var conv *conversation.Conversation
	if activeConversationID != "" {
		c, err := s.store.GetConversation(ctx, activeConversationID)
		switch {
		case err == nil && c.UserID == userID:
			conv = c
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, storageErr("get conversation", err)
		}
	}

	if conv == nil {
		c, err := s.store.LatestConversation(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &HistoryResult{Messages: []*conversation.Message{}}, nil
			}
			return nil, storageErr("latest conversation", err)
		}
		conv = c
	}

	msgs, err := s.store.ListMessages(ctx, conv.ID, 0)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	return &HistoryResult{Conversation: conv, Messages: msgs}, nil
}

// Conversations 返回用户全部对话，最近活跃在前
func (s *ChatService) Conversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	if userID == "" {
		return nil, ErrSessionNotFound
	}
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, storageErr("list conversations", err)
	}
	return convs, nil
}

// pendingUtterance 判断该发言是否已由语音识别记录且尚未得到回复
func (s *ChatService) pendingUtterance(ctx context.Context, conversationID, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	msgs, err := s.store.ListMessages(ctx, conversationID, 0)
	if err != nil {
		return false, storageErr("list messages", err)
	}
	if n := len(msgs); n > 0 {
		last := msgs[n-1]
		return last.Role == conversation.RoleUser && last.Content == text, nil
	}
	return false, nil
}

func (s *ChatService) generate(ctx context.Context, history []conversation.ContextMessage, languageCode string) (string, error) {
	if s.generator == nil {
		return "", fmt.Errorf("%w: generator not configured", ErrGenerationFailure)
	}
	reply, err := s.generator.Recommend(ctx, history, languageCode)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrGenerationFailure)
	}
	return reply, nil
}

// synthesize 合成失败只记录日志，回合以纯文本完成
func (s *ChatService) synthesize(ctx context.Context, text, languageCode string) string {
	if s.synthesizer == nil {
		return ""
	}
	url, err := s.synthesizer.Synthesize(ctx, text, languageCode)
	if err != nil {
		logger.Ctx(ctx).Warn().
			Err(fmt.Errorf("%w: %w", ErrSynthesisFailure, err)).
			Str("language", languageCode).
			Msg("Speech synthesis failed, continuing without audio")
		return ""
	}
	return url
}
