package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"intake/internal/ai/component"
	"intake/internal/config"
	"intake/internal/model/catalog"
	"intake/internal/model/conversation"
)

// RecommendChain 贷款推荐链
// 工作流: 访谈指令 + 语言约束 -> 对话历史 -> ChatModel -> 推荐文本
type RecommendChain struct {
	chatModel model.BaseChatModel
}

// RecommendRequest 推荐请求
type RecommendRequest struct {
	History      []conversation.ContextMessage
	LanguageCode string
}

// RecommendResponse 推荐响应
type RecommendResponse struct {
	Text         string
	PromptTokens int
	OutputTokens int
}

// NewRecommendChain 根据配置创建推荐链
func NewRecommendChain(ctx context.Context, cfg *config.AIConfig) (*RecommendChain, error) {
	chatModel, err := component.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRecommendChainWithModel(chatModel), nil
}

// NewRecommendChainWithModel 使用已有模型创建推荐链
func NewRecommendChainWithModel(m model.BaseChatModel) *RecommendChain {
	return &RecommendChain{chatModel: m}
}

// Run 执行推荐
func (c *RecommendChain) Run(ctx context.Context, req *RecommendRequest) (*RecommendResponse, error) {
	messages := BuildMessages(req.History, req.LanguageCode)

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return nil, fmt.Errorf("empty completion")
	}

	var promptTokens, outputTokens int
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		promptTokens = resp.ResponseMeta.Usage.PromptTokens
		outputTokens = resp.ResponseMeta.Usage.CompletionTokens
	}

	return &RecommendResponse{
		Text:         text,
		PromptTokens: promptTokens,
		OutputTokens: outputTokens,
	}, nil
}

// BuildMessages 组装发送给模型的消息：系统指令在前，历史按原顺序
func BuildMessages(history []conversation.ContextMessage, languageCode string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, schema.SystemMessage(SystemPrompt(languageCode)))
	for _, m := range history {
		switch m.Role {
		case conversation.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(m.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(m.Content))
		}
	}
	return messages
}

// SystemPrompt 访谈指令，末尾追加语言约束
func SystemPrompt(languageCode string) string {
	var b strings.Builder
	b.WriteString(interviewInstructions)
	b.WriteString("\nAFTER THESE 3 QUESTIONS, IMMEDIATELY RECOMMEND ONE OF THESE LOAN TYPES:\n")
	for _, lt := range catalog.LoanTypes() {
		fmt.Fprintf(&b, "- %s (%s interest) - %s\n", lt.Name, lt.InterestRate, lt.Purpose)
	}
	b.WriteString(interviewRules)
	fmt.Fprintf(&b, "\nIMPORTANT: You MUST respond in %s only.\n", catalog.LanguageName(languageCode))
	return b.String()
}

const interviewInstructions = `You are a loan assistant for rural Indian users. Your task is to recommend an appropriate loan scheme after asking EXACTLY 3 QUESTIONS in this FIXED ORDER:

1. First question (ALWAYS ASK THIS FIRST): "What do you need the loan for?" (purpose)
2. Second question (ALWAYS ASK THIS SECOND): "How much money do you need?" (amount)
3. Third question (ALWAYS ASK THIS THIRD): "What is your approximate monthly income?" (income)
`

const interviewRules = `
STRICT RULES:
1. NEVER REPEAT QUESTIONS - Once a question is answered, move immediately to the next question.
2. NEVER ASK FOR CLARIFICATION - Accept whatever answer the user gives and move on.
3. NEVER DEVIATE FROM THE 3-QUESTION SEQUENCE - Do not ask any other questions.
4. NEVER SWITCH LANGUAGES - Stay in the user's selected language.
5. NO GREETINGS OR PLEASANTRIES - Be direct and to the point.
6. KEEP RESPONSES UNDER 50 WORDS - Be extremely concise.
7. AFTER THE 3 QUESTIONS, GIVE A LOAN RECOMMENDATION IMMEDIATELY - Do not ask anything else.

EXAMPLE CONVERSATION:
AI: What do you need the loan for?
User: To buy a tractor
AI: How much money do you need?
User: 500,000 rupees
AI: What is your approximate monthly income?
User: 20,000 rupees
AI: Based on your needs, I recommend a Farm Mechanization Loan with 9.0% interest. This is designed for purchasing tractors and farm equipment. Visit your local bank with ID and income proof to apply.

FOLLOW THIS EXACT PATTERN WITHOUT DEVIATION.
`
