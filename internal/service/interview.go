package service

import "intake/internal/model/conversation"

// 固定访谈问题，按顺序逐一发出
const (
	QuestionPurpose = "What do you need the loan for?"
	QuestionAmount  = "How much money do you need?"
	QuestionIncome  = "What is your approximate monthly income?"
)

var forcedQuestions = [...]string{
	conversation.StagePurpose: QuestionPurpose,
	conversation.StageAmount:  QuestionAmount,
	conversation.StageIncome:  QuestionIncome,
}

// ForcedQuestion 返回该阶段必须发出的问题；访谈完成后返回 false，交给生成模型
func ForcedQuestion(stage conversation.Stage) (string, bool) {
	if stage < 0 {
		stage = conversation.StagePurpose
	}
	if int(stage) >= len(forcedQuestions) {
		return "", false
	}
	return forcedQuestions[stage], true
}

// StageOf 由助手回合数推导访谈阶段，不看消息内容
func StageOf(history []*conversation.Message) conversation.Stage {
	stage := conversation.StagePurpose
	for _, m := range history {
		if m.Role == conversation.RoleAssistant {
			stage = stage.Advance()
		}
	}
	return stage
}

// NextForcedQuestion 根据历史中已有的助手回合数决定下一个问题
func NextForcedQuestion(history []*conversation.Message) (string, bool) {
	return ForcedQuestion(StageOf(history))
}
