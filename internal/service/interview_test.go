package service

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/model/conversation"
)

func msgs(roles ...conversation.Role) []*conversation.Message {
	out := make([]*conversation.Message, len(roles))
	for i, r := range roles {
		out[i] = &conversation.Message{Role: r, Content: "x"}
	}
	return out
}

func TestNextForcedQuestion(t *testing.T) {
	u, a := conversation.RoleUser, conversation.RoleAssistant

	Convey("按助手回合数决定下一个问题", t, func() {
		q, ok := NextForcedQuestion(nil)
		So(ok, ShouldBeTrue)
		So(q, ShouldEqual, QuestionPurpose)

		q, ok = NextForcedQuestion(msgs(u, a, u))
		So(ok, ShouldBeTrue)
		So(q, ShouldEqual, QuestionAmount)

		q, ok = NextForcedQuestion(msgs(u, a, u, a, u))
		So(ok, ShouldBeTrue)
		So(q, ShouldEqual, QuestionIncome)

		_, ok = NextForcedQuestion(msgs(u, a, u, a, u, a, u))
		So(ok, ShouldBeFalse)

		_, ok = NextForcedQuestion(msgs(a, a, a, a, a))
		So(ok, ShouldBeFalse)
	})

	Convey("用户发言内容不影响阶段", t, func() {
		h := msgs(u, u, u, u)
		So(StageOf(h), ShouldEqual, conversation.StagePurpose)
	})

	Convey("ForcedQuestion 按阶段", t, func() {
		var seen []string
		for st := conversation.StagePurpose; st <= conversation.StageComplete+1; st++ {
			if q, ok := ForcedQuestion(st); ok {
				seen = append(seen, q)
			}
		}
		So(seen, ShouldResemble, []string{QuestionPurpose, QuestionAmount, QuestionIncome})
	})
}
