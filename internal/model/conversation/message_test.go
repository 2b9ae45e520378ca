package conversation

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func msgs(pairs ...string) []*Message {
	out := make([]*Message, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &Message{Role: Role(pairs[i]), Content: pairs[i+1], Seq: int64(i/2 + 1)})
	}
	return out
}

func TestGenerationContext(t *testing.T) {
	Convey("GenerationContext", t, func() {
		u := func(c string) ContextMessage { return ContextMessage{Role: RoleUser, Content: c} }
		a := func(c string) ContextMessage { return ContextMessage{Role: RoleAssistant, Content: c} }

		cases := []struct {
			name string
			in   []*Message
			want []ContextMessage
		}{
			{"过滤空助手消息后以用户结尾，不修剪", msgs("user", "a", "assistant", ""), []ContextMessage{u("a")}},
			{"偶数长度原样返回", msgs("user", "a", "assistant", "b"), []ContextMessage{u("a"), a("b")}},
			{"奇数长度以助手结尾时去掉最后一条", msgs("user", "a", "assistant", "b", "assistant", "c"), []ContextMessage{u("a"), a("b")}},
			{"只有一条助手消息", msgs("assistant", "q"), []ContextMessage{}},
			{"仅空白的内容被过滤", msgs("user", "  \t\n", "assistant", "q1", "user", "x"), []ContextMessage{a("q1"), u("x")}},
			{"过滤后奇数长度以助手结尾", msgs("user", "a", "assistant", "q1", "user", " ", "assistant", "q2", "user", "b", "assistant", "q3"),
				[]ContextMessage{u("a"), a("q1"), a("q2"), u("b")}},
			{"奇数长度以用户结尾不修剪", msgs("user", "a", "assistant", "q1", "user", "b"), []ContextMessage{u("a"), a("q1"), u("b")}},
			{"空输入", nil, []ContextMessage{}},
		}

		for _, tc := range cases {
			Convey(tc.name, func() {
				So(GenerationContext(tc.in), ShouldResemble, tc.want)
			})
		}

		Convey("每次调用重新计算", func() {
			in := msgs("user", "a", "assistant", "b")
			So(len(GenerationContext(in)), ShouldEqual, 2)

			in = append(in, &Message{Role: RoleAssistant, Content: "c", Seq: 3})
			So(len(GenerationContext(in)), ShouldEqual, 2)
		})
	})
}

func TestSortMessages(t *testing.T) {
	Convey("时间戳相同时按 Seq 排序", t, func() {
		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		in := []*Message{
			{Seq: 3, Timestamp: ts},
			{Seq: 1, Timestamp: ts},
			{Seq: 4, Timestamp: ts.Add(time.Second)},
			{Seq: 2, Timestamp: ts},
		}
		SortMessages(in)

		var seqs []int64
		for _, m := range in {
			seqs = append(seqs, m.Seq)
		}
		So(seqs, ShouldResemble, []int64{1, 2, 3, 4})
	})

	Convey("NextTimestamp 不早于上一条", t, func() {
		last := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
		So(NextTimestamp(last.Add(-time.Second), last), ShouldEqual, last)
		So(NextTimestamp(last.Add(time.Second), last), ShouldEqual, last.Add(time.Second))
	})
}
