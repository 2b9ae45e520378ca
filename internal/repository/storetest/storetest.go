// Package storetest 各存储后端共用的行为测试
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/model/conversation"
	"intake/internal/repository"
)

// Run 对 open 返回的存储执行通用用例；每个用例都会调用一次 open
func Run(t *testing.T, open func(t *testing.T) repository.Store) {
	Convey("repository.Store", t, func() {
		ctx := context.Background()
		s := open(t)

		So(s.EnsureSchema(ctx), ShouldBeNil)
		So(s.Ping(ctx), ShouldBeNil)

		userID, err := s.CreateUser(ctx)
		So(err, ShouldBeNil)

		Convey("GetUser 与未知用户", func() {
			u, err := s.GetUser(ctx, userID)
			So(err, ShouldBeNil)
			So(u.ID, ShouldEqual, userID)

			_, err = s.GetUser(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.CreateConversation(ctx, "ghost", "en")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("追加消息推进序号、阶段与最后活跃时间", func() {
			conv, err := s.CreateConversation(ctx, userID, "hi")
			So(err, ShouldBeNil)
			So(conv.StartedAt.Equal(conv.LastUpdatedAt), ShouldBeTrue)
			So(conv.InterviewStage, ShouldEqual, conversation.StagePurpose)

			m1, err := s.AppendMessage(ctx, conv.ID, conversation.RoleUser, "hello", "")
			So(err, ShouldBeNil)
			m2, err := s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "q1", "/audio/a.mp3")
			So(err, ShouldBeNil)
			So(m1.Seq, ShouldEqual, int64(1))
			So(m2.Seq, ShouldEqual, int64(2))

			got, err := s.GetConversation(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got.InterviewStage, ShouldEqual, conversation.StageAmount)
			So(got.MessageSeq, ShouldEqual, int64(2))
			So(got.LastUpdatedAt.Equal(m2.Timestamp), ShouldBeTrue)
			So(got.LanguageCode, ShouldEqual, "hi")

			msgs, err := s.ListMessages(ctx, conv.ID, 0)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 2)
			So(msgs[0].AudioURL, ShouldBeEmpty)
			So(msgs[1].AudioURL, ShouldEqual, "/audio/a.mp3")
		})

		Convey("阶段封顶于完成", func() {
			conv, _ := s.CreateConversation(ctx, userID, "en")
			for i := 0; i < 5; i++ {
				_, err := s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, fmt.Sprintf("a%d", i), "")
				So(err, ShouldBeNil)
			}
			got, err := s.GetConversation(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got.InterviewStage, ShouldEqual, conversation.StageComplete)
		})

		Convey("消息按插入顺序返回，limit 取前若干条", func() {
			conv, _ := s.CreateConversation(ctx, userID, "en")
			const n = 12
			for i := 0; i < n; i++ {
				role := conversation.RoleUser
				if i%2 == 1 {
					role = conversation.RoleAssistant
				}
				_, err := s.AppendMessage(ctx, conv.ID, role, fmt.Sprintf("m%02d", i), "")
				So(err, ShouldBeNil)
			}

			msgs, err := s.ListMessages(ctx, conv.ID, 0)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, n)
			for i, m := range msgs {
				So(m.Content, ShouldEqual, fmt.Sprintf("m%02d", i))
				So(m.Seq, ShouldEqual, int64(i+1))
				if i > 0 {
					So(m.Timestamp.Before(msgs[i-1].Timestamp), ShouldBeFalse)
				}
			}

			limited, err := s.ListMessages(ctx, conv.ID, 3)
			So(err, ShouldBeNil)
			So(len(limited), ShouldEqual, 3)
			So(limited[2].Content, ShouldEqual, "m02")
		})

		Convey("生成上下文过滤空消息并修剪悬空的助手消息", func() {
			conv, _ := s.CreateConversation(ctx, userID, "en")
			_, _ = s.AppendMessage(ctx, conv.ID, conversation.RoleUser, "a", "")
			_, _ = s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "b", "")
			_, _ = s.AppendMessage(ctx, conv.ID, conversation.RoleUser, " ", "")
			_, _ = s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "c", "")

			got, err := s.MessagesForGeneration(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []conversation.ContextMessage{
				{Role: conversation.RoleUser, Content: "a"},
				{Role: conversation.RoleAssistant, Content: "b"},
			})
		})

		Convey("不存在的对话与非法角色", func() {
			_, err := s.GetConversation(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.AppendMessage(ctx, "missing", conversation.RoleUser, "x", "")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.ListMessages(ctx, "missing", 0)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			conv, _ := s.CreateConversation(ctx, userID, "en")
			_, err = s.AppendMessage(ctx, conv.ID, conversation.Role("system"), "x", "")
			So(errors.Is(err, repository.ErrInvalidRole), ShouldBeTrue)

			msgs, _ := s.ListMessages(ctx, conv.ID, 0)
			So(msgs, ShouldBeEmpty)
		})

		Convey("对话按最后活跃时间倒序", func() {
			_, err := s.LatestConversation(ctx, userID)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			c1, _ := s.CreateConversation(ctx, userID, "hi")
			time.Sleep(5 * time.Millisecond)
			c2, _ := s.CreateConversation(ctx, userID, "en")
			time.Sleep(5 * time.Millisecond)

			latest, err := s.LatestConversation(ctx, userID)
			So(err, ShouldBeNil)
			So(latest.ID, ShouldEqual, c2.ID)

			_, err = s.AppendMessage(ctx, c1.ID, conversation.RoleUser, "back", "")
			So(err, ShouldBeNil)

			convs, err := s.ListConversations(ctx, userID)
			So(err, ShouldBeNil)
			So(len(convs), ShouldEqual, 2)
			So(convs[0].ID, ShouldEqual, c1.ID)
			So(convs[1].ID, ShouldEqual, c2.ID)

			other, _ := s.CreateUser(ctx)
			convs, err = s.ListConversations(ctx, other)
			So(err, ShouldBeNil)
			So(convs, ShouldBeEmpty)
		})

		Convey("EnsureSchema 可重复执行", func() {
			So(s.EnsureSchema(ctx), ShouldBeNil)
		})
	})
}
