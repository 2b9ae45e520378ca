package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/model/conversation"
	"intake/internal/repository"
	"intake/internal/repository/storetest"
)

// stepClock 每次调用前进 1 秒
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestStore(t *testing.T) {
	Convey("memstore.Store", t, func() {
		ctx := context.Background()
		s := New().WithClock(stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

		userID, err := s.CreateUser(ctx)
		So(err, ShouldBeNil)
		So(userID, ShouldNotBeEmpty)

		Convey("没有对话时 LatestConversation 返回 ErrNotFound", func() {
			_, err := s.LatestConversation(ctx, userID)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			convs, err := s.ListConversations(ctx, userID)
			So(err, ShouldBeNil)
			So(convs, ShouldBeEmpty)
		})

		Convey("AppendMessage 更新最后活跃时间与阶段", func() {
			conv, err := s.CreateConversation(ctx, userID, "hi")
			So(err, ShouldBeNil)
			So(conv.StartedAt, ShouldEqual, conv.LastUpdatedAt)

			m1, err := s.AppendMessage(ctx, conv.ID, conversation.RoleUser, "hello", "")
			So(err, ShouldBeNil)
			m2, err := s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "What do you need the loan for?", "/audio/a.mp3")
			So(err, ShouldBeNil)
			So(m2.Seq, ShouldEqual, m1.Seq+1)

			got, err := s.GetConversation(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got.LastUpdatedAt, ShouldEqual, m2.Timestamp)
			So(got.InterviewStage, ShouldEqual, conversation.StageAmount)

			msgs, err := s.ListMessages(ctx, conv.ID, 0)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 2)
			So(msgs[1].AudioURL, ShouldEqual, "/audio/a.mp3")

			limited, err := s.ListMessages(ctx, conv.ID, 1)
			So(err, ShouldBeNil)
			So(len(limited), ShouldEqual, 1)
			So(limited[0].Content, ShouldEqual, "hello")
		})

		Convey("非法角色与不存在的对话", func() {
			conv, _ := s.CreateConversation(ctx, userID, "en")
			_, err := s.AppendMessage(ctx, conv.ID, conversation.Role("system"), "x", "")
			So(errors.Is(err, repository.ErrInvalidRole), ShouldBeTrue)

			_, err = s.AppendMessage(ctx, "missing", conversation.RoleUser, "x", "")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.ListMessages(ctx, "missing", 0)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("MessagesForGeneration 过滤空消息并去掉悬空的助手消息", func() {
			conv, _ := s.CreateConversation(ctx, userID, "en")
			_, _ = s.AppendMessage(ctx, conv.ID, conversation.RoleUser, "a", "")
			_, _ = s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "", "")

			got, err := s.MessagesForGeneration(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []conversation.ContextMessage{{Role: conversation.RoleUser, Content: "a"}})

			_, _ = s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "b", "")
			got, _ = s.MessagesForGeneration(ctx, conv.ID)
			So(len(got), ShouldEqual, 2)

			_, _ = s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "c", "")
			got, _ = s.MessagesForGeneration(ctx, conv.ID)
			So(got, ShouldResemble, []conversation.ContextMessage{
				{Role: conversation.RoleUser, Content: "a"},
				{Role: conversation.RoleAssistant, Content: "b"},
			})
		})

		Convey("GetUser 与未知用户", func() {
			u, err := s.GetUser(ctx, userID)
			So(err, ShouldBeNil)
			So(u.ID, ShouldEqual, userID)

			_, err = s.GetUser(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.CreateConversation(ctx, "ghost", "en")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("ListConversations 按最后活跃时间倒序", func() {
			c1, _ := s.CreateConversation(ctx, userID, "hi")
			c2, _ := s.CreateConversation(ctx, userID, "en")
			c3, _ := s.CreateConversation(ctx, userID, "ta")
			_, _ = s.AppendMessage(ctx, c1.ID, conversation.RoleUser, "latest", "")

			convs, err := s.ListConversations(ctx, userID)
			So(err, ShouldBeNil)
			So(len(convs), ShouldEqual, 3)
			So(convs[0].ID, ShouldEqual, c1.ID)
			So(convs[1].ID, ShouldEqual, c3.ID)
			So(convs[2].ID, ShouldEqual, c2.ID)

			latest, err := s.LatestConversation(ctx, userID)
			So(err, ShouldBeNil)
			So(latest.ID, ShouldEqual, c1.ID)
		})

		Convey("返回值为拷贝", func() {
			conv, _ := s.CreateConversation(ctx, userID, "hi")
			conv.LanguageCode = "en"
			got, _ := s.GetConversation(ctx, conv.ID)
			So(got.LanguageCode, ShouldEqual, "hi")
		})
	})
}

func TestStore_TimestampTies(t *testing.T) {
	Convey("时钟回拨或相同时仍保持插入顺序", t, func() {
		ctx := context.Background()
		fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		s := New().WithClock(func() time.Time { return fixed })

		userID, _ := s.CreateUser(ctx)
		conv, _ := s.CreateConversation(ctx, userID, "en")
		for _, c := range []string{"1", "2", "3", "4"} {
			_, err := s.AppendMessage(ctx, conv.ID, conversation.RoleUser, c, "")
			So(err, ShouldBeNil)
		}

		msgs, _ := s.ListMessages(ctx, conv.ID, 0)
		So(len(msgs), ShouldEqual, 4)
		for i, m := range msgs {
			So(m.Content, ShouldEqual, []string{"1", "2", "3", "4"}[i])
		}
	})
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return New() })
}
