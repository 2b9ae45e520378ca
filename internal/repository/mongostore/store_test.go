package mongostore

import (
	"context"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/config"
	"intake/internal/model/conversation"
	"intake/internal/pkg/id"
	"intake/internal/pkg/mongodb"
	"intake/internal/repository"
	"intake/internal/repository/storetest"
)

// openMongo 每次使用独立的临时数据库，结束时删除
// 需要 INTAKE_TEST_MONGO_URI；INTAKE_TEST_MONGO_TRANSACTIONS=true 时走事务路径（需要副本集）
func openMongo(t *testing.T) *Store {
	uri := os.Getenv("INTAKE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("INTAKE_TEST_MONGO_URI not set")
	}

	client, err := mongodb.New(&config.MongoConfig{URI: uri, Database: "intake_test_" + id.New()[:8]})
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		_ = client.Database().Drop(ctx)
		_ = client.Close(ctx)
	})
	return New(client, os.Getenv("INTAKE_TEST_MONGO_TRANSACTIONS") == "true")
}

func TestStore(t *testing.T) {
	openMongo(t)
	storetest.Run(t, func(t *testing.T) repository.Store { return openMongo(t) })
}

func TestStore_RollForward(t *testing.T) {
	Convey("计数未推进的消息在读取时补齐", t, func() {
		ctx := context.Background()
		s := openMongo(t)
		So(s.EnsureSchema(ctx), ShouldBeNil)

		userID, _ := s.CreateUser(ctx)
		conv, err := s.CreateConversation(ctx, userID, "hi")
		So(err, ShouldBeNil)
		_, err = s.AppendMessage(ctx, conv.ID, conversation.RoleUser, "hello", "")
		So(err, ShouldBeNil)

		// 模拟插入消息后、推进计数前进程退出
		orphan := &conversation.Message{
			ID:             id.New(),
			ConversationID: conv.ID,
			Seq:            2,
			Role:           conversation.RoleAssistant,
			Content:        "What do you need the loan for?",
			Timestamp:      now(),
		}
		_, err = s.messages.InsertOne(ctx, orphan)
		So(err, ShouldBeNil)

		got, err := s.GetConversation(ctx, conv.ID)
		So(err, ShouldBeNil)
		So(got.MessageSeq, ShouldEqual, int64(2))
		So(got.InterviewStage, ShouldEqual, conversation.StageAmount)

		Convey("之后的追加接在补齐的序号后面", func() {
			m, err := s.AppendMessage(ctx, conv.ID, conversation.RoleUser, "tractor", "")
			So(err, ShouldBeNil)
			So(m.Seq, ShouldEqual, int64(3))

			msgs, err := s.ListMessages(ctx, conv.ID, 0)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 3)
			So(msgs[1].Content, ShouldEqual, orphan.Content)
		})

		Convey("序号被占用时重新读取后写入下一个序号", func() {
			taken := &conversation.Message{
				ID:             id.New(),
				ConversationID: conv.ID,
				Seq:            3,
				Role:           conversation.RoleUser,
				Content:        "tractor",
				Timestamp:      now(),
			}
			_, err := s.messages.InsertOne(ctx, taken)
			So(err, ShouldBeNil)

			m, err := s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "How much money do you need?", "")
			So(err, ShouldBeNil)
			So(m.Seq, ShouldEqual, int64(4))

			got, _ := s.GetConversation(ctx, conv.ID)
			So(got.InterviewStage, ShouldEqual, conversation.StageIncome)
		})
	})
}
