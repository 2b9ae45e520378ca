package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/model/conversation"
	"intake/internal/repository"
	"intake/internal/repository/storetest"
)

// openSQLite 每次返回一个新的临时数据库；go-sqlite3 需要 cgo，不可用时跳过
func openSQLite(t *testing.T) *Store {
	s, err := Open("sqlite", filepath.Join(t.TempDir(), "intake.db"))
	if err == nil {
		err = s.Ping(context.Background())
	}
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestStore_SQLite(t *testing.T) {
	openSQLite(t)
	storetest.Run(t, func(t *testing.T) repository.Store { return openSQLite(t) })
}

// 设置 INTAKE_TEST_POSTGRES_DSN 时针对 PostgreSQL 运行
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("INTAKE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INTAKE_TEST_POSTGRES_DSN not set")
	}

	open := func(t *testing.T) *Store {
		s, err := Open("postgres", dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		t.Cleanup(func() { _ = s.Close(context.Background()) })
		return s
	}

	storetest.Run(t, func(t *testing.T) repository.Store { return open(t) })

	Convey("并发追加时序号唯一且连续", t, func() {
		ctx := context.Background()
		s := open(t)
		So(s.EnsureSchema(ctx), ShouldBeNil)

		userID, _ := s.CreateUser(ctx)
		conv, err := s.CreateConversation(ctx, userID, "en")
		So(err, ShouldBeNil)

		const n = 10
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.AppendMessage(ctx, conv.ID, conversation.RoleAssistant, "q", "")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			So(err, ShouldBeNil)
		}

		msgs, err := s.ListMessages(ctx, conv.ID, 0)
		So(err, ShouldBeNil)
		So(len(msgs), ShouldEqual, n)
		for i, m := range msgs {
			So(m.Seq, ShouldEqual, int64(i+1))
		}

		got, _ := s.GetConversation(ctx, conv.ID)
		So(got.MessageSeq, ShouldEqual, int64(n))
		So(got.InterviewStage, ShouldEqual, conversation.StageComplete)
	})
}
