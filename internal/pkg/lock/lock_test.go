package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalLocker(t *testing.T) {
	Convey("LocalLocker", t, func() {
		l := NewLocal()
		ctx := context.Background()

		Convey("同一 key 串行执行", func() {
			var (
				mu      sync.Mutex
				inside  int
				maxSeen int
				wg      sync.WaitGroup
			)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock, err := l.Lock(ctx, "conv-1")
					if err != nil {
						return
					}
					mu.Lock()
					inside++
					if inside > maxSeen {
						maxSeen = inside
					}
					mu.Unlock()
					time.Sleep(time.Millisecond)
					mu.Lock()
					inside--
					mu.Unlock()
					unlock()
				}()
			}
			wg.Wait()
			So(maxSeen, ShouldEqual, 1)
			So(l.Len(), ShouldEqual, 0)
		})

		Convey("不同 key 互不阻塞", func() {
			u1, err := l.Lock(ctx, "a")
			So(err, ShouldBeNil)
			defer u1()

			u2, err := l.Lock(ctx, "b")
			So(err, ShouldBeNil)
			u2()
		})

		Convey("ctx 取消时返回错误", func() {
			u1, err := l.Lock(ctx, "a")
			So(err, ShouldBeNil)

			cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err = l.Lock(cctx, "a")
			So(err, ShouldEqual, context.DeadlineExceeded)

			u1()
			So(l.Len(), ShouldEqual, 0)
		})

		Convey("重复 unlock 无副作用", func() {
			u, err := l.Lock(ctx, "a")
			So(err, ShouldBeNil)
			u()
			u()

			u2, err := l.Lock(ctx, "a")
			So(err, ShouldBeNil)
			u2()
		})
	})
}
