package storefactory

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/config"
	"intake/internal/repository/memstore"
)

func TestNewStore(t *testing.T) {
	Convey("NewStore", t, func() {
		ctx := context.Background()

		Convey("memory", func() {
			s, err := NewStore(ctx, &config.Config{Store: config.StoreConfig{Type: "memory"}})
			So(err, ShouldBeNil)
			_, ok := s.(*memstore.Store)
			So(ok, ShouldBeTrue)
			So(s.Ping(ctx), ShouldBeNil)
		})

		Convey("未知类型", func() {
			_, err := NewStore(ctx, &config.Config{Store: config.StoreConfig{Type: "cassandra"}})
			So(err, ShouldNotBeNil)
		})

		Convey("不支持的 SQL 驱动", func() {
			_, err := NewStore(ctx, &config.Config{Store: config.StoreConfig{Type: "mysql"}})
			So(err, ShouldNotBeNil)
		})
	})
}
