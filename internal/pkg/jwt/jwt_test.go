package jwt

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJWT(t *testing.T) {
	Convey("会话令牌", t, func() {
		j := NewJWT("secret", time.Hour)

		Convey("签发后可解析出用户与对话", func() {
			token, err := j.GenerateToken("u1", "c1")
			So(err, ShouldBeNil)

			claims, err := j.ValidateToken(token)
			So(err, ShouldBeNil)
			So(claims.UserID, ShouldEqual, "u1")
			So(claims.ConversationID, ShouldEqual, "c1")
		})

		Convey("不同密钥签发的令牌无效", func() {
			token, _ := NewJWT("other", time.Hour).GenerateToken("u1", "")
			_, err := j.ValidateToken(token)
			So(err, ShouldEqual, ErrInvalidToken)
		})

		Convey("过期令牌", func() {
			token, _ := NewJWT("secret", -time.Minute).GenerateToken("u1", "")
			_, err := j.ValidateToken(token)
			So(err, ShouldEqual, ErrExpiredToken)
		})

		Convey("空用户 ID 视为无效", func() {
			token, _ := j.GenerateToken("", "")
			_, err := j.ValidateToken(token)
			So(err, ShouldNotBeNil)
		})
	})
}
