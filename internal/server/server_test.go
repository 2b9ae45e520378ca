package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/ai"
	"intake/internal/config"
	"intake/internal/model"
	"intake/internal/pkg/jwt"
	"intake/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 5000, Mode: "test"},
		Store:   config.StoreConfig{Type: "memory"},
		Lock:    config.LockConfig{Backend: "local"},
		Session: config.SessionConfig{CookieName: "intake_session", Secret: "test-secret", TTL: time.Hour},
		Storage: config.StorageConfig{
			Type:  "local",
			Local: &config.LocalConfig{BasePath: t.TempDir(), BaseURL: "/audio"},
		},
		Audio: config.AudioConfig{URLPrefix: "/audio"},
	}
}

type client struct {
	engine  http.Handler
	cookies []*http.Cookie
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	// 同一响应可能多次下发会话 Cookie，以最后一次为准
	if set := w.Result().Cookies(); len(set) > 0 {
		c.cookies = set[len(set)-1:]
	}
	return w
}

func (c *client) ask(message, language string) (*httptest.ResponseRecorder, model.AskResponse) {
	body, _ := json.Marshal(map[string]string{"message": message, "language": language})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := c.do(req)

	var resp model.AskResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestServer(t *testing.T) {
	Convey("HTTP 接口", t, func() {
		srv, err := New(context.Background(), testConfig(t))
		So(err, ShouldBeNil)
		c := &client{engine: srv.Engine()}

		Convey("health", func() {
			w := c.do(httptest.NewRequest(http.MethodGet, "/health", nil))
			So(w.Code, ShouldEqual, http.StatusOK)

			w = c.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("完整访谈流程", func() {
			w, r1 := c.ask("hello", "hi")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(r1.Response, ShouldEqual, service.QuestionPurpose)
			So(r1.AudioURL, ShouldBeNil)
			So(len(c.cookies), ShouldEqual, 1)

			_, r2 := c.ask("tractor", "hi")
			So(r2.ConversationID, ShouldEqual, r1.ConversationID)
			So(r2.Response, ShouldEqual, service.QuestionAmount)

			_, r3 := c.ask("500000", "hi")
			So(r3.Response, ShouldEqual, service.QuestionIncome)

			_, r4 := c.ask("20000", "hi")
			So(r4.Response, ShouldEqual, ai.MockRecommendation)
			So(len(r4.ConversationHistory), ShouldEqual, 8)
			So(r4.ConversationHistory[7].Role, ShouldEqual, "assistant")

			Convey("history 返回当前对话", func() {
				w := c.do(httptest.NewRequest(http.MethodGet, "/conversation/history", nil))
				So(w.Code, ShouldEqual, http.StatusOK)

				var h model.HistoryResponse
				So(json.Unmarshal(w.Body.Bytes(), &h), ShouldBeNil)
				So(*h.ConversationID, ShouldEqual, r1.ConversationID)
				So(*h.LanguageCode, ShouldEqual, "hi")
				So(len(h.Messages), ShouldEqual, 8)
			})

			Convey("切换语言后 list 有两条对话", func() {
				_, r5 := c.ask("hello", "en")
				So(r5.ConversationID, ShouldNotEqual, r1.ConversationID)
				So(r5.Response, ShouldEqual, service.QuestionPurpose)

				w := c.do(httptest.NewRequest(http.MethodGet, "/conversation/list", nil))
				var l model.ConversationListResponse
				So(json.Unmarshal(w.Body.Bytes(), &l), ShouldBeNil)
				So(len(l.Conversations), ShouldEqual, 2)
				So(l.Conversations[0].ConversationID, ShouldEqual, r5.ConversationID)
			})
		})

		Convey("新用户 history 为空结构", func() {
			w := c.do(httptest.NewRequest(http.MethodGet, "/conversation/history", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"conversation_id":null`)
			So(w.Body.String(), ShouldContainSubstring, `"messages":[]`)
		})

		Convey("缺少字段返回 400", func() {
			req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(`{"message":"hi"}`)))
			req.Header.Set("Content-Type", "application/json")
			w := c.do(req)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			var e model.ErrorResponse
			So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
			So(e.Code, ShouldEqual, 40001)
		})

		Convey("空 message 允许", func() {
			w, r := c.ask("", "en")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(r.Response, ShouldEqual, service.QuestionPurpose)
		})

		Convey("transcribe 缺少音频返回 400", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			_ = mw.WriteField("language", "hi")
			_ = mw.Close()

			req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			w := c.do(req)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("未配置识别服务时 transcribe 返回 503", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			fw, _ := mw.CreateFormFile("audio", "a.webm")
			_, _ = fw.Write([]byte("webm"))
			_ = mw.Close()

			req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			w := c.do(req)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("无效 Cookie 会重新建立会话", func() {
			c.cookies = []*http.Cookie{{Name: "intake_session", Value: "garbage"}}
			w, r := c.ask("hi", "en")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(r.Response, ShouldEqual, service.QuestionPurpose)
			So(c.cookies[0].Value, ShouldNotEqual, "garbage")
		})

		Convey("签名有效但用户不存在的 Cookie 会重新建立会话", func() {
			token, err := jwt.NewJWT("test-secret", time.Hour).GenerateToken("ghost-user", "ghost-conversation")
			So(err, ShouldBeNil)
			c.cookies = []*http.Cookie{{Name: "intake_session", Value: token}}

			w, r := c.ask("hello", "en")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(r.Response, ShouldEqual, service.QuestionPurpose)
			So(c.cookies[0].Value, ShouldNotEqual, token)

			claims, err := jwt.NewJWT("test-secret", time.Hour).ValidateToken(c.cookies[0].Value)
			So(err, ShouldBeNil)
			So(claims.UserID, ShouldNotEqual, "ghost-user")
			So(claims.ConversationID, ShouldEqual, r.ConversationID)
		})

		Convey("loan types", func() {
			w := c.do(httptest.NewRequest(http.MethodGet, "/loan/types", nil))
			So(w.Code, ShouldEqual, http.StatusOK)

			var resp model.LoanTypesResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(len(resp.LoanTypes), ShouldEqual, 6)
			So(len(resp.Languages), ShouldEqual, 10)
		})
	})
}
