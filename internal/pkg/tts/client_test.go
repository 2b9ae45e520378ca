package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/config"
	"intake/internal/pkg/storagefactory"
)

func newTestServer(t *testing.T, code int, data string) (*httptest.Server, *ttsRequest) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(ttsResponse{ReqID: got.Request.ReqID, Code: code, Message: "msg", Data: data})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestClient_Synthesize(t *testing.T) {
	Convey("Client.Synthesize", t, func() {
		ctx := context.Background()

		Convey("成功返回解码后的音频", func() {
			srv, got := newTestServer(t, successCode, base64.StdEncoding.EncodeToString([]byte("mp3-bytes")))
			c, err := NewClient(&config.TTSConfig{APIURL: srv.URL, AccessToken: "tok"})
			So(err, ShouldBeNil)

			audio, err := c.Synthesize(ctx, "What do you need the loan for?", "hi")
			So(err, ShouldBeNil)
			So(string(audio), ShouldEqual, "mp3-bytes")
			So(got.Audio.Language, ShouldEqual, "hi")
			So(got.Audio.Encoding, ShouldEqual, "mp3")
			So(got.App.Token, ShouldEqual, "tok")
		})

		Convey("接口错误码", func() {
			srv, _ := newTestServer(t, 3001, "")
			c, _ := NewClient(&config.TTSConfig{APIURL: srv.URL, AccessToken: "tok"})
			_, err := c.Synthesize(ctx, "hello", "en")
			So(err, ShouldNotBeNil)
		})

		Convey("不支持的语言", func() {
			c, _ := NewClient(&config.TTSConfig{APIURL: "http://127.0.0.1:0", AccessToken: "tok"})
			_, err := c.Synthesize(ctx, "bonjour", "fr")
			So(errors.Is(err, ErrUnsupportedLanguage), ShouldBeTrue)
		})

		Convey("空文本", func() {
			c, _ := NewClient(&config.TTSConfig{AccessToken: "tok"})
			_, err := c.Synthesize(ctx, "  ", "en")
			So(errors.Is(err, ErrEmptyText), ShouldBeTrue)
		})

		Convey("缺少 token", func() {
			_, err := NewClient(&config.TTSConfig{})
			So(err, ShouldNotBeNil)
		})
	})
}

type stubSynth struct {
	audio []byte
	err   error
}

func (s stubSynth) Synthesize(context.Context, string, string) ([]byte, error) {
	return s.audio, s.err
}

func TestPublisher(t *testing.T) {
	Convey("Publisher.Synthesize", t, func() {
		ctx := context.Background()
		store, err := storagefactory.NewStorage(ctx, &config.StorageConfig{
			Type:  "local",
			Local: &config.LocalConfig{BasePath: t.TempDir(), BaseURL: "/audio"},
		})
		So(err, ShouldBeNil)

		Convey("上传后返回 /audio/<uuid>.mp3", func() {
			p := NewPublisher(stubSynth{audio: []byte("x")}, store)
			url, err := p.Synthesize(ctx, "hi", "en")
			So(err, ShouldBeNil)
			So(strings.HasPrefix(url, "/audio/"), ShouldBeTrue)
			So(strings.HasSuffix(url, ".mp3"), ShouldBeTrue)

			ok, err := store.Exists(ctx, strings.TrimPrefix(url, "/audio/"))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("合成失败不写文件", func() {
			p := NewPublisher(stubSynth{err: errors.New("down")}, store)
			_, err := p.Synthesize(ctx, "hi", "en")
			So(err, ShouldNotBeNil)
		})
	})
}
