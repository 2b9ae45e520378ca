package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"intake/internal/config"
)

func TestClient_Transcribe(t *testing.T) {
	Convey("Client.Transcribe", t, func() {
		var gotLanguage, gotModel string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseMultipartForm(1 << 20)
			gotLanguage = r.FormValue("language")
			gotModel = r.FormValue("model")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"task":     "transcribe",
				"language": "hindi",
				"duration": 1.5,
				"text":     "  mujhe tractor chahiye  ",
			})
		}))
		defer srv.Close()

		c, err := NewClient(&config.STTConfig{APIKey: "k", BaseURL: srv.URL})
		So(err, ShouldBeNil)

		res, err := c.Transcribe(context.Background(), strings.NewReader("RIFF"), "a.wav", "Hindi")
		So(err, ShouldBeNil)
		So(res.Text, ShouldEqual, "mujhe tractor chahiye")
		So(res.Language, ShouldEqual, "hi")
		So(gotLanguage, ShouldEqual, "hi")
		So(gotModel, ShouldEqual, defaultModel)
	})

	Convey("未配置 key", t, func() {
		_, err := NewClient(&config.STTConfig{})
		So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
	})
}
