package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"intake/internal/config"
	"intake/internal/model"
	"intake/internal/model/conversation"
	"intake/internal/pkg/ctxutil"
	"intake/internal/pkg/jwt"
	"intake/internal/repository"
)

const sessionStateKey = "session_state"

// UserStore 校验与创建匿名用户
type UserStore interface {
	CreateUser(ctx context.Context) (string, error)
	GetUser(ctx context.Context, userID string) (*conversation.User, error)
}

type sessionState struct {
	userID         string
	conversationID string
	jwt            *jwt.JWT
	cfg            *config.SessionConfig
}

// Session 匿名会话中间件
// 从 Cookie 中的签名 token 解析 user_id 与当前 conversation_id；
// 没有、无效或用户已不在存储中（存储重置、切换后端）时创建新用户并下发 Cookie
func Session(jwtUtil *jwt.JWT, users UserStore, cfg *config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := &sessionState{jwt: jwtUtil, cfg: cfg}

		if raw, err := c.Cookie(cfg.CookieName); err == nil && raw != "" {
			claims, err := jwtUtil.ValidateToken(raw)
			if err == nil {
				st.userID = claims.UserID
				st.conversationID = claims.ConversationID
			} else {
				log.Debug().Err(err).Msg("Discarding invalid session cookie")
			}
		}

		if st.userID != "" {
			_, err := users.GetUser(c.Request.Context(), st.userID)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				log.Info().Str("user_id", st.userID).Msg("Session user no longer exists, starting a new session")
				st.userID, st.conversationID = "", ""
			case err != nil:
				log.Error().Err(err).Str("user_id", st.userID).Msg("Failed to load session user")
				c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
					Code:    50001,
					Message: "Failed to establish session",
				})
				return
			}
		}

		if st.userID == "" {
			userID, err := users.CreateUser(c.Request.Context())
			if err != nil {
				log.Error().Err(err).Msg("Failed to create anonymous user")
				c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
					Code:    50001,
					Message: "Failed to establish session",
				})
				return
			}
			st.userID = userID
			if err := st.issue(c); err != nil {
				log.Error().Err(err).Msg("Failed to issue session cookie")
				c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
					Code:    50001,
					Message: "Failed to establish session",
				})
				return
			}
			log.Info().Str("user_id", userID).Msg("Anonymous user created")
		}

		ctx := ctxutil.WithUserID(c.Request.Context(), st.userID)
		if st.conversationID != "" {
			ctx = ctxutil.WithConversationID(ctx, st.conversationID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionStateKey, st)

		c.Next()
	}
}

// SetActiveConversation 记录当前对话，变化时重新下发 Cookie
func SetActiveConversation(c *gin.Context, conversationID string) {
	v, ok := c.Get(sessionStateKey)
	if !ok {
		return
	}
	st := v.(*sessionState)
	if conversationID == "" || st.conversationID == conversationID {
		return
	}

	st.conversationID = conversationID
	if err := st.issue(c); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to refresh session cookie")
		return
	}
	c.Request = c.Request.WithContext(ctxutil.WithConversationID(c.Request.Context(), conversationID))
}

func (st *sessionState) issue(c *gin.Context) error {
	token, err := st.jwt.GenerateToken(st.userID, st.conversationID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(st.cfg.CookieName, token, int(st.jwt.GetExpiration().Seconds()), "/", "", st.cfg.Secure, true)
	return nil
}
