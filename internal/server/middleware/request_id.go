package middleware

import (
	"github.com/gin-gonic/gin"

	"intake/internal/pkg/ctxutil"
	"intake/internal/pkg/id"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求分配 ID，优先沿用上游传入的值
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" || len(reqID) > 64 {
			reqID = id.New()
		}

		c.Set("request_id", reqID)
		c.Header(RequestIDHeader, reqID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), reqID))

		c.Next()
	}
}
