package ctxutil

import "context"

// 使用私有类型避免与其他 context key 冲突
type userIDKeyType struct{}

type conversationIDKeyType struct{}

var (
	userIDKey         = userIDKeyType{}
	conversationIDKey = conversationIDKeyType{}
)

// WithUserID 将 userID 注入到 context 中
// 说明：在会话中间件解析 Cookie（或首次访问创建用户）后调用
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID 从 context 中解析 userID
// 返回值：
//   - string: 解析到的 userID
//   - bool  : 是否存在有效的 userID
func GetUserID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v := ctx.Value(userIDKey)
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithConversationID 将会话中记录的当前对话 ID 注入到 context 中
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// GetConversationID 从 context 中解析当前对话 ID
func GetConversationID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(conversationIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// WithRequestID 注入请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID 解析请求 ID
func GetRequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
