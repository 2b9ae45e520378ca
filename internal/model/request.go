package model

// AskRequest /ask 请求
// message 与 language 两个字段都必须出现；message 允许为空字符串
type AskRequest struct {
	Message  *string `json:"message"`
	Language *string `json:"language"`
}
